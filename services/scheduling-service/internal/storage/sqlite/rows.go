package sqlite

import (
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

type appointmentRow struct {
	ID             string    `gorm:"primaryKey"`
	TenantID       string    `gorm:"not null;index:idx_appt_prof_start,priority:1;index:idx_appt_patient,priority:1"`
	PatientID      string    `gorm:"not null;index:idx_appt_patient,priority:2"`
	ProfessionalID string    `gorm:"not null;index:idx_appt_prof_start,priority:2"`
	SupervisorID   string    `gorm:"not null;default:''"`
	TreatmentID    string    `gorm:"not null;default:''"`
	ServiceID      string    `gorm:"not null;default:''"`
	CareType       string    `gorm:"not null;default:''"`
	StartTime      time.Time `gorm:"not null;index:idx_appt_prof_start,priority:3"`
	EndTime        time.Time `gorm:"not null"`
	Status         string    `gorm:"type:varchar(32);not null;default:'scheduled'"`
	Notes          string    `gorm:"type:varchar(500);not null;default:''"`
	ActualStart    *time.Time
	ActualEnd      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (appointmentRow) TableName() string { return "appointments" }

type holidayRow struct {
	ID        string `gorm:"primaryKey"`
	TenantID  string `gorm:"not null;uniqueIndex:idx_holiday_tenant_day,priority:1"`
	Day       string `gorm:"type:varchar(10);not null;uniqueIndex:idx_holiday_tenant_day,priority:2"`
	Name      string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (holidayRow) TableName() string { return "holidays" }

type outboxRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	EventID       string `gorm:"not null;uniqueIndex"`
	TenantID      string `gorm:"not null"`
	AggregateType string `gorm:"not null"`
	AggregateID   string `gorm:"not null"`
	EventType     string `gorm:"not null"`
	Payload       []byte `gorm:"not null"`
	Traceparent   string `gorm:"not null;default:''"`
	Tracestate    string `gorm:"not null;default:''"`
	CreatedAt     time.Time
	PublishedAt   *time.Time `gorm:"index"`
}

func (outboxRow) TableName() string { return "outbox_events" }

type inboxRow struct {
	EventID    string `gorm:"primaryKey"`
	EventType  string `gorm:"not null"`
	ReceivedAt time.Time
}

func (inboxRow) TableName() string { return "inbox_events" }

// sqlite compares timestamps as text, so every stored instant is whole
// seconds in UTC.
func norm(t time.Time) time.Time {
	return wallclock.Strip(t)
}

func normPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := norm(*t)
	return &n
}

func toAppointmentRow(a *model.Appointment) appointmentRow {
	return appointmentRow{
		ID:             a.ID,
		TenantID:       a.TenantID,
		PatientID:      a.PatientID,
		ProfessionalID: a.ProfessionalID,
		SupervisorID:   a.SupervisorID,
		TreatmentID:    a.TreatmentID,
		ServiceID:      a.ServiceID,
		CareType:       a.CareType,
		StartTime:      norm(a.StartTime),
		EndTime:        norm(a.EndTime),
		Status:         string(a.Status),
		Notes:          a.Notes,
		ActualStart:    normPtr(a.ActualStart),
		ActualEnd:      normPtr(a.ActualEnd),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (r appointmentRow) model() model.Appointment {
	return model.Appointment{
		ID:             r.ID,
		TenantID:       r.TenantID,
		PatientID:      r.PatientID,
		ProfessionalID: r.ProfessionalID,
		SupervisorID:   r.SupervisorID,
		TreatmentID:    r.TreatmentID,
		ServiceID:      r.ServiceID,
		CareType:       r.CareType,
		StartTime:      wallclock.Strip(r.StartTime),
		EndTime:        wallclock.Strip(r.EndTime),
		Status:         model.Status(r.Status),
		Notes:          r.Notes,
		ActualStart:    normPtr(r.ActualStart),
		ActualEnd:      normPtr(r.ActualEnd),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r holidayRow) model() model.Holiday {
	d, _ := wallclock.ParseDate(r.Day)
	return model.Holiday{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Date:      d,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
