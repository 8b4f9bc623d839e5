package model

import (
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusStarted    Status = "started"
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ActiveStatuses are the statuses that occupy the grid.
var ActiveStatuses = []Status{StatusScheduled, StatusStarted, StatusWaiting, StatusInProgress}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusStarted, StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Appointment times are tenant-local wall-clock values (see wallclock.Strip).
type Appointment struct {
	ID             string
	TenantID       string
	PatientID      string
	ProfessionalID string
	SupervisorID   string
	TreatmentID    string
	ServiceID      string
	CareType       string
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	Notes          string
	ActualStart    *time.Time
	ActualEnd      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a Appointment) Date() wallclock.Date {
	return wallclock.DateOf(a.StartTime)
}

func (a Appointment) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// AppointmentFilter narrows List queries. Zero fields are ignored.
type AppointmentFilter struct {
	TenantID       string
	ProfessionalID string
	SupervisorID   string
	ServiceID      string
	PatientID      string
	Status         Status
	Date           wallclock.Date
	Offset         int
	Limit          int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Normalize clamps paging to sane bounds.
func (f AppointmentFilter) Normalize() AppointmentFilter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// OverlapQuery describes the interval a write wants to claim.
type OverlapQuery struct {
	TenantID       string
	ProfessionalID string
	Start          time.Time
	End            time.Time
	ExcludeID      string
	ActiveOnly     bool
}
