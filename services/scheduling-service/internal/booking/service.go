// Package booking writes appointments. Every write that claims calendar time
// runs the overlap guard and the insert or update under one per-professional
// lock, and records an outbox event in the same transaction.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

const (
	maxNotesLength  = 500
	maxLockAttempts = 3
	eventTimeLayout = "2006-01-02T15:04:05"
)

// DocumentGenerator renders the visit summary of a completed appointment.
type DocumentGenerator interface {
	Generate(ctx context.Context, appt model.Appointment) (string, error)
}

type Config struct {
	StrictTransitions bool
	OverlapActiveOnly bool
	// Location is the clinic's zone used to stamp actual start and end times.
	Location *time.Location
	// Now overrides the clock; it must return stripped wall-clock values.
	Now func() time.Time
}

type Service struct {
	store  storage.Store
	docs   DocumentGenerator
	logger *slog.Logger
	cfg    Config
	guard  Guard
	locks  *keyedMutex
	tracer trace.Tracer
}

func NewService(store storage.Store, docs DocumentGenerator, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		loc := cfg.Location
		cfg.Now = func() time.Time { return wallclock.Now(loc) }
	}
	return &Service{
		store:  store,
		docs:   docs,
		logger: logger,
		cfg:    cfg,
		guard:  Guard{ActiveOnly: cfg.OverlapActiveOnly},
		locks:  newKeyedMutex(),
		tracer: otel.Tracer("scheduling/booking"),
	}
}

type CreateInput struct {
	TenantID       string
	PatientID      string
	ProfessionalID string
	SupervisorID   string
	TreatmentID    string
	ServiceID      string
	CareType       string
	Start          time.Time
	End            time.Time
	Status         model.Status
	Notes          string
	// PatientEmail only travels in the event payload; it is not stored.
	PatientEmail string
}

func (in CreateInput) validate() error {
	switch {
	case strings.TrimSpace(in.TenantID) == "":
		return validation("tenant is required")
	case strings.TrimSpace(in.PatientID) == "":
		return validation("patient is required")
	case strings.TrimSpace(in.ProfessionalID) == "":
		return validation("professional is required")
	case in.Start.IsZero() || in.End.IsZero():
		return validation("start and end are required")
	case in.Status != "" && !in.Status.Valid():
		return validation("unknown status %q", in.Status)
	case len([]rune(in.Notes)) > maxNotesLength:
		return validation("notes exceed %d characters", maxNotesLength)
	}
	return nil
}

// UpdateInput is a partial patch: nil fields keep their stored value.
type UpdateInput struct {
	TenantID       string
	ID             string
	PatientID      *string
	ProfessionalID *string
	SupervisorID   *string
	TreatmentID    *string
	ServiceID      *string
	CareType       *string
	Start          *time.Time
	End            *time.Time
	Status         *model.Status
	Notes          *string
	PatientEmail   string
}

func (in UpdateInput) apply(a model.Appointment) model.Appointment {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.PatientID, in.PatientID)
	set(&a.ProfessionalID, in.ProfessionalID)
	set(&a.SupervisorID, in.SupervisorID)
	set(&a.TreatmentID, in.TreatmentID)
	set(&a.ServiceID, in.ServiceID)
	set(&a.CareType, in.CareType)
	set(&a.Notes, in.Notes)
	if in.Start != nil {
		a.StartTime = wallclock.Strip(*in.Start)
	}
	if in.End != nil {
		a.EndTime = wallclock.Strip(*in.End)
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	return a
}

func (s *Service) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	if err := in.validate(); err != nil {
		return model.Appointment{}, err
	}
	appt := model.Appointment{
		ID:             uuid.NewString(),
		TenantID:       in.TenantID,
		PatientID:      in.PatientID,
		ProfessionalID: in.ProfessionalID,
		SupervisorID:   in.SupervisorID,
		TreatmentID:    in.TreatmentID,
		ServiceID:      in.ServiceID,
		CareType:       in.CareType,
		StartTime:      wallclock.Strip(in.Start),
		EndTime:        wallclock.Strip(in.End),
		Status:         in.Status,
		Notes:          in.Notes,
	}
	if appt.Status == "" {
		appt.Status = model.StatusScheduled
	}
	if !appt.EndTime.After(appt.StartTime) {
		return model.Appointment{}, ErrInvalidRange
	}

	ctx, span := s.startSpan(ctx, "booking.Create", appt)
	defer span.End()

	unlock, err := s.locks.Lock(ctx, calendarKey(appt.TenantID, appt.ProfessionalID))
	if err != nil {
		span.RecordError(err)
		return model.Appointment{}, err
	}
	defer unlock()

	err = s.withTx(ctx, func(tx storage.Tx) error {
		if err := tx.LockProfessional(ctx, appt.TenantID, appt.ProfessionalID); err != nil {
			return err
		}
		if err := s.guard.AssertNoOverlap(ctx, tx, appt.TenantID, appt.ProfessionalID, appt.StartTime, appt.EndTime, ""); err != nil {
			return err
		}
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, model.EventAppointmentScheduled, appt, "", in.PatientEmail)
	})
	if err != nil {
		span.RecordError(err)
		return model.Appointment{}, err
	}

	s.logger.Info("appointment scheduled",
		"tenant_id", appt.TenantID,
		"appointment_id", appt.ID,
		"professional_id", appt.ProfessionalID,
		"start", appt.StartTime.Format(eventTimeLayout),
	)
	return appt, nil
}

// Update applies a partial patch. The overlap guard runs again when the
// interval or the professional changes, or when the patch reactivates a
// cancelled or completed appointment.
func (s *Service) Update(ctx context.Context, in UpdateInput) (model.Appointment, error) {
	if in.Status != nil && !in.Status.Valid() {
		return model.Appointment{}, validation("unknown status %q", *in.Status)
	}
	if in.Notes != nil && len([]rune(*in.Notes)) > maxNotesLength {
		return model.Appointment{}, validation("notes exceed %d characters", maxNotesLength)
	}
	if in.ProfessionalID != nil && strings.TrimSpace(*in.ProfessionalID) == "" {
		return model.Appointment{}, validation("professional is required")
	}
	if in.PatientID != nil && strings.TrimSpace(*in.PatientID) == "" {
		return model.Appointment{}, validation("patient is required")
	}

	ctx, span := s.startSpan(ctx, "booking.Update", model.Appointment{TenantID: in.TenantID, ID: in.ID})
	defer span.End()

	target := func(a model.Appointment) string { return in.apply(a).ProfessionalID }
	var updated model.Appointment
	err := s.withCalendarLocked(ctx, in.TenantID, in.ID, target, func(tx storage.Tx, current model.Appointment) error {
		updated = in.apply(current)
		if !updated.EndTime.After(updated.StartTime) {
			return ErrInvalidRange
		}
		statusChanged := updated.Status != current.Status
		if statusChanged && !CanTransition(current.Status, updated.Status, s.cfg.StrictTransitions) {
			return &TransitionError{From: current.Status, To: updated.Status}
		}

		moved := !updated.StartTime.Equal(current.StartTime) ||
			!updated.EndTime.Equal(current.EndTime) ||
			updated.ProfessionalID != current.ProfessionalID
		if moved || reactivates(current.Status, updated.Status) {
			if err := s.guard.AssertNoOverlap(ctx, tx, updated.TenantID, updated.ProfessionalID, updated.StartTime, updated.EndTime, updated.ID); err != nil {
				return err
			}
		}
		if err := tx.UpdateAppointment(ctx, &updated); err != nil {
			return err
		}

		if moved {
			if err := s.appendEvent(ctx, tx, model.EventAppointmentRescheduled, updated, "", in.PatientEmail); err != nil {
				return err
			}
		}
		if statusChanged {
			if err := s.appendEvent(ctx, tx, model.EventAppointmentStatusChanged, updated, current.Status, in.PatientEmail); err != nil {
				return err
			}
		}
		if !moved && !statusChanged {
			return s.appendEvent(ctx, tx, model.EventAppointmentUpdated, updated, "", in.PatientEmail)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return model.Appointment{}, err
	}
	return updated, nil
}

// reactivates reports whether a status change puts an appointment back on
// the grid.
func reactivates(from, to model.Status) bool {
	return to.Active() && !from.Active()
}

var errStaleLock = errors.New("stale calendar lock")

// withCalendarLocked runs fn in a transaction that holds the calendar lock of
// the professional target picks from the stored row, with that row read for
// update. The lock key comes from an unlocked snapshot, so the attempt is
// retried when the locked read names another professional.
func (s *Service) withCalendarLocked(ctx context.Context, tenantID, id string, target func(model.Appointment) string, fn func(tx storage.Tx, current model.Appointment) error) error {
	snapshot, err := s.store.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		current, err := s.lockedTx(ctx, tenantID, id, target(snapshot), target, fn)
		if errors.Is(err, errStaleLock) {
			snapshot = current
			continue
		}
		return err
	}
	return fmt.Errorf("%w: appointment %s kept changing professional", storage.ErrTransient, id)
}

func (s *Service) lockedTx(ctx context.Context, tenantID, id, professionalID string, target func(model.Appointment) string, fn func(tx storage.Tx, current model.Appointment) error) (model.Appointment, error) {
	unlock, err := s.locks.Lock(ctx, calendarKey(tenantID, professionalID))
	if err != nil {
		return model.Appointment{}, err
	}
	defer unlock()

	var current model.Appointment
	err = s.withTx(ctx, func(tx storage.Tx) error {
		if err := tx.LockProfessional(ctx, tenantID, professionalID); err != nil {
			return err
		}
		var err error
		current, err = tx.GetAppointmentForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if target(current) != professionalID {
			return errStaleLock
		}
		return fn(tx, current)
	})
	return current, err
}

// Delete removes the appointment and returns what was stored.
func (s *Service) Delete(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	var deleted model.Appointment
	err := s.withTx(ctx, func(tx storage.Tx) error {
		var err error
		deleted, err = tx.GetAppointmentForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, tenantID, id); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, model.EventAppointmentDeleted, deleted, "", "")
	})
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info("appointment deleted", "tenant_id", tenantID, "appointment_id", id)
	return deleted, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	return s.store.GetAppointment(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validation("unknown status %q", f.Status)
	}
	return s.store.ListAppointments(ctx, f.Normalize())
}

func (s *Service) ListByPatient(ctx context.Context, tenantID, patientID string, offset, limit int) ([]model.Appointment, error) {
	return s.List(ctx, model.AppointmentFilter{
		TenantID:  tenantID,
		PatientID: patientID,
		Offset:    offset,
		Limit:     limit,
	})
}

// CheckOverlap runs the guard read-only and reports the first conflicting
// appointment, if any.
func (s *Service) CheckOverlap(ctx context.Context, tenantID, professionalID string, start, end time.Time, excludeID string) (model.Appointment, bool, error) {
	q, err := s.guard.query(tenantID, professionalID, start, end, excludeID)
	if err != nil {
		return model.Appointment{}, false, err
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return model.Appointment{}, false, err
	}
	defer tx.Rollback(ctx)
	return tx.FindOverlap(ctx, q)
}

func (s *Service) withTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return translate(err)
	}
	return translate(tx.Commit(ctx))
}

func (s *Service) appendEvent(ctx context.Context, tx storage.Tx, eventType string, appt model.Appointment, previous model.Status, patientEmail string) error {
	payload, err := json.Marshal(model.AppointmentEventPayload{
		AppointmentID:  appt.ID,
		TenantID:       appt.TenantID,
		PatientID:      appt.PatientID,
		ProfessionalID: appt.ProfessionalID,
		ServiceID:      appt.ServiceID,
		StartTime:      appt.StartTime.Format(eventTimeLayout),
		EndTime:        appt.EndTime.Format(eventTimeLayout),
		Status:         appt.Status,
		PreviousStatus: previous,
		PatientEmail:   patientEmail,
	})
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, model.Event{
		ID:            uuid.NewString(),
		TenantID:      appt.TenantID,
		AggregateType: model.AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func (s *Service) startSpan(ctx context.Context, name string, appt model.Appointment) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("tenant_id", appt.TenantID),
		attribute.String("professional_id", appt.ProfessionalID),
	)
	if appt.ID != "" {
		span.SetAttributes(attribute.String("appointment_id", appt.ID))
	}
	return ctx, span
}
