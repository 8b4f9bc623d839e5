package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
)

// Start records the patient's arrival and stamps the actual start time.
func (s *Service) Start(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	return s.transition(ctx, tenantID, id, model.StatusStarted, func(a *model.Appointment, now time.Time) {
		a.ActualStart = &now
	})
}

func (s *Service) Wait(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	return s.transition(ctx, tenantID, id, model.StatusWaiting, nil)
}

func (s *Service) BeginService(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	return s.transition(ctx, tenantID, id, model.StatusInProgress, nil)
}

// Complete stamps the actual end time and replaces the notes when notes is
// non-nil. The visit summary is generated after commit; a failure there is
// logged and does not undo the completion.
func (s *Service) Complete(ctx context.Context, tenantID, id string, notes *string) (model.Appointment, error) {
	if notes != nil && len([]rune(*notes)) > maxNotesLength {
		return model.Appointment{}, validation("notes exceed %d characters", maxNotesLength)
	}
	appt, err := s.transition(ctx, tenantID, id, model.StatusCompleted, func(a *model.Appointment, now time.Time) {
		a.ActualEnd = &now
		if notes != nil {
			a.Notes = *notes
		}
	})
	if err != nil {
		return model.Appointment{}, err
	}

	if s.docs != nil {
		path, err := s.docs.Generate(ctx, appt)
		if err != nil {
			s.logger.Warn("visit summary generation failed",
				"tenant_id", tenantID,
				"appointment_id", id,
				"err", err,
			)
		} else {
			s.logger.Info("visit summary generated", "tenant_id", tenantID, "appointment_id", id, "path", path)
		}
	}
	return appt, nil
}

// Cancel is allowed from every status that is not terminal.
func (s *Service) Cancel(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	return s.transition(ctx, tenantID, id, model.StatusCancelled, nil)
}

func (s *Service) transition(ctx context.Context, tenantID, id string, to model.Status, stamp func(*model.Appointment, time.Time)) (model.Appointment, error) {
	ctx, span := s.startSpan(ctx, "booking.Transition", model.Appointment{TenantID: tenantID, ID: id})
	defer span.End()

	var updated model.Appointment
	var from model.Status
	professional := func(a model.Appointment) string { return a.ProfessionalID }
	err := s.withCalendarLocked(ctx, tenantID, id, professional, func(tx storage.Tx, current model.Appointment) error {
		from = current.Status
		if !CanTransition(from, to, s.cfg.StrictTransitions) {
			return &TransitionError{From: from, To: to}
		}
		if reactivates(from, to) {
			if err := s.guard.AssertNoOverlap(ctx, tx, current.TenantID, current.ProfessionalID, current.StartTime, current.EndTime, current.ID); err != nil {
				return err
			}
		}

		updated = current
		updated.Status = to
		if stamp != nil {
			stamp(&updated, s.cfg.Now())
		}
		if err := tx.UpdateAppointment(ctx, &updated); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, model.EventAppointmentStatusChanged, updated, from, "")
	})
	if err != nil {
		span.RecordError(err)
		return model.Appointment{}, err
	}

	s.logger.Info("appointment status changed",
		"tenant_id", tenantID,
		"appointment_id", id,
		"from", string(from),
		"to", string(to),
	)
	return updated, nil
}
