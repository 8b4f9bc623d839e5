package booking

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
)

var (
	ErrOverlap           = errors.New("appointment overlaps an existing booking")
	ErrInvalidRange      = errors.New("end time must be after start time")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = storage.ErrNotFound
)

// OverlapError names the booking that blocks the requested interval. Conflict
// is empty when the database constraint caught the collision.
type OverlapError struct {
	Conflict model.Appointment
}

func (e *OverlapError) Error() string {
	if e.Conflict.ID == "" {
		return ErrOverlap.Error()
	}
	return fmt.Sprintf("%s: %s (%s - %s)", ErrOverlap, e.Conflict.ID,
		e.Conflict.StartTime.Format("2006-01-02 15:04"), e.Conflict.EndTime.Format("15:04"))
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From, To model.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translate turns store errors into booking errors.
func translate(err error) error {
	if storage.IsConflict(err) {
		return &OverlapError{}
	}
	return err
}
