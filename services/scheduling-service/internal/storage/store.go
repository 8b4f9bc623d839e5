// Package storage defines the persistence contract of the scheduling service.
// postgres implements it on pgx for production; sqlite implements it on gorm
// for single-node installs and tests.
package storage

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a database constraint rejected an overlapping booking.
	ErrConflict  = errors.New("conflicting appointment")
	ErrDuplicate = errors.New("duplicate record")
	// ErrTransient wraps I/O failures of the underlying store.
	ErrTransient = errors.New("store unavailable")
)

// Store is the read side plus transaction entry point.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	GetAppointment(ctx context.Context, tenantID, id string) (model.Appointment, error)
	ListAppointments(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error)
	ListActiveOn(ctx context.Context, tenantID, professionalID string, day wallclock.Date) ([]model.Appointment, error)

	HolidayStore
}

// Tx is a unit of work. Callers must Rollback on every path; Rollback after
// Commit is a no-op.
type Tx interface {
	// LockProfessional serialises writers of one professional's calendar until
	// the transaction ends.
	LockProfessional(ctx context.Context, tenantID, professionalID string) error
	GetAppointmentForUpdate(ctx context.Context, tenantID, id string) (model.Appointment, error)
	FindOverlap(ctx context.Context, q model.OverlapQuery) (model.Appointment, bool, error)
	InsertAppointment(ctx context.Context, a *model.Appointment) error
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, tenantID, id string) error
	AppendEvent(ctx context.Context, evt model.Event) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type HolidayStore interface {
	CreateHoliday(ctx context.Context, h *model.Holiday) error
	GetHoliday(ctx context.Context, tenantID, id string) (model.Holiday, error)
	ListHolidays(ctx context.Context, tenantID string, offset, limit int) ([]model.Holiday, error)
	UpdateHoliday(ctx context.Context, h *model.Holiday) error
	DeleteHoliday(ctx context.Context, tenantID, id string) (model.Holiday, error)
	HolidayExists(ctx context.Context, tenantID string, day wallclock.Date) (bool, error)
}

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool  { return errors.Is(err, ErrConflict) }
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
