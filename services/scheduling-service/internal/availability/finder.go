package availability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

// Calendar answers whether a tenant is closed on a date.
type Calendar interface {
	IsHoliday(ctx context.Context, tenantID string, day wallclock.Date) (bool, error)
}

// Bookings lists the active appointments starting on a date. An empty
// professionalID means every professional of the tenant.
type Bookings interface {
	ListActiveOn(ctx context.Context, tenantID, professionalID string, day wallclock.Date) ([]model.Appointment, error)
}

type Query struct {
	TenantID        string
	ProfessionalID  string
	Date            wallclock.Date
	DurationMinutes int
}

type Finder struct {
	calendar Calendar
	bookings Bookings
	logger   *slog.Logger
}

func NewFinder(calendar Calendar, bookings Bookings, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{calendar: calendar, bookings: bookings, logger: logger}
}

// FindFreeSlots lists the start times where an appointment of the requested
// duration fits. Sundays and holidays yield an empty list. Without a
// professional the result treats every booking of the tenant as blocking.
func (f *Finder) FindFreeSlots(ctx context.Context, q Query) ([]wallclock.TimeOfDay, error) {
	if err := ValidateDuration(q.DurationMinutes); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("scheduling/availability").Start(ctx, "availability.FindFreeSlots")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", q.TenantID),
		attribute.String("date", q.Date.String()),
		attribute.Int("duration_minutes", q.DurationMinutes),
	)

	if q.Date.IsSunday() {
		return []wallclock.TimeOfDay{}, nil
	}

	closed, err := f.calendar.IsHoliday(ctx, q.TenantID, q.Date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("holiday lookup: %w", err)
	}
	if closed {
		return []wallclock.TimeOfDay{}, nil
	}

	appts, err := f.bookings.ListActiveOn(ctx, q.TenantID, q.ProfessionalID, q.Date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	busy := make([]Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Status.Active() {
			continue
		}
		busy = append(busy, Interval{Start: a.StartTime, End: a.EndTime})
	}

	slots := FreeSlots(Occupied(q.Date, busy), q.DurationMinutes)
	f.logger.Debug("free slots computed",
		"tenant_id", q.TenantID,
		"professional_id", q.ProfessionalID,
		"date", q.Date.String(),
		"busy", len(busy),
		"slots", len(slots),
	)
	return slots, nil
}
