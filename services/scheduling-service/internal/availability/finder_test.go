package availability

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

type fakeCalendar struct {
	holidays map[wallclock.Date]bool
	err      error
	calls    int
}

func (f *fakeCalendar) IsHoliday(_ context.Context, _ string, d wallclock.Date) (bool, error) {
	f.calls++
	return f.holidays[d], f.err
}

type fakeBookings struct {
	appts []model.Appointment
	err   error
	calls int
	gotID string
}

func (f *fakeBookings) ListActiveOn(_ context.Context, _ string, professionalID string, _ wallclock.Date) ([]model.Appointment, error) {
	f.calls++
	f.gotID = professionalID
	return f.appts, f.err
}

func TestFindFreeSlots_InvalidDurationBeforeIO(t *testing.T) {
	cal, book := &fakeCalendar{}, &fakeBookings{}
	f := NewFinder(cal, book, nil)

	for _, d := range []int{0, 20, 45, 180} {
		_, err := f.FindFreeSlots(context.Background(), Query{TenantID: "t", Date: monday, DurationMinutes: d})
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %d: expected ErrInvalidDuration, got %v", d, err)
		}
	}
	if cal.calls != 0 || book.calls != 0 {
		t.Fatalf("no lookups expected, got calendar=%d bookings=%d", cal.calls, book.calls)
	}
}

func TestFindFreeSlots_SundayIsClosed(t *testing.T) {
	sunday := wallclock.NewDate(2025, 3, 16)
	cal := &fakeCalendar{err: errors.New("should not be called")}
	f := NewFinder(cal, &fakeBookings{}, nil)

	slots, err := f.FindFreeSlots(context.Background(), Query{TenantID: "t", Date: sunday, DurationMinutes: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", slots)
	}
}

func TestFindFreeSlots_HolidayIsClosed(t *testing.T) {
	cal := &fakeCalendar{holidays: map[wallclock.Date]bool{monday: true}}
	book := &fakeBookings{}
	f := NewFinder(cal, book, nil)

	slots, err := f.FindFreeSlots(context.Background(), Query{TenantID: "t", Date: monday, DurationMinutes: 60})
	if err != nil || len(slots) != 0 {
		t.Fatalf("expected empty result, got %v, %v", slots, err)
	}
	if book.calls != 0 {
		t.Fatalf("appointments should not be read on a holiday")
	}
}

func TestFindFreeSlots_SkipsInactiveAndIsIdempotent(t *testing.T) {
	book := &fakeBookings{appts: []model.Appointment{
		{StartTime: at(monday, 9, 0), EndTime: at(monday, 10, 0), Status: model.StatusScheduled},
		{StartTime: at(monday, 14, 0), EndTime: at(monday, 15, 0), Status: model.StatusCancelled},
		{StartTime: at(monday, 16, 0), EndTime: at(monday, 17, 0), Status: model.StatusCompleted},
	}}
	f := NewFinder(&fakeCalendar{}, book, nil)
	q := Query{TenantID: "t", ProfessionalID: "p1", Date: monday, DurationMinutes: 30}

	first, err := f.FindFreeSlots(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 28 {
		t.Fatalf("expected 28 slots, got %d", len(first))
	}
	if !contains(first, "14:00") || !contains(first, "16:30") {
		t.Fatalf("cancelled and completed bookings must not block")
	}
	if book.gotID != "p1" {
		t.Fatalf("professional filter not forwarded")
	}

	second, _ := f.FindFreeSlots(context.Background(), q)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated query returned different slots")
	}
}

func TestFindFreeSlots_PropagatesLookupErrors(t *testing.T) {
	boom := errors.New("connection reset")

	f := NewFinder(&fakeCalendar{err: boom}, &fakeBookings{}, nil)
	if _, err := f.FindFreeSlots(context.Background(), Query{TenantID: "t", Date: monday, DurationMinutes: 30}); !errors.Is(err, boom) {
		t.Fatalf("expected holiday error, got %v", err)
	}

	f = NewFinder(&fakeCalendar{}, &fakeBookings{err: boom}, nil)
	if _, err := f.FindFreeSlots(context.Background(), Query{TenantID: "t", Date: monday, DurationMinutes: 30}); !errors.Is(err, boom) {
		t.Fatalf("expected bookings error, got %v", err)
	}
}
