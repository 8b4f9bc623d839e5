package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

const (
	SlotMinutes = 30
	MinDuration = 30
	MaxDuration = 150
)

var (
	DayOpen  = wallclock.Clock(7, 0)
	DayClose = wallclock.Clock(22, 0)
)

var ErrInvalidDuration = errors.New("invalid duration")

// ValidateDuration accepts 30, 60, 90, 120 and 150 minutes.
func ValidateDuration(minutes int) error {
	if minutes < MinDuration || minutes > MaxDuration || minutes%SlotMinutes != 0 {
		return fmt.Errorf("%w: %d minutes (must be a multiple of %d between %d and %d)",
			ErrInvalidDuration, minutes, SlotMinutes, MinDuration, MaxDuration)
	}
	return nil
}

// Grid returns every slot start of the day: 07:00, 07:30, ... 21:30.
func Grid() []wallclock.TimeOfDay {
	out := make([]wallclock.TimeOfDay, 0, int(DayClose-DayOpen)/SlotMinutes)
	for p := DayOpen; p < DayClose; p = p.Add(SlotMinutes) {
		out = append(out, p)
	}
	return out
}

type Interval struct {
	Start time.Time
	End   time.Time
}

// Occupied marks the grid points covered by busy intervals that start on day.
// Starts are snapped down to the grid so an appointment at 09:15 blocks 09:00.
// Intervals running past midnight occupy the rest of the day.
func Occupied(day wallclock.Date, busy []Interval) map[wallclock.TimeOfDay]bool {
	occ := map[wallclock.TimeOfDay]bool{}
	for _, b := range busy {
		if wallclock.DateOf(b.Start) != day || !b.End.After(b.Start) {
			continue
		}
		start := wallclock.TimeOfDayOf(b.Start)
		start -= start % SlotMinutes

		end := DayClose
		if wallclock.DateOf(b.End) == day {
			end = wallclock.TimeOfDayOf(b.End)
			if b.End.Second() != 0 || b.End.Nanosecond() != 0 {
				end++
			}
		}

		for p := start; p < end && p < DayClose; p = p.Add(SlotMinutes) {
			if p >= DayOpen {
				occ[p] = true
			}
		}
	}
	return occ
}

// FreeSlots returns, in ascending order, every grid start p such that the
// duration/30 consecutive points from p are free and p+duration ends by 22:00.
// duration must already be validated.
func FreeSlots(occupied map[wallclock.TimeOfDay]bool, durationMinutes int) []wallclock.TimeOfDay {
	blocks := durationMinutes / SlotMinutes
	slots := []wallclock.TimeOfDay{}
	for _, p := range Grid() {
		if p.Add(durationMinutes) > DayClose {
			break
		}
		free := true
		for i := 0; i < blocks; i++ {
			q := p.Add(i * SlotMinutes)
			if q >= DayClose || occupied[q] {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, p)
		}
	}
	return slots
}
