// Package wallclock holds the tenant-local civil time types used by the
// scheduling core. Instants are stored without an offset: a value produced by
// Strip has Location UTC and carries the wall-clock fields the clinic sees.
package wallclock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	hhmm       = "15:04"
	hhmmss     = "15:04:05"
)

var ErrInvalidTime = errors.New("invalid time")

// Strip discards the offset and the sub-second part of t and keeps its
// wall-clock fields. Stored instants have whole-second precision.
func Strip(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Now returns the current wall-clock time in loc.
func Now(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Strip(time.Now().In(loc))
}

// ParseDateTime accepts RFC 3339 with or without an offset and the short
// forms 2006-01-02T15:04 and "2006-01-02 15:04:05". The result is stripped.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Strip(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

// Date is a calendar day with no time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the wall-clock date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Midnight returns 00:00 of d as a stripped instant.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// At combines d with a time of day.
func (d Date) At(tod TimeOfDay) time.Time {
	return d.Midnight().Add(time.Duration(tod) * time.Minute)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Midnight().AddDate(0, 0, n))
}

// Weekday numbers days Monday=0 through Sunday=6.
func (d Date) Weekday() int {
	return (int(d.Midnight().Weekday()) + 6) % 7
}

func (d Date) IsSunday() bool {
	return d.Weekday() == 6
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay counts minutes since midnight.
type TimeOfDay int

func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayOf returns the wall-clock time of day of t, truncated to the minute.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return Clock(t.Hour(), t.Minute())
}

// ParseTimeOfDay accepts "15:04:05" and "15:04". Seconds are dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range []string{hhmmss, hhmm} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText writes "15:04:05", the form clients already parse as a time.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%02d:%02d:00", t.Hour(), t.Minute())), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
