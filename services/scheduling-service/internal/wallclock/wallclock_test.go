package wallclock

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestStripKeepsWallClockFields(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	in := time.Date(2025, 3, 10, 9, 30, 0, 0, loc)

	got := Strip(in)
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Hour() != 9 || got.Minute() != 30 || got.Day() != 10 {
		t.Fatalf("wall clock changed: %v", got)
	}
}

func TestStripDropsSubSecondPrecision(t *testing.T) {
	in := time.Date(2025, 3, 10, 10, 0, 0, 700_000_000, time.UTC)
	got := Strip(in)
	if got.Nanosecond() != 0 || got.Second() != 0 || got.Minute() != 0 {
		t.Fatalf("expected whole seconds, got %v", got)
	}
	if !Strip(in.Add(-500 * time.Millisecond)).Equal(got) {
		t.Fatalf("instants within one second must strip to the same value")
	}
}

func TestParseTimeOfDayForms(t *testing.T) {
	for _, in := range []string{"07:30", "07:30:00", " 07:30:45 "} {
		got, err := ParseTimeOfDay(in)
		if err != nil || got != Clock(7, 30) {
			t.Errorf("ParseTimeOfDay(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTimeOfDay("7h30"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected invalid time, got %v", err)
	}
}

func TestParseDateTimeForms(t *testing.T) {
	want := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"2025-03-10T09:30:00-03:00",
		"2025-03-10T09:30:00Z",
		"2025-03-10T09:30:00",
		"2025-03-10T09:30",
		"2025-03-10 09:30",
	} {
		got, err := ParseDateTime(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseDateTime("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWeekdayMondayZero(t *testing.T) {
	cases := map[string]int{
		"2025-03-10": 0, // Monday
		"2025-03-15": 5,
		"2025-03-16": 6,
	}
	for in, want := range cases {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("parse %s: %v", in, err)
		}
		if d.Weekday() != want {
			t.Fatalf("%s: expected %d, got %d", in, want, d.Weekday())
		}
	}
	if !NewDate(2025, 3, 16).IsSunday() {
		t.Fatalf("expected Sunday")
	}
}

func TestDateAndTimeOfDayJSON(t *testing.T) {
	type payload struct {
		Date Date        `json:"date"`
		At   []TimeOfDay `json:"at"`
	}
	in := payload{Date: NewDate(2025, 1, 2), At: []TimeOfDay{Clock(7, 0), Clock(21, 30)}}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"date":"2025-01-02","at":["07:00:00","21:30:00"]}` {
		t.Fatalf("unexpected json %s", raw)
	}
	var out payload
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Date != in.Date || out.At[1] != in.At[1] {
		t.Fatalf("round trip mismatch %+v", out)
	}
}

func TestDateAt(t *testing.T) {
	d := NewDate(2025, 12, 31)
	got := d.At(Clock(21, 30))
	if got.Hour() != 21 || got.Minute() != 30 || DateOf(got) != d {
		t.Fatalf("unexpected instant %v", got)
	}
	if d.AddDays(1) != NewDate(2026, 1, 1) {
		t.Fatalf("AddDays across year failed")
	}
}
