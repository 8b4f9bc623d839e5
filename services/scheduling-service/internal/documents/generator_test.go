package documents

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
)

func completed() model.Appointment {
	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	actualStart := start.Add(5 * time.Minute)
	actualEnd := actualStart.Add(65 * time.Minute)
	return model.Appointment{
		ID:             "a1",
		TenantID:       "clinic one",
		PatientID:      "p1",
		ProfessionalID: "prof/7",
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		Status:         model.StatusCompleted,
		Notes:          "patient stable",
		ActualStart:    &actualStart,
		ActualEnd:      &actualEnd,
	}
}

func TestGenerateWritesSummary(t *testing.T) {
	base := t.TempDir()
	g := NewGenerator(base, WithClock(func() time.Time {
		return time.Date(2025, time.March, 10, 10, 30, 0, 0, time.UTC)
	}))

	path, err := g.Generate(context.Background(), completed())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := filepath.Join(base, "clinic_one", "visit-summaries", "0001", "visit_prof_7_20250310_0900.txt")
	if path != want {
		t.Fatalf("path = %s, want %s", path, want)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, s := range []string{"Appointment:   a1", "Duration:      1h 05min", "patient stable", "Supervisor:    -", "10/03/2025 09:00 - 10:00"} {
		if !strings.Contains(string(body), s) {
			t.Fatalf("summary missing %q:\n%s", s, body)
		}
	}
}

func TestGenerateDoesNotOverwrite(t *testing.T) {
	g := NewGenerator(t.TempDir())
	first, err := g.Generate(context.Background(), completed())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := g.Generate(context.Background(), completed())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first == second || !strings.HasSuffix(second, "_1.txt") {
		t.Fatalf("expected a suffixed second file, got %s and %s", first, second)
	}
}

func TestGenerateRollsFolders(t *testing.T) {
	base := t.TempDir()
	g := NewGenerator(base, WithFolderCapacity(2))
	var paths []string
	for i := 0; i < 5; i++ {
		p, err := g.Generate(context.Background(), completed())
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		paths = append(paths, filepath.Base(filepath.Dir(p)))
	}
	want := []string{"0001", "0001", "0002", "0002", "0003"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("folders = %v, want %v", paths, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		45 * time.Minute:            "45min",
		time.Hour:                   "1h 00min",
		90 * time.Minute:            "1h 30min",
		2*time.Hour + 5*time.Minute: "2h 05min",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
