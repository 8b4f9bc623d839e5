// Package documents writes visit summaries of completed appointments.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"text/template"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
)

// DefaultFolderCapacity is how many summaries a numbered folder holds before
// the next one is opened.
const DefaultFolderCapacity = 400

var summaryTemplate = template.Must(template.New("visit").Parse(`VISIT SUMMARY
=============

Tenant:        {{.TenantID}}
Appointment:   {{.ID}}
Patient:       {{.PatientID}}
Professional:  {{.ProfessionalID}}
Supervisor:    {{or .SupervisorID "-"}}
Service:       {{or .ServiceID "-"}}
Treatment:     {{or .TreatmentID "-"}}
Care type:     {{or .CareType "-"}}

Scheduled:     {{.Scheduled}}
Actual start:  {{.ActualStart}}
Actual end:    {{.ActualEnd}}
Duration:      {{.Duration}}

Notes:
{{or .Notes "-"}}

Generated at {{.GeneratedAt}}
`))

type summary struct {
	model.Appointment
	Scheduled   string
	ActualStart string
	ActualEnd   string
	Duration    string
	GeneratedAt string
}

type Generator struct {
	baseDir  string
	capacity int
	now      func() time.Time

	mu sync.Mutex
}

type Option func(*Generator)

func WithFolderCapacity(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.capacity = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(baseDir string, opts ...Option) *Generator {
	g := &Generator{baseDir: baseDir, capacity: DefaultFolderCapacity, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders appt and returns the path of the written file:
// <base>/<tenant>/visit-summaries/<NNNN>/visit_<professional>_<YYYYMMDD_HHMM>.txt
func (g *Generator) Generate(ctx context.Context, appt model.Appointment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, newSummary(appt, g.now())); err != nil {
		return "", fmt.Errorf("render visit summary: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	root := filepath.Join(g.baseDir, safeSegment(appt.TenantID), "visit-summaries")
	dir, err := nextFolder(root, g.capacity)
	if err != nil {
		return "", err
	}
	base := fmt.Sprintf("visit_%s_%s", safeSegment(appt.ProfessionalID), appt.StartTime.Format("20060102_1504"))
	return writeUnique(dir, base, ".txt", buf.Bytes())
}

func newSummary(a model.Appointment, now time.Time) summary {
	s := summary{
		Appointment: a,
		Scheduled:   a.StartTime.Format("02/01/2006 15:04") + " - " + a.EndTime.Format("15:04"),
		ActualStart: "-",
		ActualEnd:   "-",
		Duration:    "-",
		GeneratedAt: now.Format("02/01/2006 15:04:05"),
	}
	if a.ActualStart != nil {
		s.ActualStart = a.ActualStart.Format("02/01/2006 15:04")
	}
	if a.ActualEnd != nil {
		s.ActualEnd = a.ActualEnd.Format("02/01/2006 15:04")
	}
	if a.ActualStart != nil && a.ActualEnd != nil && a.ActualEnd.After(*a.ActualStart) {
		s.Duration = FormatDuration(a.ActualEnd.Sub(*a.ActualStart))
	}
	return s
}

// FormatDuration renders d as "1h 05min", or "45min" under an hour.
func FormatDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dmin", minutes)
	}
	return fmt.Sprintf("%dh %02dmin", minutes/60, minutes%60)
}

// nextFolder returns the first numbered folder under root with room left,
// creating it when needed.
func nextFolder(root string, capacity int) (string, error) {
	for i := 1; ; i++ {
		dir := filepath.Join(root, fmt.Sprintf("%04d", i))
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create summary folder: %w", err)
			}
			return dir, nil
		}
		if err != nil {
			return "", fmt.Errorf("read summary folder: %w", err)
		}
		if len(entries) < capacity {
			return dir, nil
		}
	}
}

func writeUnique(dir, base, ext string, body []byte) (string, error) {
	for n := 0; ; n++ {
		name := base + ext
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create visit summary: %w", err)
		}
		if _, err := f.Write(body); err != nil {
			f.Close()
			return "", fmt.Errorf("write visit summary: %w", err)
		}
		return path, f.Close()
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func safeSegment(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	if s == "" {
		return "_"
	}
	return s
}
