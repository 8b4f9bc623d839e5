package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage/sqlite"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

var day = wallclock.NewDate(2025, time.March, 10)

func at(hour, minute int) time.Time {
	return day.At(wallclock.Clock(hour, minute))
}

type fakeDocs struct {
	mu    sync.Mutex
	calls []model.Appointment
	err   error
}

func (f *fakeDocs) Generate(_ context.Context, a model.Appointment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, a)
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/visit.txt", nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type harness struct {
	svc   *Service
	store *sqlite.Store
	docs  *fakeDocs
}

func newHarness(t *testing.T, cfg Config) harness {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if cfg.Now == nil {
		clock := &fixedClock{now: at(8, 0)}
		cfg.Now = clock.Now
	}
	docs := &fakeDocs{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return harness{svc: NewService(store, docs, logger, cfg), store: store, docs: docs}
}

func (h harness) create(t *testing.T, prof string, start, end time.Time) model.Appointment {
	t.Helper()
	a, err := h.svc.Create(context.Background(), CreateInput{
		TenantID:       "t1",
		PatientID:      "p1",
		ProfessionalID: prof,
		Start:          start,
		End:            end,
	})
	if err != nil {
		t.Fatalf("create %s %v-%v: %v", prof, start, end, err)
	}
	return a
}

func (h harness) eventTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	err := h.store.Claim(context.Background(), 100, func(recs []outbox.Record) ([]int64, error) {
		ids := make([]int64, 0, len(recs))
		for _, r := range recs {
			types = append(types, r.EventType)
			ids = append(ids, r.ID)
		}
		return ids, nil
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return types
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"touching end", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"touching start", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"partial", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(10, 30), true},
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"disjoint", at(9, 0), at(10, 0), at(13, 0), at(14, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Fatalf("overlap must be symmetric")
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to model.Status
		strict   bool
		want     bool
	}{
		{model.StatusScheduled, model.StatusStarted, true, true},
		{model.StatusScheduled, model.StatusCompleted, true, false},
		{model.StatusScheduled, model.StatusCompleted, false, true},
		{model.StatusStarted, model.StatusStarted, true, true},
		{model.StatusWaiting, model.StatusInProgress, true, true},
		{model.StatusInProgress, model.StatusCompleted, true, true},
		{model.StatusCompleted, model.StatusCancelled, true, false},
		{model.StatusCompleted, model.StatusCancelled, false, true},
		{model.StatusCompleted, model.StatusScheduled, true, false},
		{model.StatusCancelled, model.StatusScheduled, true, false},
		{model.StatusScheduled, model.Status("bogus"), false, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to, tc.strict); got != tc.want {
			t.Errorf("%s -> %s (strict=%v): got %v, want %v", tc.from, tc.to, tc.strict, got, tc.want)
		}
	}
	for _, s := range []model.Status{model.StatusScheduled, model.StatusStarted, model.StatusWaiting, model.StatusInProgress} {
		if !CanTransition(s, model.StatusCancelled, true) {
			t.Errorf("cancel must be allowed from %s", s)
		}
	}
}

func TestKeyedMutexForgetsReleasedKeys(t *testing.T) {
	k := newKeyedMutex()
	ctx := context.Background()
	unlockA, err := k.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	unlockB, err := k.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock b: %v", err)
	}
	if k.size() != 2 {
		t.Fatalf("expected 2 keys, got %d", k.size())
	}
	unlockA()
	unlockB()
	if k.size() != 0 {
		t.Fatalf("expected keys to be released, got %d", k.size())
	}
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	k := newKeyedMutex()
	unlock, err := k.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := k.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while the key is held, got %v", err)
	}
	if k.size() != 1 {
		t.Fatalf("a timed out waiter must drop its reference, got %d keys", k.size())
	}

	acquired := make(chan func())
	go func() {
		next, err := k.Lock(context.Background(), "a")
		if err != nil {
			t.Errorf("lock after release: %v", err)
			close(acquired)
			return
		}
		acquired <- next
	}()
	unlock()
	if next := <-acquired; next != nil {
		next()
	}
	if k.size() != 0 {
		t.Fatalf("expected keys to be released, got %d", k.size())
	}
}

func TestCreate_WaitsForCalendarLockWithinDeadline(t *testing.T) {
	h := newHarness(t, Config{})
	unlock, err := h.svc.locks.Lock(context.Background(), calendarKey("t1", "prof"))
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.svc.Create(ctx, CreateInput{TenantID: "t1", PatientID: "p1", ProfessionalID: "prof", Start: at(9, 0), End: at(10, 0)})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded behind a held calendar, got %v", err)
	}
}

func TestCreate_RejectsOverlapButAllowsTouching(t *testing.T) {
	h := newHarness(t, Config{StrictTransitions: true})
	ctx := context.Background()
	first := h.create(t, "prof", at(9, 0), at(10, 0))
	if first.Status != model.StatusScheduled || first.ID == "" {
		t.Fatalf("unexpected appointment %+v", first)
	}

	_, err := h.svc.Create(ctx, CreateInput{TenantID: "t1", PatientID: "p2", ProfessionalID: "prof", Start: at(9, 30), End: at(10, 30)})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected overlap, got %v", err)
	}
	var oe *OverlapError
	if !errors.As(err, &oe) || oe.Conflict.ID != first.ID {
		t.Fatalf("expected conflict to name %s, got %v", first.ID, err)
	}

	h.create(t, "prof", at(10, 0), at(11, 0))
	h.create(t, "prof", at(8, 0), at(9, 0))
	h.create(t, "other", at(9, 0), at(10, 0))
}

func TestCreate_CancelledBlocksUnlessActiveOnly(t *testing.T) {
	for _, activeOnly := range []bool{false, true} {
		h := newHarness(t, Config{OverlapActiveOnly: activeOnly})
		ctx := context.Background()
		a := h.create(t, "prof", at(9, 0), at(10, 0))
		if _, err := h.svc.Cancel(ctx, "t1", a.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		_, err := h.svc.Create(ctx, CreateInput{TenantID: "t1", PatientID: "p2", ProfessionalID: "prof", Start: at(9, 0), End: at(10, 0)})
		if activeOnly && err != nil {
			t.Fatalf("active-only guard should ignore cancelled bookings: %v", err)
		}
		if !activeOnly && !errors.Is(err, ErrOverlap) {
			t.Fatalf("default guard should block on cancelled bookings, got %v", err)
		}
	}
}

func TestReactivation_RunsGuard(t *testing.T) {
	h := newHarness(t, Config{OverlapActiveOnly: true})
	ctx := context.Background()
	a := h.create(t, "prof", at(10, 0), at(11, 0))
	if _, err := h.svc.Cancel(ctx, "t1", a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	b := h.create(t, "prof", at(10, 0), at(11, 0))

	scheduled := model.StatusScheduled
	_, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, Status: &scheduled})
	var oe *OverlapError
	if !errors.As(err, &oe) || oe.Conflict.ID != b.ID {
		t.Fatalf("expected reactivation to collide with %s, got %v", b.ID, err)
	}
	if _, err := h.svc.Start(ctx, "t1", a.ID); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected start of a cancelled booking to collide, got %v", err)
	}

	list, err := h.svc.List(ctx, model.AppointmentFilter{TenantID: "t1", ProfessionalID: "prof", Status: model.StatusScheduled})
	if err != nil || len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("expected only %s active, got %+v %v", b.ID, list, err)
	}
	stored, _ := h.svc.Get(ctx, "t1", a.ID)
	if stored.Status != model.StatusCancelled {
		t.Fatalf("rejected reactivation must not be stored, got %s", stored.Status)
	}

	if _, err := h.svc.Delete(ctx, "t1", b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, Status: &scheduled})
	if err != nil || got.Status != model.StatusScheduled {
		t.Fatalf("reactivation into a free slot: %+v %v", got, err)
	}
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	_, err := h.svc.Create(ctx, CreateInput{TenantID: "t1", ProfessionalID: "prof", Start: at(9, 0), End: at(10, 0)})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing patient, got %v", err)
	}
	_, err = h.svc.Create(ctx, CreateInput{TenantID: "t1", PatientID: "p", ProfessionalID: "prof", Start: at(10, 0), End: at(10, 0)})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	_, err = h.svc.Create(ctx, CreateInput{
		TenantID: "t1", PatientID: "p", ProfessionalID: "prof",
		Start: at(10, 0).Add(200 * time.Millisecond),
		End:   at(10, 0).Add(700 * time.Millisecond),
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("a range inside one second must be rejected, got %v", err)
	}
	_, err = h.svc.Create(ctx, CreateInput{TenantID: "t1", PatientID: "p", ProfessionalID: "prof", Start: at(9, 0), End: at(10, 0), Status: "archived"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for status, got %v", err)
	}
}

func TestCreate_NormalisesZonedInput(t *testing.T) {
	h := newHarness(t, Config{})
	zone := time.FixedZone("BRT", -3*3600)
	a := h.create(t, "prof", time.Date(2025, time.March, 10, 9, 0, 0, 0, zone), time.Date(2025, time.March, 10, 10, 0, 0, 0, zone))
	if !a.StartTime.Equal(at(9, 0)) || a.StartTime.Location() != time.UTC {
		t.Fatalf("expected wall-clock 09:00, got %v", a.StartTime)
	}

	// Offsets are discarded, so 09:30-03:00 collides with the stored 09:00.
	_, err := h.svc.Create(context.Background(), CreateInput{
		TenantID: "t1", PatientID: "p2", ProfessionalID: "prof",
		Start: time.Date(2025, time.March, 10, 9, 30, 0, 0, zone),
		End:   time.Date(2025, time.March, 10, 10, 30, 0, 0, zone),
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected overlap after normalisation, got %v", err)
	}
}

func TestCreate_ConcurrentOverlappingExactlyOneWins(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		overlaps int
		other    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(9, 0).Add(time.Duration(i%2) * 30 * time.Minute)
			_, err := h.svc.Create(ctx, CreateInput{
				TenantID: "t1", PatientID: "p", ProfessionalID: "prof",
				Start: start, End: start.Add(time.Hour),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrOverlap):
				overlaps++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if ok != 1 || overlaps != n-1 {
		t.Fatalf("expected exactly one winner, got ok=%d overlaps=%d", ok, overlaps)
	}
	list, err := h.svc.List(ctx, model.AppointmentFilter{TenantID: "t1", ProfessionalID: "prof"})
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one stored appointment, got %d (%v)", len(list), err)
	}
}

func TestUpdate_GuardExcludesSelf(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	a := h.create(t, "prof", at(9, 0), at(10, 0))
	h.create(t, "prof", at(11, 0), at(12, 0))

	end := at(10, 30)
	got, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, End: &end})
	if err != nil {
		t.Fatalf("extending into free time should pass: %v", err)
	}
	if !got.EndTime.Equal(end) {
		t.Fatalf("end not updated: %v", got.EndTime)
	}

	end = at(11, 30)
	if _, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, End: &end}); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected overlap, got %v", err)
	}

	start := at(12, 0)
	if _, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, Start: &start}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range when start passes end, got %v", err)
	}
}

func TestUpdate_ChangingProfessionalRunsGuard(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	a := h.create(t, "prof-a", at(9, 0), at(10, 0))
	h.create(t, "prof-b", at(9, 30), at(10, 30))

	b := "prof-b"
	if _, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, ProfessionalID: &b}); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected overlap on professional change, got %v", err)
	}
	c := "prof-c"
	got, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, ProfessionalID: &c})
	if err != nil || got.ProfessionalID != "prof-c" {
		t.Fatalf("move to free professional: %+v %v", got, err)
	}
}

func TestUpdate_DetailsOnlySkipsGuardAndEmitsUpdated(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	a := h.create(t, "prof", at(9, 0), at(10, 0))
	h.eventTypes(t)

	notes := "bring exams"
	got, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, Notes: &notes})
	if err != nil || got.Notes != notes {
		t.Fatalf("update notes: %+v %v", got, err)
	}
	types := h.eventTypes(t)
	if len(types) != 1 || types[0] != model.EventAppointmentUpdated {
		t.Fatalf("unexpected events %v", types)
	}

	if _, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: "missing", Notes: &notes}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLifecycle_StampsAndGeneratesSummary(t *testing.T) {
	h := newHarness(t, Config{StrictTransitions: true})
	ctx := context.Background()
	a := h.create(t, "prof", at(9, 0), at(10, 0))

	started, err := h.svc.Start(ctx, "t1", a.ID)
	if err != nil || started.ActualStart == nil || started.Status != model.StatusStarted {
		t.Fatalf("start: %+v %v", started, err)
	}
	again, err := h.svc.Start(ctx, "t1", a.ID)
	if err != nil || !again.ActualStart.After(*started.ActualStart) {
		t.Fatalf("second start should re-stamp: %+v %v", again, err)
	}
	if _, err := h.svc.Wait(ctx, "t1", a.ID); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if _, err := h.svc.BeginService(ctx, "t1", a.ID); err != nil {
		t.Fatalf("begin service: %v", err)
	}

	notes := "all good"
	done, err := h.svc.Complete(ctx, "t1", a.ID, &notes)
	if err != nil || done.ActualEnd == nil || done.Notes != notes || done.Status != model.StatusCompleted {
		t.Fatalf("complete: %+v %v", done, err)
	}
	if len(h.docs.calls) != 1 || h.docs.calls[0].ID != a.ID {
		t.Fatalf("expected one summary for %s, got %+v", a.ID, h.docs.calls)
	}

	stored, _ := h.svc.Get(ctx, "t1", a.ID)
	if stored.Status != model.StatusCompleted || stored.ActualStart == nil || stored.ActualEnd == nil {
		t.Fatalf("lifecycle not persisted: %+v", stored)
	}
}

func TestLifecycle_SummaryFailureKeepsCompletion(t *testing.T) {
	h := newHarness(t, Config{})
	h.docs.err = errors.New("disk full")
	ctx := context.Background()
	a := h.create(t, "prof", at(9, 0), at(10, 0))

	if _, err := h.svc.Complete(ctx, "t1", a.ID, nil); err != nil {
		t.Fatalf("complete should succeed despite summary failure: %v", err)
	}
	stored, _ := h.svc.Get(ctx, "t1", a.ID)
	if stored.Status != model.StatusCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}
}

func TestLifecycle_StrictRejectsSkippingSteps(t *testing.T) {
	h := newHarness(t, Config{StrictTransitions: true})
	ctx := context.Background()
	a := h.create(t, "prof", at(9, 0), at(10, 0))

	_, err := h.svc.Complete(ctx, "t1", a.ID, nil)
	var te *TransitionError
	if !errors.As(err, &te) || te.From != model.StatusScheduled || te.To != model.StatusCompleted {
		t.Fatalf("expected transition error, got %v", err)
	}
	if _, err := h.svc.Cancel(ctx, "t1", a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := h.svc.Start(ctx, "t1", a.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("cancelled appointments cannot restart, got %v", err)
	}
	if _, err := h.svc.Start(ctx, "t1", "missing"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLifecycle_CompletedIsTerminal(t *testing.T) {
	h := newHarness(t, Config{StrictTransitions: true})
	ctx := context.Background()
	a := h.create(t, "prof", at(9, 0), at(10, 0))
	for _, step := range []func(context.Context, string, string) (model.Appointment, error){h.svc.Start, h.svc.BeginService} {
		if _, err := step(ctx, "t1", a.ID); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if _, err := h.svc.Complete(ctx, "t1", a.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := h.svc.Cancel(ctx, "t1", a.ID)
	var te *TransitionError
	if !errors.As(err, &te) || te.From != model.StatusCompleted || te.To != model.StatusCancelled {
		t.Fatalf("expected cancel after complete to be rejected, got %v", err)
	}
	cancelled := model.StatusCancelled
	if _, err := h.svc.Update(ctx, UpdateInput{TenantID: "t1", ID: a.ID, Status: &cancelled}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected update to cancelled to be rejected, got %v", err)
	}
	stored, _ := h.svc.Get(ctx, "t1", a.ID)
	if stored.Status != model.StatusCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}
}

func TestDelete_ReturnsRowAndEmitsEvents(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	a := h.create(t, "prof", at(9, 0), at(10, 0))

	deleted, err := h.svc.Delete(ctx, "t1", a.ID)
	if err != nil || deleted.ID != a.ID {
		t.Fatalf("delete: %+v %v", deleted, err)
	}
	if _, err := h.svc.Get(ctx, "t1", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected hard delete, got %v", err)
	}
	if _, err := h.svc.Delete(ctx, "t1", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	types := h.eventTypes(t)
	want := []string{model.EventAppointmentScheduled, model.EventAppointmentDeleted}
	if len(types) != len(want) || types[0] != want[0] || types[1] != want[1] {
		t.Fatalf("events = %v, want %v", types, want)
	}

	// The slot is free again after a hard delete.
	h.create(t, "prof", at(9, 0), at(10, 0))
}

func TestCheckOverlap(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	a := h.create(t, "prof", at(9, 0), at(10, 0))

	conflict, found, err := h.svc.CheckOverlap(ctx, "t1", "prof", at(9, 30), at(10, 30), "")
	if err != nil || !found || conflict.ID != a.ID {
		t.Fatalf("expected conflict with %s: %+v %v %v", a.ID, conflict, found, err)
	}
	_, found, err = h.svc.CheckOverlap(ctx, "t1", "prof", at(9, 0), at(10, 0), a.ID)
	if err != nil || found {
		t.Fatalf("own id must be excluded: %v %v", found, err)
	}
	if _, _, err := h.svc.CheckOverlap(ctx, "t1", "prof", at(10, 0), at(9, 0), ""); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestListByPatient(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	h.create(t, "prof", at(9, 0), at(10, 0))
	if _, err := h.svc.Create(ctx, CreateInput{TenantID: "t1", PatientID: "p2", ProfessionalID: "prof", Start: at(11, 0), End: at(12, 0)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := h.svc.ListByPatient(ctx, "t1", "p2", 0, 0)
	if err != nil || len(list) != 1 || list[0].PatientID != "p2" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
}
