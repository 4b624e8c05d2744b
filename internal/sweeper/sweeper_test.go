package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
	"petwiz/internal/notify"
	"petwiz/internal/service/scheduling"
	"petwiz/internal/store"
	"petwiz/internal/store/memory"
)

type fakeFinder struct {
	findFn func(ctx context.Context, before time.Time) ([]domain.Appointment, error)
}

func (f *fakeFinder) FindOverdueConfirmed(ctx context.Context, before time.Time) ([]domain.Appointment, error) {
	return f.findFn(ctx, before)
}

type fakeCompleter struct {
	completeFn func(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error)
	calls      []uuid.UUID
}

func (f *fakeCompleter) Complete(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error) {
	f.calls = append(f.calls, id)
	return f.completeFn(ctx, id, outcome)
}

type fakeLease struct {
	held     bool
	err      error
	acquires int
	releases int
}

func (l *fakeLease) Acquire(ctx context.Context) (bool, error) {
	l.acquires++
	return l.held, l.err
}

func (l *fakeLease) Release(ctx context.Context) {
	l.releases++
}

func seedAppointment(t *testing.T, st *memory.Store, vetID string, at time.Time, status domain.Status) domain.Appointment {
	t.Helper()
	var appt domain.Appointment
	err := st.InVetSchedule(context.Background(), vetID, func(ctx context.Context, tx store.ScheduleTx) error {
		var err error
		appt, err = tx.Create(ctx, domain.Appointment{
			OwnerID:        "owner",
			PetID:          "pet",
			VeterinarianID: vetID,
			ScheduledAt:    at,
			Status:         status,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return appt
}

func newSweeper(st *memory.Store, now time.Time) *Sweeper {
	engine := scheduling.NewEngine(st, scheduling.NewConflictChecker(0), notify.NewLogNotifier(nil), nil)
	s := New(st, engine, Options{Grace: 2 * time.Hour})
	s.now = func() time.Time { return now }
	return s
}

func TestSweepCompletesOverdueConfirmed(t *testing.T) {
	st := memory.NewStore()
	now := time.Date(2026, 9, 14, 18, 0, 0, 0, time.UTC)

	overdue := seedAppointment(t, st, "v1", now.Add(-3*time.Hour), domain.StatusConfirmed)
	recent := seedAppointment(t, st, "v1", now.Add(-time.Hour), domain.StatusConfirmed)
	pending := seedAppointment(t, st, "v2", now.Add(-5*time.Hour), domain.StatusPending)

	s := newSweeper(st, now)
	completed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce error: %v", err)
	}
	if completed != 1 {
		t.Fatalf("completed = %d, want 1", completed)
	}

	got, _ := st.Get(context.Background(), overdue.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("overdue status = %s, want COMPLETED", got.Status)
	}
	if got.Outcome != Outcome {
		t.Fatalf("outcome = %q, want %q", got.Outcome, Outcome)
	}

	got, _ = st.Get(context.Background(), recent.ID)
	if got.Status != domain.StatusConfirmed {
		t.Fatalf("within-grace status = %s, want CONFIRMED", got.Status)
	}

	got, _ = st.Get(context.Background(), pending.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("pending status = %s, want PENDING untouched", got.Status)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	st := memory.NewStore()
	now := time.Date(2026, 9, 14, 18, 0, 0, 0, time.UTC)
	seedAppointment(t, st, "v1", now.Add(-4*time.Hour), domain.StatusConfirmed)
	seedAppointment(t, st, "v1", now.Add(-3*time.Hour), domain.StatusConfirmed)

	s := newSweeper(st, now)

	completed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("first SweepOnce error: %v", err)
	}
	if completed != 2 {
		t.Fatalf("first run completed = %d, want 2", completed)
	}

	completed, err = s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("second SweepOnce error: %v", err)
	}
	if completed != 0 {
		t.Fatalf("second run completed = %d, want 0", completed)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	finder := &fakeFinder{
		findFn: func(ctx context.Context, before time.Time) ([]domain.Appointment, error) {
			out := make([]domain.Appointment, len(ids))
			for i, id := range ids {
				out[i] = domain.Appointment{ID: id, Status: domain.StatusConfirmed}
			}
			return out, nil
		},
	}
	completer := &fakeCompleter{
		completeFn: func(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error) {
			if id == ids[1] {
				return domain.Appointment{}, errors.New("write failed")
			}
			return domain.Appointment{ID: id, Status: domain.StatusCompleted}, nil
		},
	}

	s := New(finder, completer, Options{})
	completed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce error: %v", err)
	}
	if completed != 2 {
		t.Fatalf("completed = %d, want 2", completed)
	}
	if len(completer.calls) != 3 {
		t.Fatalf("complete calls = %d, want 3", len(completer.calls))
	}
}

func TestSweepSkipsRecordsAdvancedByOthers(t *testing.T) {
	finder := &fakeFinder{
		findFn: func(ctx context.Context, before time.Time) ([]domain.Appointment, error) {
			return []domain.Appointment{{ID: uuid.New(), Status: domain.StatusConfirmed}}, nil
		},
	}
	completer := &fakeCompleter{
		completeFn: func(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error) {
			return domain.Appointment{}, &scheduling.InvalidTransitionError{From: domain.StatusCancelled, Op: "complete"}
		},
	}

	s := New(finder, completer, Options{})
	completed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce error: %v", err)
	}
	if completed != 0 {
		t.Fatalf("completed = %d, want 0", completed)
	}
}

func TestSweepSurfacesFinderError(t *testing.T) {
	wantErr := errors.New("scan failed")
	finder := &fakeFinder{
		findFn: func(ctx context.Context, before time.Time) ([]domain.Appointment, error) {
			return nil, wantErr
		},
	}
	completer := &fakeCompleter{
		completeFn: func(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error) {
			t.Fatal("Complete called after finder error")
			return domain.Appointment{}, nil
		},
	}

	s := New(finder, completer, Options{})
	if _, err := s.SweepOnce(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestSweepUsesGraceCutoff(t *testing.T) {
	now := time.Date(2026, 9, 14, 18, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	finder := &fakeFinder{
		findFn: func(ctx context.Context, before time.Time) ([]domain.Appointment, error) {
			gotCutoff = before
			return nil, nil
		},
	}
	completer := &fakeCompleter{
		completeFn: func(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error) {
			return domain.Appointment{}, nil
		},
	}

	s := New(finder, completer, Options{Grace: 90 * time.Minute})
	s.now = func() time.Time { return now }

	if _, err := s.SweepOnce(context.Background()); err != nil {
		t.Fatalf("SweepOnce error: %v", err)
	}
	if want := now.Add(-90 * time.Minute); !gotCutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", gotCutoff, want)
	}
}

func TestRunOnceSkipsWhenLeaseHeldElsewhere(t *testing.T) {
	finder := &fakeFinder{
		findFn: func(ctx context.Context, before time.Time) ([]domain.Appointment, error) {
			t.Fatal("sweep ran without the lease")
			return nil, nil
		},
	}
	completer := &fakeCompleter{
		completeFn: func(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error) {
			return domain.Appointment{}, nil
		},
	}
	lease := &fakeLease{held: false}

	s := New(finder, completer, Options{Lease: lease})
	s.runOnce(context.Background())

	if lease.acquires != 1 {
		t.Fatalf("acquires = %d, want 1", lease.acquires)
	}
	if lease.releases != 0 {
		t.Fatalf("releases = %d, want 0", lease.releases)
	}
}

func TestRunOnceReleasesLeaseAfterSweep(t *testing.T) {
	finder := &fakeFinder{
		findFn: func(ctx context.Context, before time.Time) ([]domain.Appointment, error) {
			return nil, nil
		},
	}
	completer := &fakeCompleter{
		completeFn: func(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error) {
			return domain.Appointment{}, nil
		},
	}
	lease := &fakeLease{held: true}

	s := New(finder, completer, Options{Lease: lease})
	s.runOnce(context.Background())

	if lease.acquires != 1 || lease.releases != 1 {
		t.Fatalf("acquires=%d releases=%d, want 1/1", lease.acquires, lease.releases)
	}
}
