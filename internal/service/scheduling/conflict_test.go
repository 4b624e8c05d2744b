package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
)

type windowFinderFunc func(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error)

func (f windowFinderFunc) FindActiveInWindow(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error) {
	return f(ctx, vetID, from, to)
}

func staticWindow(appts ...domain.Appointment) windowFinderFunc {
	return func(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error) {
		var out []domain.Appointment
		for _, a := range appts {
			if !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
				out = append(out, a)
			}
		}
		return out, nil
	}
}

func TestConflictCheckerBoundaries(t *testing.T) {
	base := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	existing := domain.Appointment{ID: uuid.New(), ScheduledAt: base, Status: domain.StatusConfirmed}
	checker := NewConflictChecker(30 * time.Minute)

	cases := []struct {
		name      string
		candidate time.Time
		want      bool
	}{
		{"same minute", base, true},
		{"one second later", base.Add(time.Second), true},
		{"29m59s later", base.Add(30*time.Minute - time.Second), true},
		{"exactly one slot later", base.Add(30 * time.Minute), false},
		{"29m59s earlier", base.Add(-(30*time.Minute - time.Second)), true},
		{"exactly one slot earlier", base.Add(-30 * time.Minute), false},
		{"far away", base.Add(3 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := checker.HasConflict(context.Background(), staticWindow(existing), "v1", tc.candidate, uuid.Nil)
			if err != nil {
				t.Fatalf("HasConflict error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("HasConflict(%v) = %v, want %v", tc.candidate, got, tc.want)
			}
		})
	}
}

func TestConflictCheckerExcludesSelf(t *testing.T) {
	base := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	self := domain.Appointment{ID: uuid.New(), ScheduledAt: base, Status: domain.StatusConfirmed}
	other := domain.Appointment{ID: uuid.New(), ScheduledAt: base.Add(10 * time.Minute), Status: domain.StatusPending}
	checker := NewConflictChecker(30 * time.Minute)

	got, err := checker.HasConflict(context.Background(), staticWindow(self), "v1", base, self.ID)
	if err != nil {
		t.Fatalf("HasConflict error: %v", err)
	}
	if got {
		t.Fatal("appointment conflicts with itself")
	}

	got, err = checker.HasConflict(context.Background(), staticWindow(self, other), "v1", base, self.ID)
	if err != nil {
		t.Fatalf("HasConflict error: %v", err)
	}
	if !got {
		t.Fatal("exclusion hid a genuine conflict")
	}
}

func TestConflictCheckerDefaultWidth(t *testing.T) {
	checker := NewConflictChecker(0)
	if checker.SlotWidth() != DefaultSlotWidth {
		t.Fatalf("slot width = %v, want %v", checker.SlotWidth(), DefaultSlotWidth)
	}
	checker = NewConflictChecker(-time.Minute)
	if checker.SlotWidth() != DefaultSlotWidth {
		t.Fatalf("slot width = %v, want %v", checker.SlotWidth(), DefaultSlotWidth)
	}
}

func TestConflictCheckerPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("window query failed")
	failing := windowFinderFunc(func(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error) {
		return nil, wantErr
	})

	_, err := NewConflictChecker(0).HasConflict(context.Background(), failing, "v1", time.Now(), uuid.Nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}
