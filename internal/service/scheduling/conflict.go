package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
)

// DefaultSlotWidth is the implicit length of an appointment slot used
// for overlap detection when none is configured.
const DefaultSlotWidth = 30 * time.Minute

type activeWindowFinder interface {
	FindActiveInWindow(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error)
}

// ConflictChecker decides whether a candidate time collides with an
// active appointment for the same veterinarian. Two times conflict when
// they are less than one slot width apart; exactly one slot width apart
// is a valid back-to-back booking.
//
// The decision is only meaningful inside the store's per-veterinarian
// schedule section; callers must pass the section's ScheduleTx, never a
// bare store read followed by a separate write.
type ConflictChecker struct {
	slotWidth time.Duration
}

func NewConflictChecker(slotWidth time.Duration) ConflictChecker {
	if slotWidth <= 0 {
		slotWidth = DefaultSlotWidth
	}
	return ConflictChecker{slotWidth: slotWidth}
}

func (c ConflictChecker) SlotWidth() time.Duration {
	return c.slotWidth
}

// HasConflict reports whether an active appointment for vetID occupies
// the slot around candidate. The appointment identified by excludeID is
// ignored, so a record can be re-validated against everyone but itself.
func (c ConflictChecker) HasConflict(ctx context.Context, src activeWindowFinder, vetID string, candidate time.Time, excludeID uuid.UUID) (bool, error) {
	candidate = candidate.UTC()
	active, err := src.FindActiveInWindow(ctx, vetID, candidate.Add(-c.slotWidth), candidate.Add(c.slotWidth))
	if err != nil {
		return false, err
	}
	for _, a := range active {
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		gap := a.ScheduledAt.Sub(candidate)
		if gap < 0 {
			gap = -gap
		}
		if gap < c.slotWidth {
			return true, nil
		}
	}
	return false, nil
}
