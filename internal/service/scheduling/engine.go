package scheduling

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
	"petwiz/internal/notify"
	"petwiz/internal/store"
)

// Engine owns the appointment state machine. Every operation that
// claims or releases a (veterinarian, slot) pairing runs inside the
// store's per-veterinarian schedule section, so the conflict check and
// the resulting write commit as one atomic unit. The Engine is the only
// component that writes appointment status; the sweeper completes
// overdue appointments through the same Complete entry point callers use.
type Engine struct {
	store    store.AppointmentStore
	conflict ConflictChecker
	notifier notify.Notifier
	log      *slog.Logger
}

func NewEngine(st store.AppointmentStore, conflict ConflictChecker, notifier notify.Notifier, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    st,
		conflict: conflict,
		notifier: notifier,
		log:      log.With(slog.String("component", "scheduling.engine")),
	}
}

type BookInput struct {
	OwnerID        string
	PetID          string
	VeterinarianID string
	ScheduledAt    time.Time
	Type           string
	Reason         string
}

// Book creates a PENDING appointment, failing with store.ErrConflict if
// an active appointment already occupies the slot.
func (e *Engine) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	at := in.ScheduledAt.UTC()

	var out domain.Appointment
	err := e.store.InVetSchedule(ctx, in.VeterinarianID, func(ctx context.Context, tx store.ScheduleTx) error {
		taken, err := e.conflict.HasConflict(ctx, tx, in.VeterinarianID, at, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrConflict
		}

		created, err := tx.Create(ctx, domain.Appointment{
			OwnerID:        in.OwnerID,
			PetID:          in.PetID,
			VeterinarianID: in.VeterinarianID,
			ScheduledAt:    at,
			Type:           in.Type,
			Reason:         in.Reason,
			Status:         domain.StatusPending,
		})
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Confirm moves a PENDING appointment to CONFIRMED. The slot is
// re-validated: of two pending requests for the same slot only the
// first confirmation succeeds.
func (e *Engine) Confirm(ctx context.Context, id uuid.UUID, vetID, notes string) (domain.Appointment, error) {
	appt, err := e.store.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = e.store.InVetSchedule(ctx, appt.VeterinarianID, func(ctx context.Context, tx store.ScheduleTx) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.VeterinarianID != vetID {
			return ErrForbidden
		}
		if current.Status != domain.StatusPending {
			return &InvalidTransitionError{From: current.Status, Op: "confirm"}
		}

		taken, err := e.conflict.HasConflict(ctx, tx, current.VeterinarianID, current.ScheduledAt, id)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrConflict
		}

		updated, err := tx.Update(ctx, id, func(a *domain.Appointment) error {
			a.Status = domain.StatusConfirmed
			if notes != "" {
				a.VetNotes = notes
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	e.notify(ctx, out, notify.EventConfirmed)
	return out, nil
}

// Reject moves a PENDING appointment to REJECTED. The caller validates
// that reason is non-blank before invoking the engine.
func (e *Engine) Reject(ctx context.Context, id uuid.UUID, vetID, reason string) (domain.Appointment, error) {
	appt, err := e.store.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = e.store.InVetSchedule(ctx, appt.VeterinarianID, func(ctx context.Context, tx store.ScheduleTx) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.VeterinarianID != vetID {
			return ErrForbidden
		}
		if current.Status != domain.StatusPending {
			return &InvalidTransitionError{From: current.Status, Op: "reject"}
		}

		updated, err := tx.Update(ctx, id, func(a *domain.Appointment) error {
			a.Status = domain.StatusRejected
			a.RejectionReason = reason
			return nil
		})
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	e.notify(ctx, out, notify.EventRejected)
	return out, nil
}

// Cancel releases an active appointment. The requester must be the
// owner or the assigned veterinarian, matching the supplied role.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID, requesterID string, role domain.Role) (domain.Appointment, error) {
	appt, err := e.store.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = e.store.InVetSchedule(ctx, appt.VeterinarianID, func(ctx context.Context, tx store.ScheduleTx) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		switch role {
		case domain.RoleOwner:
			if current.OwnerID != requesterID {
				return ErrForbidden
			}
		case domain.RoleVeterinarian:
			if current.VeterinarianID != requesterID {
				return ErrForbidden
			}
		default:
			return ErrForbidden
		}
		if !current.Status.Active() {
			return &InvalidTransitionError{From: current.Status, Op: "cancel"}
		}

		updated, err := tx.Update(ctx, id, func(a *domain.Appointment) error {
			a.Status = domain.StatusCancelled
			return nil
		})
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	e.notify(ctx, out, notify.EventCancelled)
	return out, nil
}

// Complete moves a CONFIRMED appointment to COMPLETED. Invoked by a
// veterinarian through the service facade or by the completion sweeper.
func (e *Engine) Complete(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error) {
	appt, err := e.store.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = e.store.InVetSchedule(ctx, appt.VeterinarianID, func(ctx context.Context, tx store.ScheduleTx) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusConfirmed {
			return &InvalidTransitionError{From: current.Status, Op: "complete"}
		}

		updated, err := tx.Update(ctx, id, func(a *domain.Appointment) error {
			a.Status = domain.StatusCompleted
			a.Outcome = outcome
			return nil
		})
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	e.notify(ctx, out, notify.EventCompleted)
	return out, nil
}

// RescheduleResult reports both halves of a reschedule: the original
// record, now RESCHEDULED, and its PENDING successor.
type RescheduleResult struct {
	Original  domain.Appointment
	Successor domain.Appointment
}

// Reschedule terminates an active appointment and creates a PENDING
// successor at newAt with the same owner, pet and veterinarian. Both
// writes commit in one schedule section; a conflict at newAt leaves the
// original untouched.
func (e *Engine) Reschedule(ctx context.Context, id uuid.UUID, newAt time.Time, requesterID string) (RescheduleResult, error) {
	appt, err := e.store.Get(ctx, id)
	if err != nil {
		return RescheduleResult{}, err
	}
	newAt = newAt.UTC()

	var out RescheduleResult
	err = e.store.InVetSchedule(ctx, appt.VeterinarianID, func(ctx context.Context, tx store.ScheduleTx) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.OwnerID != requesterID && current.VeterinarianID != requesterID {
			return ErrForbidden
		}
		if !current.Status.Active() {
			return &InvalidTransitionError{From: current.Status, Op: "reschedule"}
		}

		taken, err := e.conflict.HasConflict(ctx, tx, current.VeterinarianID, newAt, id)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrConflict
		}

		original, err := tx.Update(ctx, id, func(a *domain.Appointment) error {
			a.Status = domain.StatusRescheduled
			return nil
		})
		if err != nil {
			return err
		}

		originalID := original.ID
		successor, err := tx.Create(ctx, domain.Appointment{
			OwnerID:               original.OwnerID,
			PetID:                 original.PetID,
			VeterinarianID:        original.VeterinarianID,
			ScheduledAt:           newAt,
			Type:                  original.Type,
			Reason:                original.Reason,
			Status:                domain.StatusPending,
			OriginalAppointmentID: &originalID,
		})
		if err != nil {
			return err
		}

		out = RescheduleResult{Original: original, Successor: successor}
		return nil
	})
	if err != nil {
		return RescheduleResult{}, err
	}

	e.notify(ctx, out.Original, notify.EventRescheduled)
	return out, nil
}

// notify fires the transition callback after commit. Delivery failures
// are operational, not request failures; they are logged and dropped.
func (e *Engine) notify(ctx context.Context, appt domain.Appointment, event notify.Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, appt, event); err != nil {
		e.log.Warn("notify failed",
			slog.Any("err", err),
			slog.String("event", string(event)),
			slog.String("appointment_id", appt.ID.String()),
		)
	}
}
