package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending     Status = "PENDING"
	StatusConfirmed   Status = "CONFIRMED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusRejected    Status = "REJECTED"
	StatusRescheduled Status = "RESCHEDULED"
)

// Active reports whether the status occupies the veterinarian's time slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected, StatusRescheduled:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusRejected, StatusRescheduled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusRescheduled},
}

// CanTransition reports whether from -> to is an edge of the appointment
// state machine. Terminal statuses have no outgoing edges.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleOwner        Role = "OWNER"
	RoleVeterinarian Role = "VETERINARIAN"
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	OwnerID         string    `bun:"owner_id,notnull"`
	PetID           string    `bun:"pet_id,notnull"`
	VeterinarianID  string    `bun:"veterinarian_id,notnull"`
	ScheduledAt     time.Time `bun:"scheduled_at,notnull"`
	Type            string    `bun:"type"`
	Reason          string    `bun:"reason"`
	Status          Status    `bun:"status,notnull"`
	VetNotes        string    `bun:"vet_notes"`
	RejectionReason string    `bun:"rejection_reason"`
	Outcome         string    `bun:"outcome"`

	// OriginalAppointmentID is set only on an appointment created by
	// rescheduling another one; the referenced record is RESCHEDULED.
	OriginalAppointmentID *uuid.UUID `bun:"original_appointment_id,type:uuid"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
