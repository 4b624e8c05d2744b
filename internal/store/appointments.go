package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
)

// AppointmentStore is the persistence contract for appointment records.
// Reads outside a schedule section see committed state only.
type AppointmentStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	FindByOwner(ctx context.Context, ownerID string) ([]domain.Appointment, error)
	FindByPet(ctx context.Context, petID string) ([]domain.Appointment, error)
	FindByVeterinarian(ctx context.Context, vetID string, statuses ...domain.Status) ([]domain.Appointment, error)
	FindActiveInWindow(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error)
	FindOverdueConfirmed(ctx context.Context, before time.Time) ([]domain.Appointment, error)

	// InVetSchedule runs fn inside the serialization point for one
	// veterinarian's schedule. Writes made through the ScheduleTx are
	// applied only if fn returns nil. Concurrent calls for the same
	// veterinarian are mutually exclusive; different veterinarians
	// proceed independently. Returns ErrTimeout if the section cannot
	// be entered before ctx expires.
	InVetSchedule(ctx context.Context, vetID string, fn func(ctx context.Context, tx ScheduleTx) error) error
}

// ScheduleTx is the write surface available inside InVetSchedule.
type ScheduleTx interface {
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Appointment) error) (domain.Appointment, error)
	FindActiveInWindow(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error)
}
