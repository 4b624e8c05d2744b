// Package memory provides an in-memory AppointmentStore. It backs unit
// tests and small single-process deployments; the postgres store is the
// durable implementation of the same contract.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
	"petwiz/internal/store"
)

type Store struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]domain.Appointment

	vetMu    sync.Mutex
	vetLocks map[string]chan struct{}
}

func NewStore() *Store {
	return &Store{
		appts:    make(map[uuid.UUID]domain.Appointment),
		vetLocks: make(map[string]chan struct{}),
	}
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appts[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return appt, nil
}

func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]domain.Appointment, error) {
	return s.filter(func(a domain.Appointment) bool {
		return a.OwnerID == ownerID
	}), nil
}

func (s *Store) FindByPet(ctx context.Context, petID string) ([]domain.Appointment, error) {
	return s.filter(func(a domain.Appointment) bool {
		return a.PetID == petID
	}), nil
}

func (s *Store) FindByVeterinarian(ctx context.Context, vetID string, statuses ...domain.Status) ([]domain.Appointment, error) {
	return s.filter(func(a domain.Appointment) bool {
		if a.VeterinarianID != vetID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, st := range statuses {
			if a.Status == st {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) FindActiveInWindow(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error) {
	return s.filter(func(a domain.Appointment) bool {
		return activeInWindow(a, vetID, from, to)
	}), nil
}

func (s *Store) FindOverdueConfirmed(ctx context.Context, before time.Time) ([]domain.Appointment, error) {
	return s.filter(func(a domain.Appointment) bool {
		return a.Status == domain.StatusConfirmed && a.ScheduledAt.Before(before)
	}), nil
}

func (s *Store) filter(keep func(domain.Appointment) bool) []domain.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Appointment
	for _, a := range s.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}

func activeInWindow(a domain.Appointment, vetID string, from, to time.Time) bool {
	if a.VeterinarianID != vetID || !a.Status.Active() {
		return false
	}
	return !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to)
}

func (s *Store) InVetSchedule(ctx context.Context, vetID string, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	lock := s.vetLock(vetID)

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return store.ErrTimeout
	}
	defer func() { <-lock }()

	tx := &scheduleTx{store: s, staged: make(map[uuid.UUID]domain.Appointment)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, appt := range tx.staged {
		s.appts[id] = appt
	}
	return nil
}

func (s *Store) vetLock(vetID string) chan struct{} {
	s.vetMu.Lock()
	defer s.vetMu.Unlock()
	lock, ok := s.vetLocks[vetID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.vetLocks[vetID] = lock
	}
	return lock
}

// scheduleTx stages writes until InVetSchedule commits them, so an
// aborted section leaves the store untouched.
type scheduleTx struct {
	store  *Store
	staged map[uuid.UUID]domain.Appointment
}

func (tx *scheduleTx) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Appointment{}, err
	}
	now := time.Now().UTC()
	appt.ID = id
	appt.CreatedAt = now
	appt.UpdatedAt = now
	tx.staged[id] = appt
	return appt, nil
}

func (tx *scheduleTx) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if appt, ok := tx.staged[id]; ok {
		return appt, nil
	}
	return tx.store.Get(ctx, id)
}

func (tx *scheduleTx) Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Appointment) error) (domain.Appointment, error) {
	appt, err := tx.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := mutate(&appt); err != nil {
		return domain.Appointment{}, err
	}
	appt.UpdatedAt = time.Now().UTC()
	tx.staged[id] = appt
	return appt, nil
}

func (tx *scheduleTx) FindActiveInWindow(ctx context.Context, vetID string, from, to time.Time) ([]domain.Appointment, error) {
	out, err := tx.store.FindActiveInWindow(ctx, vetID, from, to)
	if err != nil {
		return nil, err
	}
	merged := out[:0:0]
	for _, a := range out {
		if _, ok := tx.staged[a.ID]; ok {
			continue
		}
		merged = append(merged, a)
	}
	for _, a := range tx.staged {
		if activeInWindow(a, vetID, from, to) {
			merged = append(merged, a)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ScheduledAt.Before(merged[j].ScheduledAt)
	})
	return merged, nil
}
