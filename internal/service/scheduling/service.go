package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
	"petwiz/internal/store"
)

// Service is the single entry point for owner- and vet-facing callers.
// It validates input, enforces ownership over read and complete paths,
// and builds role-scoped projections; state changes go through the
// Engine. Caller identities are supplied by an external auth layer and
// trusted as-is.
type Service struct {
	engine *Engine
	store  store.AppointmentStore

	now func() time.Time
}

func NewService(engine *Engine, st store.AppointmentStore) *Service {
	return &Service{
		engine: engine,
		store:  st,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if in.OwnerID == "" {
		return domain.Appointment{}, validationError("owner_id is required")
	}
	if in.PetID == "" {
		return domain.Appointment{}, validationError("pet_id is required")
	}
	if in.VeterinarianID == "" {
		return domain.Appointment{}, validationError("veterinarian_id is required")
	}
	if in.ScheduledAt.IsZero() {
		return domain.Appointment{}, validationError("scheduled_at is required")
	}
	if !in.ScheduledAt.UTC().After(s.now()) {
		return domain.Appointment{}, validationError("scheduled_at must be in the future")
	}
	in.Reason = strings.TrimSpace(in.Reason)

	return s.engine.Book(ctx, in)
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID, vetID, notes string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if vetID == "" {
		return domain.Appointment{}, validationError("veterinarian_id is required")
	}
	return s.engine.Confirm(ctx, id, vetID, strings.TrimSpace(notes))
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, vetID, reason string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if vetID == "" {
		return domain.Appointment{}, validationError("veterinarian_id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Appointment{}, validationError("rejection reason is required")
	}
	return s.engine.Reject(ctx, id, vetID, reason)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, requesterID string, role domain.Role) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if requesterID == "" {
		return domain.Appointment{}, validationError("requester_id is required")
	}
	if role != domain.RoleOwner && role != domain.RoleVeterinarian {
		return domain.Appointment{}, validationError("invalid requester role")
	}
	return s.engine.Cancel(ctx, id, requesterID, role)
}

// Complete is the vet-facing completion path; the sweeper calls the
// engine directly and is not subject to this ownership check.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, vetID, outcome string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if vetID == "" {
		return domain.Appointment{}, validationError("veterinarian_id is required")
	}

	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if appt.VeterinarianID != vetID {
		return domain.Appointment{}, ErrForbidden
	}

	return s.engine.Complete(ctx, id, strings.TrimSpace(outcome))
}

func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newAt time.Time, requesterID string) (RescheduleResult, error) {
	if id == uuid.Nil {
		return RescheduleResult{}, validationError("appointment_id is required")
	}
	if requesterID == "" {
		return RescheduleResult{}, validationError("requester_id is required")
	}
	if newAt.IsZero() {
		return RescheduleResult{}, validationError("scheduled_at is required")
	}
	if !newAt.UTC().After(s.now()) {
		return RescheduleResult{}, validationError("scheduled_at must be in the future")
	}
	return s.engine.Reschedule(ctx, id, newAt, requesterID)
}

// Get returns one appointment; the requester must be its owner or its
// assigned veterinarian.
func (s *Service) Get(ctx context.Context, id uuid.UUID, requesterID string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if requesterID == "" {
		return domain.Appointment{}, validationError("requester_id is required")
	}
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if appt.OwnerID != requesterID && appt.VeterinarianID != requesterID {
		return domain.Appointment{}, ErrForbidden
	}
	return appt, nil
}

// OwnerAppointment is the owner-facing projection; vet working notes
// stay off it.
type OwnerAppointment struct {
	ID                    uuid.UUID
	PetID                 string
	VeterinarianID        string
	ScheduledAt           time.Time
	Type                  string
	Reason                string
	Status                domain.Status
	RejectionReason       string
	Outcome               string
	OriginalAppointmentID *uuid.UUID
	CreatedAt             time.Time
}

// VetAppointment is the vet-facing projection.
type VetAppointment struct {
	ID                    uuid.UUID
	OwnerID               string
	PetID                 string
	ScheduledAt           time.Time
	Type                  string
	Reason                string
	Status                domain.Status
	VetNotes              string
	RejectionReason       string
	Outcome               string
	OriginalAppointmentID *uuid.UUID
	CreatedAt             time.Time
}

func ownerView(a domain.Appointment) OwnerAppointment {
	return OwnerAppointment{
		ID:                    a.ID,
		PetID:                 a.PetID,
		VeterinarianID:        a.VeterinarianID,
		ScheduledAt:           a.ScheduledAt,
		Type:                  a.Type,
		Reason:                a.Reason,
		Status:                a.Status,
		RejectionReason:       a.RejectionReason,
		Outcome:               a.Outcome,
		OriginalAppointmentID: a.OriginalAppointmentID,
		CreatedAt:             a.CreatedAt,
	}
}

func vetView(a domain.Appointment) VetAppointment {
	return VetAppointment{
		ID:                    a.ID,
		OwnerID:               a.OwnerID,
		PetID:                 a.PetID,
		ScheduledAt:           a.ScheduledAt,
		Type:                  a.Type,
		Reason:                a.Reason,
		Status:                a.Status,
		VetNotes:              a.VetNotes,
		RejectionReason:       a.RejectionReason,
		Outcome:               a.Outcome,
		OriginalAppointmentID: a.OriginalAppointmentID,
		CreatedAt:             a.CreatedAt,
	}
}

// ListForOwner returns the owner's full appointment history ordered by
// scheduled time ascending.
func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]OwnerAppointment, error) {
	if ownerID == "" {
		return nil, validationError("owner_id is required")
	}
	appts, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]OwnerAppointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, ownerView(a))
	}
	return out, nil
}

// ListForPet returns one pet's appointment history, restricted to the
// records booked by the requesting owner.
func (s *Service) ListForPet(ctx context.Context, petID, requesterID string) ([]OwnerAppointment, error) {
	if petID == "" {
		return nil, validationError("pet_id is required")
	}
	if requesterID == "" {
		return nil, validationError("requester_id is required")
	}
	appts, err := s.store.FindByPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	out := make([]OwnerAppointment, 0, len(appts))
	for _, a := range appts {
		if a.OwnerID == requesterID {
			out = append(out, ownerView(a))
		}
	}
	return out, nil
}

// ListUpcoming returns the owner's active appointments at or after now,
// soonest first.
func (s *Service) ListUpcoming(ctx context.Context, ownerID string) ([]OwnerAppointment, error) {
	if ownerID == "" {
		return nil, validationError("owner_id is required")
	}
	appts, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]OwnerAppointment, 0, len(appts))
	for _, a := range appts {
		if a.Status.Active() && !a.ScheduledAt.Before(now) {
			out = append(out, ownerView(a))
		}
	}
	return out, nil
}

// ListPast returns the owner's appointments before now, most recent
// first.
func (s *Service) ListPast(ctx context.Context, ownerID string) ([]OwnerAppointment, error) {
	if ownerID == "" {
		return nil, validationError("owner_id is required")
	}
	appts, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]OwnerAppointment, 0, len(appts))
	for i := len(appts) - 1; i >= 0; i-- {
		if appts[i].ScheduledAt.Before(now) {
			out = append(out, ownerView(appts[i]))
		}
	}
	return out, nil
}

func (s *Service) ListForVeterinarian(ctx context.Context, vetID string, statuses ...domain.Status) ([]VetAppointment, error) {
	if vetID == "" {
		return nil, validationError("veterinarian_id is required")
	}
	appts, err := s.store.FindByVeterinarian(ctx, vetID, statuses...)
	if err != nil {
		return nil, err
	}
	out := make([]VetAppointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, vetView(a))
	}
	return out, nil
}

// ListPendingForVeterinarian returns booking requests awaiting the
// vet's confirm/reject decision.
func (s *Service) ListPendingForVeterinarian(ctx context.Context, vetID string) ([]VetAppointment, error) {
	return s.ListForVeterinarian(ctx, vetID, domain.StatusPending)
}

// ListTodayForVeterinarian returns the vet's appointments scheduled on
// the current UTC day.
func (s *Service) ListTodayForVeterinarian(ctx context.Context, vetID string) ([]VetAppointment, error) {
	if vetID == "" {
		return nil, validationError("veterinarian_id is required")
	}
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.ListByDateRange(ctx, vetID, dayStart, dayStart.Add(24*time.Hour))
}

// ListByDateRange returns the vet's appointments with scheduled time in
// [from, to), ascending.
func (s *Service) ListByDateRange(ctx context.Context, vetID string, from, to time.Time) ([]VetAppointment, error) {
	if vetID == "" {
		return nil, validationError("veterinarian_id is required")
	}
	from, to = from.UTC(), to.UTC()
	if !to.After(from) {
		return nil, validationError("window end must be after window start")
	}
	appts, err := s.store.FindByVeterinarian(ctx, vetID)
	if err != nil {
		return nil, err
	}
	out := make([]VetAppointment, 0, len(appts))
	for _, a := range appts {
		if !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			out = append(out, vetView(a))
		}
	}
	return out, nil
}

// Stats summarizes a vet's appointments by status.
type Stats struct {
	Pending     int
	Confirmed   int
	Completed   int
	Cancelled   int
	Rejected    int
	Rescheduled int
}

func (st Stats) Total() int {
	return st.Pending + st.Confirmed + st.Completed + st.Cancelled + st.Rejected + st.Rescheduled
}

func (s *Service) StatsForVeterinarian(ctx context.Context, vetID string) (Stats, error) {
	if vetID == "" {
		return Stats{}, validationError("veterinarian_id is required")
	}
	appts, err := s.store.FindByVeterinarian(ctx, vetID)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, a := range appts {
		switch a.Status {
		case domain.StatusPending:
			st.Pending++
		case domain.StatusConfirmed:
			st.Confirmed++
		case domain.StatusCompleted:
			st.Completed++
		case domain.StatusCancelled:
			st.Cancelled++
		case domain.StatusRejected:
			st.Rejected++
		case domain.StatusRescheduled:
			st.Rescheduled++
		}
	}
	return st, nil
}
