package http

import (
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
	"petwiz/internal/service/scheduling"
)

type bookRequest struct {
	PetID          string    `json:"pet_id"`
	VeterinarianID string    `json:"veterinarian_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Type           string    `json:"type,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

type confirmRequest struct {
	Notes string `json:"notes,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type completeRequest struct {
	Outcome string `json:"outcome,omitempty"`
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

type appointmentResponse struct {
	ID                    uuid.UUID  `json:"id"`
	OwnerID               string     `json:"owner_id"`
	PetID                 string     `json:"pet_id"`
	VeterinarianID        string     `json:"veterinarian_id"`
	ScheduledAt           time.Time  `json:"scheduled_at"`
	Type                  string     `json:"type,omitempty"`
	Reason                string     `json:"reason,omitempty"`
	Status                string     `json:"status"`
	VetNotes              string     `json:"vet_notes,omitempty"`
	RejectionReason       string     `json:"rejection_reason,omitempty"`
	Outcome               string     `json:"outcome,omitempty"`
	OriginalAppointmentID *uuid.UUID `json:"original_appointment_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:                    a.ID,
		OwnerID:               a.OwnerID,
		PetID:                 a.PetID,
		VeterinarianID:        a.VeterinarianID,
		ScheduledAt:           a.ScheduledAt,
		Type:                  a.Type,
		Reason:                a.Reason,
		Status:                string(a.Status),
		VetNotes:              a.VetNotes,
		RejectionReason:       a.RejectionReason,
		Outcome:               a.Outcome,
		OriginalAppointmentID: a.OriginalAppointmentID,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

type rescheduleResponse struct {
	Original  appointmentResponse `json:"original"`
	Successor appointmentResponse `json:"successor"`
}

type ownerAppointmentResponse struct {
	ID                    uuid.UUID  `json:"id"`
	PetID                 string     `json:"pet_id"`
	VeterinarianID        string     `json:"veterinarian_id"`
	ScheduledAt           time.Time  `json:"scheduled_at"`
	Type                  string     `json:"type,omitempty"`
	Reason                string     `json:"reason,omitempty"`
	Status                string     `json:"status"`
	RejectionReason       string     `json:"rejection_reason,omitempty"`
	Outcome               string     `json:"outcome,omitempty"`
	OriginalAppointmentID *uuid.UUID `json:"original_appointment_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func toOwnerAppointments(in []scheduling.OwnerAppointment) []ownerAppointmentResponse {
	out := make([]ownerAppointmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, ownerAppointmentResponse{
			ID:                    a.ID,
			PetID:                 a.PetID,
			VeterinarianID:        a.VeterinarianID,
			ScheduledAt:           a.ScheduledAt,
			Type:                  a.Type,
			Reason:                a.Reason,
			Status:                string(a.Status),
			RejectionReason:       a.RejectionReason,
			Outcome:               a.Outcome,
			OriginalAppointmentID: a.OriginalAppointmentID,
			CreatedAt:             a.CreatedAt,
		})
	}
	return out
}

type vetAppointmentResponse struct {
	ID                    uuid.UUID  `json:"id"`
	OwnerID               string     `json:"owner_id"`
	PetID                 string     `json:"pet_id"`
	ScheduledAt           time.Time  `json:"scheduled_at"`
	Type                  string     `json:"type,omitempty"`
	Reason                string     `json:"reason,omitempty"`
	Status                string     `json:"status"`
	VetNotes              string     `json:"vet_notes,omitempty"`
	RejectionReason       string     `json:"rejection_reason,omitempty"`
	Outcome               string     `json:"outcome,omitempty"`
	OriginalAppointmentID *uuid.UUID `json:"original_appointment_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func toVetAppointments(in []scheduling.VetAppointment) []vetAppointmentResponse {
	out := make([]vetAppointmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, vetAppointmentResponse{
			ID:                    a.ID,
			OwnerID:               a.OwnerID,
			PetID:                 a.PetID,
			ScheduledAt:           a.ScheduledAt,
			Type:                  a.Type,
			Reason:                a.Reason,
			Status:                string(a.Status),
			VetNotes:              a.VetNotes,
			RejectionReason:       a.RejectionReason,
			Outcome:               a.Outcome,
			OriginalAppointmentID: a.OriginalAppointmentID,
			CreatedAt:             a.CreatedAt,
		})
	}
	return out
}

type statsResponse struct {
	Pending     int `json:"pending"`
	Confirmed   int `json:"confirmed"`
	Completed   int `json:"completed"`
	Cancelled   int `json:"cancelled"`
	Rejected    int `json:"rejected"`
	Rescheduled int `json:"rescheduled"`
	Total       int `json:"total"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
