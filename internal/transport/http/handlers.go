// Package http is the REST adapter over the scheduling service. It
// trusts the authenticated caller identity supplied in the X-User-ID
// header; authentication itself lives outside this process.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"petwiz/internal/domain"
	"petwiz/internal/service/scheduling"
	"petwiz/internal/store"
)

const userIDHeader = "X-User-ID"
const userRoleHeader = "X-User-Role"

type schedulingService interface {
	Book(ctx context.Context, in scheduling.BookInput) (domain.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID, vetID, notes string) (domain.Appointment, error)
	Reject(ctx context.Context, id uuid.UUID, vetID, reason string) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, requesterID string, role domain.Role) (domain.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID, vetID, outcome string) (domain.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newAt time.Time, requesterID string) (scheduling.RescheduleResult, error)
	Get(ctx context.Context, id uuid.UUID, requesterID string) (domain.Appointment, error)
	ListForOwner(ctx context.Context, ownerID string) ([]scheduling.OwnerAppointment, error)
	ListForPet(ctx context.Context, petID, requesterID string) ([]scheduling.OwnerAppointment, error)
	ListUpcoming(ctx context.Context, ownerID string) ([]scheduling.OwnerAppointment, error)
	ListPast(ctx context.Context, ownerID string) ([]scheduling.OwnerAppointment, error)
	ListForVeterinarian(ctx context.Context, vetID string, statuses ...domain.Status) ([]scheduling.VetAppointment, error)
	ListPendingForVeterinarian(ctx context.Context, vetID string) ([]scheduling.VetAppointment, error)
	ListTodayForVeterinarian(ctx context.Context, vetID string) ([]scheduling.VetAppointment, error)
	ListByDateRange(ctx context.Context, vetID string, from, to time.Time) ([]scheduling.VetAppointment, error)
	StatsForVeterinarian(ctx context.Context, vetID string) (scheduling.Stats, error)
}

type Server struct {
	svc schedulingService
	log *slog.Logger
}

func NewServer(svc schedulingService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, log: log.With(slog.String("component", "http"))}
}

type RouterConfig struct {
	RequestTimeout time.Duration
}

func (s *Server) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.log))
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/appointments", s.book)
		r.Get("/appointments/{id}", s.get)
		r.Post("/appointments/{id}/confirm", s.confirm)
		r.Post("/appointments/{id}/reject", s.reject)
		r.Post("/appointments/{id}/cancel", s.cancel)
		r.Post("/appointments/{id}/complete", s.complete)
		r.Post("/appointments/{id}/reschedule", s.reschedule)

		r.Get("/owners/{ownerID}/appointments", s.listForOwner)
		r.Get("/owners/{ownerID}/appointments/upcoming", s.listUpcoming)
		r.Get("/owners/{ownerID}/appointments/past", s.listPast)

		r.Get("/pets/{petID}/appointments", s.listForPet)

		r.Get("/vets/{vetID}/appointments", s.listForVet)
		r.Get("/vets/{vetID}/appointments/pending", s.listPendingForVet)
		r.Get("/vets/{vetID}/appointments/today", s.listTodayForVet)
		r.Get("/vets/{vetID}/appointments/range", s.listRangeForVet)
		r.Get("/vets/{vetID}/appointments/stats", s.statsForVet)
	})

	return r
}

func (s *Server) book(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get(userIDHeader)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header is required")
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := s.svc.Book(r.Context(), scheduling.BookInput{
		OwnerID:        ownerID,
		PetID:          req.PetID,
		VeterinarianID: req.VeterinarianID,
		ScheduledAt:    req.ScheduledAt,
		Type:           req.Type,
		Reason:         req.Reason,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, requester, ok := s.idAndIdentity(w, r)
	if !ok {
		return
	}
	appt, err := s.svc.Get(r.Context(), id, requester)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	id, vetID, ok := s.idAndIdentity(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	appt, err := s.svc.Confirm(r.Context(), id, vetID, req.Notes)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request) {
	id, vetID, ok := s.idAndIdentity(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	appt, err := s.svc.Reject(r.Context(), id, vetID, req.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	id, requester, ok := s.idAndIdentity(w, r)
	if !ok {
		return
	}
	role := domain.Role(r.Header.Get(userRoleHeader))
	if role == "" {
		role = domain.RoleOwner
	}
	appt, err := s.svc.Cancel(r.Context(), id, requester, role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	id, vetID, ok := s.idAndIdentity(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	appt, err := s.svc.Complete(r.Context(), id, vetID, req.Outcome)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) reschedule(w http.ResponseWriter, r *http.Request) {
	id, requester, ok := s.idAndIdentity(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	res, err := s.svc.Reschedule(r.Context(), id, req.ScheduledAt, requester)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rescheduleResponse{
		Original:  toAppointmentResponse(res.Original),
		Successor: toAppointmentResponse(res.Successor),
	})
}

func (s *Server) listForOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.ownPathIdentity(w, r, "ownerID")
	if !ok {
		return
	}
	appts, err := s.svc.ListForOwner(r.Context(), ownerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOwnerAppointments(appts))
}

func (s *Server) listUpcoming(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.ownPathIdentity(w, r, "ownerID")
	if !ok {
		return
	}
	appts, err := s.svc.ListUpcoming(r.Context(), ownerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOwnerAppointments(appts))
}

func (s *Server) listPast(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.ownPathIdentity(w, r, "ownerID")
	if !ok {
		return
	}
	appts, err := s.svc.ListPast(r.Context(), ownerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOwnerAppointments(appts))
}

func (s *Server) listForPet(w http.ResponseWriter, r *http.Request) {
	requester := r.Header.Get(userIDHeader)
	if requester == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header is required")
		return
	}
	appts, err := s.svc.ListForPet(r.Context(), chi.URLParam(r, "petID"), requester)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOwnerAppointments(appts))
}

func (s *Server) listForVet(w http.ResponseWriter, r *http.Request) {
	vetID, ok := s.ownPathIdentity(w, r, "vetID")
	if !ok {
		return
	}
	var statuses []domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		statuses = append(statuses, domain.Status(raw))
	}
	appts, err := s.svc.ListForVeterinarian(r.Context(), vetID, statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVetAppointments(appts))
}

func (s *Server) listPendingForVet(w http.ResponseWriter, r *http.Request) {
	vetID, ok := s.ownPathIdentity(w, r, "vetID")
	if !ok {
		return
	}
	appts, err := s.svc.ListPendingForVeterinarian(r.Context(), vetID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVetAppointments(appts))
}

func (s *Server) listTodayForVet(w http.ResponseWriter, r *http.Request) {
	vetID, ok := s.ownPathIdentity(w, r, "vetID")
	if !ok {
		return
	}
	appts, err := s.svc.ListTodayForVeterinarian(r.Context(), vetID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVetAppointments(appts))
}

// listRangeForVet reads the window from `from`/`to` query params in
// RFC 3339; the end is exclusive.
func (s *Server) listRangeForVet(w http.ResponseWriter, r *http.Request) {
	vetID, ok := s.ownPathIdentity(w, r, "vetID")
	if !ok {
		return
	}
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window", "from must be RFC 3339")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window", "to must be RFC 3339")
		return
	}
	appts, err := s.svc.ListByDateRange(r.Context(), vetID, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVetAppointments(appts))
}

func (s *Server) statsForVet(w http.ResponseWriter, r *http.Request) {
	vetID, ok := s.ownPathIdentity(w, r, "vetID")
	if !ok {
		return
	}
	stats, err := s.svc.StatsForVeterinarian(r.Context(), vetID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Pending:     stats.Pending,
		Confirmed:   stats.Confirmed,
		Completed:   stats.Completed,
		Cancelled:   stats.Cancelled,
		Rejected:    stats.Rejected,
		Rescheduled: stats.Rescheduled,
		Total:       stats.Total(),
	})
}

// idAndIdentity parses the appointment id path param and requires the
// caller identity header.
func (s *Server) idAndIdentity(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	requester := r.Header.Get(userIDHeader)
	if requester == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header is required")
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, "", false
	}
	return id, requester, true
}

// ownPathIdentity requires the caller identity to match the path
// parameter, so callers only list their own appointments.
func (s *Server) ownPathIdentity(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	requester := r.Header.Get(userIDHeader)
	if requester == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header is required")
		return "", false
	}
	pathID := chi.URLParam(r, param)
	if pathID != requester {
		writeError(w, http.StatusForbidden, "forbidden", "cannot access another user's appointments")
		return "", false
	}
	return pathID, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *scheduling.ValidationError
	var tErr *scheduling.InvalidTransitionError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_failed", vErr.Error())
	case errors.As(err, &tErr):
		writeError(w, http.StatusConflict, "invalid_transition", tErr.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "caller lacks authority over this appointment")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "that time is already taken; pick a different slot")
	case errors.Is(err, store.ErrTimeout):
		writeError(w, http.StatusServiceUnavailable, "schedule_busy", "schedule is busy; try again")
	default:
		s.log.Error("request failed",
			slog.Any("err", err),
			slog.String("path", r.URL.Path),
			slog.String("request_id", requestIDFromContext(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// decodeOptionalBody decodes JSON when a body is present; an empty body
// leaves dst zero-valued.
func decodeOptionalBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}
