package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mediconnect/telehealth-platform/internal/http/middleware"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// Handler handles HTTP requests for appointments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the appointment endpoints on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/doctors/{doctorID}/slots", h.AvailableSlots)
	r.With(middleware.RequireRole("admin")).Post("/reminders/run", h.RunReminders)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.TransitionStatus)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/prescription", h.AddPrescription)
	r.Post("/{id}/rating", h.AddRating)
	r.Post("/{id}/video-token", h.VideoJoinToken)
}

// Create handles POST /appointments requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	// Patients book for themselves; admins may book on behalf of a patient.
	if claims.Role != "admin" {
		req.PatientID = claims.UserID
	}

	a, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err, "failed to create appointment")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(a)
}

// List handles GET /appointments requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	filter := ListFilter{}
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		st := Status(raw)
		if !st.Valid() {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		filter.Status = &st
	}
	if raw := q.Get("date_from"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if raw := q.Get("date_to"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DateTo = &parsed
		}
	}

	list, err := h.service.List(r.Context(), claims.UserID, filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "user_id", claims.UserID)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"appointments": list, "count": len(list)})
}

// Get handles GET /appointments/{id} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		h.respondError(w, err, "failed to get appointment")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

// AvailableSlots handles GET /appointments/doctors/{doctorID}/slots requests.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	raw := r.URL.Query().Get("date")
	if raw == "" {
		http.Error(w, "date query parameter required", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	slots, err := h.service.Slots().AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		h.logger.Error("failed to compute slots", "error", err, "doctor_id", doctorID)
		http.Error(w, "failed to compute availability", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"doctor_id": doctorID, "date": raw, "slots": slots})
}

// RunReminders handles POST /appointments/reminders/run requests. The
// scheduler normally owns the sweep; this endpoint lets operators run
// it on demand.
func (h *Handler) RunReminders(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if raw := r.URL.Query().Get("window_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			http.Error(w, "window_hours must be a positive integer", http.StatusBadRequest)
			return
		}
		window = time.Duration(hours) * time.Hour
	}

	sent, err := h.service.SendReminders(r.Context(), window)
	if err != nil {
		h.logger.Error("reminder sweep failed", "error", err)
		http.Error(w, "reminder sweep failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sent": sent})
}

type transitionRequest struct {
	Status Status `json:"status"`
}

// TransitionStatus handles PATCH /appointments/{id}/status requests.
func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a, err := h.service.TransitionStatus(r.Context(), chi.URLParam(r, "id"), req.Status, claims.UserID)
	if err != nil {
		h.respondError(w, err, "failed to update appointment status")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Cancel handles POST /appointments/{id}/cancel requests.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req cancelRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	a, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), claims.UserID, req.Reason)
	if err != nil {
		h.respondError(w, err, "failed to cancel appointment")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

// AddPrescription handles POST /appointments/{id}/prescription requests.
func (h *Handler) AddPrescription(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var p Prescription
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a, err := h.service.AddPrescription(r.Context(), chi.URLParam(r, "id"), claims.UserID, p)
	if err != nil {
		h.respondError(w, err, "failed to add prescription")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

type ratingRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

// AddRating handles POST /appointments/{id}/rating requests.
func (h *Handler) AddRating(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a, err := h.service.AddRating(r.Context(), chi.URLParam(r, "id"), claims.UserID, req.Score, req.Comment)
	if err != nil {
		h.respondError(w, err, "failed to add rating")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

// VideoJoinToken handles POST /appointments/{id}/video-token requests.
func (h *Handler) VideoJoinToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	token, err := h.service.VideoJoinToken(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		h.respondError(w, err, "failed to mint join token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// respondError maps domain errors onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrTerminalStatus):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrCannotCancel), errors.Is(err, ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		h.logger.Error(fallback, "error", err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}
