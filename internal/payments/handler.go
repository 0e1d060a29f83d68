package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mediconnect/telehealth-platform/internal/appointments"
	httpmiddleware "github.com/mediconnect/telehealth-platform/internal/http/middleware"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// Handler handles HTTP requests for appointment payments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the payments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the payment endpoints on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Record)
}

type recordRequest struct {
	AppointmentID string `json:"appointment_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

// Record handles POST /payments requests.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpmiddleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}

	receipt, err := h.service.RecordPayment(r.Context(), req.AppointmentID, claims.UserID, req.Amount, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadyPaid):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrAmountMismatch):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to record payment", "appointment_id", req.AppointmentID, "error", err)
			http.Error(w, "failed to record payment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(receipt)
}
