package notifications

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

// Handler handles HTTP requests for notifications. Every endpoint is
// scoped to the authenticated user; there is no cross-user access.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new notifications handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the notification endpoints on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Get("/stats", h.Stats)
	r.Patch("/read-all", h.MarkAllAsRead)
	r.Delete("/", h.DeleteAll)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/read", h.MarkAsRead)
	r.Delete("/{id}", h.Delete)
}

// Create handles POST /notifications requests.
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
	req.SenderID = claims.UserID

	n, err := h.service.Create(r.Context(), req)
	if err != nil {
		if IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create notification", "error", err)
		http.Error(w, "failed to create notification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(n)
}

// List handles GET /notifications requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	filter := parseListFilter(r)
	result, err := h.service.List(r.Context(), claims.UserID, filter)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err, "user_id", claims.UserID)
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Get handles GET /notifications/{id} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	n, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get notification", "error", err)
		http.Error(w, "failed to get notification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(n)
}

// MarkAsRead handles PATCH /notifications/{id}/read requests.
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	n, err := h.service.MarkAsRead(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to mark notification read", "error", err)
		http.Error(w, "failed to mark notification read", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(n)
}

// MarkAllAsRead handles PATCH /notifications/read-all requests.
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	count, err := h.service.MarkAllAsRead(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("failed to mark all read", "error", err, "user_id", claims.UserID)
		http.Error(w, "failed to mark all read", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"marked_read": count})
}

// Delete handles DELETE /notifications/{id} requests.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete notification", "error", err)
		http.Error(w, "failed to delete notification", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /notifications requests.
func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	count, err := h.service.DeleteAll(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("failed to delete all notifications", "error", err, "user_id", claims.UserID)
		http.Error(w, "failed to delete notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"deleted": count})
}

// UnreadCount handles GET /notifications/unread-count requests.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("failed to get unread count", "error", err, "user_id", claims.UserID)
		http.Error(w, "failed to get unread count", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"unread_count": count})
}

// Stats handles GET /notifications/stats requests.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	stats, err := h.service.Stats(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("failed to get notification stats", "error", err, "user_id", claims.UserID)
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func parseListFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{}

	if raw := q.Get("type"); raw != "" {
		t := Type(raw)
		filter.Type = &t
	}
	if raw := q.Get("priority"); raw != "" {
		p := Priority(raw)
		filter.Priority = &p
	}
	if raw := q.Get("is_read"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			filter.IsRead = &parsed
		}
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
	if raw := q.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Page = parsed
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.PageSize = parsed
		}
	}
	return filter
}
