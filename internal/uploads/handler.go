package uploads

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/mediconnect/telehealth-platform/internal/http/middleware"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// maxReportSize caps a single uploaded report at 10 MiB.
const maxReportSize = 10 << 20

// Handler handles HTTP requests for medical report uploads.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates the uploads handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes mounts the report endpoints on a router. Object keys contain
// slashes, so reads and deletes use a wildcard.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Upload)
	r.Get("/*", h.Download)
	r.Delete("/*", h.Delete)
}

// Upload handles POST /reports requests with a multipart "file" part.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpmiddleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxReportSize); err != nil {
		http.Error(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file part is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	obj, err := h.store.Put(r.Context(), claims.UserID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		if errors.Is(err, ErrUnsupportedType) {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		h.logger.Error("report upload failed", "patient_id", claims.UserID, "error", err)
		http.Error(w, "failed to store report", http.StatusInternalServerError)
		return
	}

	h.logger.Info("report uploaded", "patient_id", claims.UserID, "key", obj.Key, "size", obj.Size)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(obj)
}

// Download handles GET /reports/{key} requests.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	key, ok := h.ownedKey(w, r)
	if !ok {
		return
	}

	body, obj, err := h.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "report not found", http.StatusNotFound)
			return
		}
		h.logger.Error("report download failed", "key", key, "error", err)
		http.Error(w, "failed to read report", http.StatusInternalServerError)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	io.Copy(w, body)
}

// Delete handles DELETE /reports/{key} requests.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key, ok := h.ownedKey(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), key); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "report not found", http.StatusNotFound)
			return
		}
		h.logger.Error("report delete failed", "key", key, "error", err)
		http.Error(w, "failed to delete report", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedKey extracts the object key from the wildcard and rejects access
// to another patient's reports. Admins may read any report.
func (h *Handler) ownedKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := httpmiddleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}

	key := chi.URLParam(r, "*")
	if key == "" {
		http.Error(w, "report key is required", http.StatusBadRequest)
		return "", false
	}
	if claims.Role != "admin" && claims.Role != "doctor" && !strings.HasPrefix(key, "reports/"+claims.UserID+"/") {
		http.Error(w, "report not found", http.StatusNotFound)
		return "", false
	}
	return key, true
}
