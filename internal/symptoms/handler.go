package symptoms

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// Handler exposes the analyzer over HTTP.
type Handler struct {
	analyzer Analyzer
	logger   *logging.Logger
}

// NewHandler creates the symptoms handler.
func NewHandler(analyzer Analyzer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{analyzer: analyzer, logger: logger}
}

type analyzeRequest struct {
	Symptoms string `json:"symptoms"`
}

// Analyze handles POST /symptoms/analyze requests.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.Symptoms)
	if err != nil {
		if errors.Is(err, ErrEmptySymptoms) {
			http.Error(w, "symptoms description required", http.StatusBadRequest)
			return
		}
		h.logger.Error("symptom analysis failed", "error", err)
		http.Error(w, "analysis unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
