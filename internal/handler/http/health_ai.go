package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"rfp-radar/internal/usecase/ai"
)

// AIHealthHandler reports whether semantic search and question answering
// are available. They are optional: without an embedding provider the
// service runs with them disabled and this endpoint says so.
type AIHealthHandler struct {
	svc *ai.Service
}

// NewAIHealthHandler creates a new AI health check handler.
func NewAIHealthHandler(svc *ai.Service) *AIHealthHandler {
	return &AIHealthHandler{svc: svc}
}

// AIHealthResponse represents the response structure for the AI health endpoint.
type AIHealthResponse struct {
	Status  string `json:"status"`
	Enabled bool   `json:"enabled"`
}

// Health returns the availability of the semantic features.
// GET /health/ai
// Always returns 200: a disabled AI layer is a configuration choice,
// not a failure.
func (h *AIHealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	enabled := h.svc != nil && h.svc.Enabled()

	status := "enabled"
	if !enabled {
		status = "disabled"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	response := AIHealthResponse{
		Status:  status,
		Enabled: enabled,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode AI health response", slog.Any("error", err))
	}
}
