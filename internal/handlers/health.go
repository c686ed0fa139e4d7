package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler provides health check endpoint
type HealthHandler struct {
	logger  *slog.Logger
	version string
	check   func(ctx context.Context) error
}

// NewHealthHandler creates a new health handler. check may be nil; when set
// it is called on every request and a failure reports the service unhealthy.
func NewHealthHandler(logger *slog.Logger, version string, check func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		version: version,
		check:   check,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ServeHTTP handles health check requests
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}

	status := http.StatusOK
	if h.check != nil {
		if err := h.check(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	WriteJSON(w, status, response, h.logger)
}
