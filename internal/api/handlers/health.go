package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eshaffer321/church-reconciler/internal/api/dto"
	"github.com/eshaffer321/church-reconciler/internal/application/service"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

const storageCheckTimeout = 2 * time.Second

// HealthHandler reports whether the server can take reconciliations.
// Both dependencies are optional.
type HealthHandler struct {
	runs      storage.RunRepository
	svc       *service.ReconciliationService
	aiEnabled bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(runs storage.RunRepository, svc *service.ReconciliationService, aiEnabled bool) *HealthHandler {
	return &HealthHandler{runs: runs, svc: svc, aiEnabled: aiEnabled}
}

// ServeHTTP answers 503 when the run history cannot be read.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := dto.NewHealthResponse()
	response.AISuggestions = h.aiEnabled

	status := http.StatusOK
	switch {
	case h.runs == nil:
		response.Storage = dto.StorageDisabled
	default:
		ctx, cancel := context.WithTimeout(r.Context(), storageCheckTimeout)
		defer cancel()
		if _, err := h.runs.ListRuns(ctx, 1); err != nil {
			response.Status = "degraded"
			response.Storage = dto.StorageUnavailable
			status = http.StatusServiceUnavailable
		} else {
			response.Storage = dto.StorageOK
		}
	}

	if h.svc != nil {
		for _, job := range h.svc.ListJobs() {
			if job.Status == service.StatusPending || job.Status == service.StatusRunning {
				response.ActiveJobs++
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
