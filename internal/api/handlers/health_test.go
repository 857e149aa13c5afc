package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/eshaffer321/church-reconciler/internal/api/dto"
	"github.com/eshaffer321/church-reconciler/internal/api/handlers"
	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/application/service"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenRuns fails every read, like a locked or missing database
type brokenRuns struct {
	storage.RunRepository
}

func (brokenRuns) ListRuns(context.Context, int) ([]storage.Run, error) {
	return nil, errors.New("database is locked")
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name        string
		runs        storage.RunRepository
		svc         *service.ReconciliationService
		ai          bool
		wantCode    int
		wantStatus  string
		wantStorage string
	}{
		{
			name:        "storage readable",
			runs:        storage.NewMockRepository(),
			wantCode:    http.StatusOK,
			wantStatus:  "ok",
			wantStorage: dto.StorageOK,
		},
		{
			name:        "no storage configured",
			svc:         service.NewReconciliationService(reconcile.DefaultOptions(), nil, logger),
			ai:          true,
			wantCode:    http.StatusOK,
			wantStatus:  "ok",
			wantStorage: dto.StorageDisabled,
		},
		{
			name:        "storage failing",
			runs:        brokenRuns{},
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  "degraded",
			wantStorage: dto.StorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler := handlers.NewHealthHandler(tt.runs, tt.svc, tt.ai)
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(rec, req)

			// Assert
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var response dto.HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, tt.wantStorage, response.Storage)
			assert.Equal(t, tt.ai, response.AISuggestions)
			assert.Zero(t, response.ActiveJobs)
			assert.NotEmpty(t, response.Timestamp)
		})
	}
}
