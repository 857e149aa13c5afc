package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/eshaffer321/church-reconciler/internal/api/dto"
	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/application/service"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps domain and service errors to HTTP responses.
func (b *Base) WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("reconciliation"))
	case errors.Is(err, reconcile.ErrResultNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("result"))
	case errors.Is(err, storage.ErrNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
	case errors.Is(err, service.ErrJobNotReady):
		b.WriteError(w, http.StatusConflict, dto.NewAPIError(dto.ErrCodeNotReady, err.Error()))
	case errors.Is(err, service.ErrJobNotCancellable),
		errors.Is(err, reconcile.ErrTransactionUnavailable),
		errors.Is(err, reconcile.ErrNotGhost),
		errors.Is(err, reconcile.ErrNotIdentified):
		b.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
	case errors.Is(err, reconcile.ErrUnknownChurch):
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.Is(err, service.ErrTooManyJobs):
		b.WriteError(w, http.StatusTooManyRequests, dto.NewAPIError(dto.ErrCodeTooMany, err.Error()))
	case errors.Is(err, service.ErrNoLedger):
		b.WriteError(w, http.StatusServiceUnavailable, dto.NewAPIError(dto.ErrCodeUnavailable, err.Error()))
	default:
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// DecodeJSON decodes the request body into v, writing a 400 on failure.
func (b *Base) DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return false
	}
	return true
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
