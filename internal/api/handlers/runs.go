package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/church-reconciler/internal/api/dto"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// RunsHandler handles run history requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", dto.DefaultRunListParams().Limit)

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}

	run, err := h.repo.GetRun(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toRunResponse(*run))
}

// Ledger handles GET /api/runs/{id}/ledger - returns the finalized entries.
func (h *RunsHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}

	if _, err := h.repo.GetRun(r.Context(), id); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	entries, err := h.repo.ListLedgerEntries(r.Context(), id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	total := decimal.Zero
	response := dto.LedgerResponse{
		RunID:   id,
		Entries: make([]dto.LedgerEntryResponse, 0, len(entries)),
		Count:   len(entries),
	}
	for _, e := range entries {
		total = total.Add(e.Amount)
		response.Entries = append(response.Entries, dto.LedgerEntryResponse{
			ResultID:        e.ResultID,
			ChurchID:        e.ChurchID,
			ChurchName:      e.ChurchName,
			ContributorName: e.ContributorName,
			Date:            e.Date,
			Description:     e.Description,
			Amount:          e.Amount.StringFixed(2),
			Method:          e.Method,
			Similarity:      e.Similarity,
		})
	}
	response.Total = total.StringFixed(2)

	h.WriteJSON(w, http.StatusOK, response)
}

func (h *RunsHandler) runID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return 0, false
	}
	return id, true
}

// toRunResponse converts a storage Run to an API response.
func toRunResponse(run storage.Run) dto.RunResponse {
	response := dto.RunResponse{
		ID:               run.ID,
		JobID:            run.JobID,
		StartedAt:        run.StartedAt.Format(time.RFC3339),
		Status:           run.Status,
		StatementFiles:   run.StatementFiles,
		ContributorFiles: run.ContributorFiles,
		Transactions:     run.Transactions,
		Identified:       run.Identified,
		Unidentified:     run.Unidentified,
		Pending:          run.Pending,
		Divergent:        run.Divergent,
		ErrorMessage:     run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completed
	}
	return response
}
