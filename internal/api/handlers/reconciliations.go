package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/church-reconciler/internal/api/dto"
	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/application/report"
	"github.com/eshaffer321/church-reconciler/internal/application/service"
	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

// DefaultMaxUploadBytes bounds the multipart body of a reconciliation.
const DefaultMaxUploadBytes = 32 << 20

// ReconciliationsHandler handles reconciliation jobs and their results.
type ReconciliationsHandler struct {
	*Base
	service   *service.ReconciliationService
	suggester reconcile.Suggester
	maxUpload int64
}

// NewReconciliationsHandler creates a new reconciliations handler.
// suggester may be nil, in which case the suggest endpoint answers 503.
func NewReconciliationsHandler(svc *service.ReconciliationService, suggester reconcile.Suggester, maxUpload int64) *ReconciliationsHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &ReconciliationsHandler{
		Base:      &Base{},
		service:   svc,
		suggester: suggester,
		maxUpload: maxUpload,
	}
}

// Start handles POST /api/reconciliations - uploads files and starts a job.
func (h *ReconciliationsHandler) Start(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid multipart form: "+err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req, err := parseReconciliationForm(r.MultipartForm)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	jobID, err := h.service.StartReconciliation(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrTooManyJobs) {
			h.WriteServiceError(w, err)
			return
		}
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartReconciliationResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

// List handles GET /api/reconciliations - lists jobs, newest first.
func (h *ReconciliationsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.service.ListJobs()

	response := dto.JobListResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/reconciliations/{id} - returns a job's status.
func (h *ReconciliationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// Cancel handles DELETE /api/reconciliations/{id}.
func (h *ReconciliationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelReconciliation(chi.URLParam(r, "id")); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Reconciliation cancelled successfully",
	})
}

// Results handles GET /api/reconciliations/{id}/results. The optional
// status and church_id query parameters filter the list; the summary always
// covers every result.
func (h *ReconciliationsHandler) Results(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	all := session.Results()
	status := matcher.Status(r.URL.Query().Get("status"))
	churchID := r.URL.Query().Get("church_id")

	filtered := make([]matcher.MatchResult, 0, len(all))
	for _, res := range all {
		if status != "" && res.Status != status {
			continue
		}
		if churchID != "" && (res.Church == nil || res.Church.ID != churchID) {
			continue
		}
		filtered = append(filtered, res)
	}

	h.WriteJSON(w, http.StatusOK, dto.ResultsResponse{
		Results: filtered,
		Count:   len(filtered),
		Summary: matcher.Summarize(all),
	})
}

// Candidates handles GET .../results/{resultID}/candidates.
func (h *ReconciliationsHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	candidates, err := session.Candidates(chi.URLParam(r, "resultID"))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.CandidatesResponse{
		Candidates: candidates,
		Count:      len(candidates),
	})
}

// Match handles POST .../results/{resultID}/match - links a PENDENTE entry
// to an unidentified transaction.
func (h *ReconciliationsHandler) Match(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.MatchRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.TransactionID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("transaction_id is required"))
		return
	}

	result, err := session.ConfirmManualMatch(r.Context(), chi.URLParam(r, "resultID"), req.TransactionID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Identify handles POST .../results/{resultID}/identify.
func (h *ReconciliationsHandler) Identify(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.IdentifyRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.ChurchID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("church_id is required"))
		return
	}

	result, err := session.IdentifyManually(r.Context(), chi.URLParam(r, "resultID"), req.ChurchID, req.ContributorName)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Confirm handles POST .../results/{resultID}/confirm.
func (h *ReconciliationsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	result, err := session.ConfirmResult(r.Context(), chi.URLParam(r, "resultID"))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Suggest handles POST .../results/{resultID}/suggest.
func (h *ReconciliationsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		h.WriteError(w, http.StatusServiceUnavailable, dto.NewAPIError(dto.ErrCodeUnavailable, "suggestions are not configured"))
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	result, identified, err := session.ApplySuggestion(r.Context(), chi.URLParam(r, "resultID"), h.suggester)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.SuggestResponse{
		Result:     *result,
		Identified: identified,
	})
}

// Finalize handles POST /api/reconciliations/{id}/finalize.
func (h *ReconciliationsHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	n, err := h.service.Finalize(r.Context(), jobID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	job, err := h.service.GetJob(jobID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.FinalizeResponse{
		RunID:   job.RunID,
		Entries: n,
	})
}

// Export handles GET /api/reconciliations/{id}/export - the CSV ledger.
// ?delimiter=, switches from the default semicolon.
func (h *ReconciliationsHandler) Export(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var comma rune
	if d := r.URL.Query().Get("delimiter"); d != "" {
		if len([]rune(d)) != 1 {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("delimiter must be a single character"))
			return
		}
		comma = []rune(d)[0]
	}

	filename := fmt.Sprintf("reconciliation-%s.csv", chi.URLParam(r, "id"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	// headers are already sent, a write error can only be logged by the middleware
	_ = report.WriteCSV(w, session.Results(), session.Report(), comma)
}

func (h *ReconciliationsHandler) session(w http.ResponseWriter, r *http.Request) (*reconcile.Session, bool) {
	session, err := h.service.Session(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteServiceError(w, err)
		return nil, false
	}
	return session, true
}

// parseReconciliationForm turns the multipart form into a service request.
// Churches are ordered by id so runs over the same upload are reproducible.
func parseReconciliationForm(form *multipart.Form) (service.Request, error) {
	var req service.Request

	statements, err := readFiles(form.File[dto.FieldStatements])
	if err != nil {
		return req, err
	}
	if len(statements) == 0 {
		return req, fmt.Errorf("at least one %q file is required", dto.FieldStatements)
	}
	req.Input.Statements = statements

	churchIDs := make([]string, 0)
	for field := range form.File {
		if id, ok := bracketKey(field, dto.FieldContributorsPrefix); ok {
			churchIDs = append(churchIDs, id)
		}
	}
	sort.Strings(churchIDs)

	for _, id := range churchIDs {
		files, err := readFiles(form.File[dto.FieldContributorsPrefix+id+"]"])
		if err != nil {
			return req, err
		}
		name := id
		if values := form.Value[dto.FieldChurchNamePrefix+id+"]"]; len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			name = strings.TrimSpace(values[0])
		}
		req.Input.Churches = append(req.Input.Churches, reconcile.ChurchInput{
			Church: matcher.Church{ID: id, Name: name},
			Files:  files,
		})
	}

	if v := firstValue(form, dto.FieldSimilarityThreshold); v != "" {
		threshold, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
		if err != nil {
			return req, fmt.Errorf("invalid %s: %q", dto.FieldSimilarityThreshold, v)
		}
		req.SimilarityThreshold = &threshold
	}
	if v := firstValue(form, dto.FieldDayTolerance); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid %s: %q", dto.FieldDayTolerance, v)
		}
		req.DayTolerance = &days
	}

	return req, nil
}

// bracketKey extracts id from "prefix<id>]"
func bracketKey(field, prefix string) (string, bool) {
	if !strings.HasPrefix(field, prefix) || !strings.HasSuffix(field, "]") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(field, prefix), "]")
	return id, id != ""
}

func firstValue(form *multipart.Form, field string) string {
	if values := form.Value[field]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func readFiles(headers []*multipart.FileHeader) ([]ingest.File, error) {
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		files = append(files, ingest.File{
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return files, nil
}

// toJobResponse converts a service job to an API response.
func toJobResponse(job service.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:            job.ID,
		Status:           string(job.Status),
		RunID:            job.RunID,
		StatementFiles:   job.StatementFiles,
		ContributorFiles: job.ContributorFiles,
		StartedAt:        job.StartedAt.Format(time.RFC3339),
		Finalized:        job.Finalized,
		Progress: dto.ProgressResponse{
			Phase:      job.Progress.Phase,
			Current:    job.Progress.Current,
			Total:      job.Progress.Total,
			LastUpdate: job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Session != nil {
		rep := job.Session.Report()
		response.Report = &rep
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
