package dto

import (
	"time"

	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Storage       string `json:"storage"`
	ActiveJobs    int    `json:"active_jobs"`
	AISuggestions bool   `json:"ai_suggestions"`
}

// Storage states reported by the health check
const (
	StorageOK          = "ok"
	StorageUnavailable = "unavailable"
	StorageDisabled    = "disabled"
)

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// StartReconciliationResponse is returned when a reconciliation is accepted.
type StartReconciliationResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ProgressResponse represents real-time progress of a job.
type ProgressResponse struct {
	Phase      string `json:"phase"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	LastUpdate string `json:"last_update"`
}

// JobResponse represents a reconciliation job's status.
type JobResponse struct {
	JobID            string            `json:"job_id"`
	Status           string            `json:"status"`
	RunID            int64             `json:"run_id,omitempty"`
	StatementFiles   int               `json:"statement_files"`
	ContributorFiles int               `json:"contributor_files"`
	StartedAt        string            `json:"started_at"`
	CompletedAt      *string           `json:"completed_at,omitempty"`
	Progress         ProgressResponse  `json:"progress"`
	Report           *reconcile.Report `json:"report,omitempty"`
	Finalized        int               `json:"finalized,omitempty"`
	Error            *string           `json:"error,omitempty"`
}

// JobListResponse lists reconciliation jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// ResultsResponse lists the results of a reconciliation.
type ResultsResponse struct {
	Results []matcher.MatchResult `json:"results"`
	Count   int                   `json:"count"`
	Summary matcher.Summary       `json:"summary"`
}

// CandidatesResponse ranks transactions for a PENDENTE entry.
type CandidatesResponse struct {
	Candidates []matcher.Candidate `json:"candidates"`
	Count      int                 `json:"count"`
}

// SuggestResponse is returned by the AI suggestion endpoint.
type SuggestResponse struct {
	Result     matcher.MatchResult `json:"result"`
	Identified bool                `json:"identified"`
}

// FinalizeResponse reports the ledger entries written.
type FinalizeResponse struct {
	RunID   int64 `json:"run_id"`
	Entries int   `json:"entries"`
}

// RunResponse represents a reconciliation run in API responses.
type RunResponse struct {
	ID               int64   `json:"id"`
	JobID            string  `json:"job_id"`
	StartedAt        string  `json:"started_at"`
	CompletedAt      *string `json:"completed_at,omitempty"`
	Status           string  `json:"status"`
	StatementFiles   int     `json:"statement_files"`
	ContributorFiles int     `json:"contributor_files"`
	Transactions     int     `json:"transactions"`
	Identified       int     `json:"identified"`
	Unidentified     int     `json:"unidentified"`
	Pending          int     `json:"pending"`
	Divergent        int     `json:"divergent"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// LedgerEntryResponse represents one finalized transaction.
type LedgerEntryResponse struct {
	ResultID        string  `json:"result_id"`
	ChurchID        string  `json:"church_id"`
	ChurchName      string  `json:"church_name"`
	ContributorName string  `json:"contributor_name,omitempty"`
	Date            string  `json:"date"`
	Description     string  `json:"description"`
	Amount          string  `json:"amount"` // decimal, two places
	Method          string  `json:"method"`
	Similarity      float64 `json:"similarity"`
}

// LedgerResponse lists the ledger of a run with its total.
type LedgerResponse struct {
	RunID   int64                 `json:"run_id"`
	Entries []LedgerEntryResponse `json:"entries"`
	Count   int                   `json:"count"`
	Total   string                `json:"total"`
}

// AssociationResponse represents a learned association.
type AssociationResponse struct {
	NormalizedDescription string `json:"normalized_description"`
	ChurchID              string `json:"church_id"`
	ContributorName       string `json:"contributor_name"`
	TimesConfirmed        int    `json:"times_confirmed"`
	UpdatedAt             string `json:"updated_at"`
}

// AssociationListResponse lists learned associations.
type AssociationListResponse struct {
	Associations []AssociationResponse `json:"associations"`
	Count        int                   `json:"count"`
}
