package reconcile

import (
	"context"
	"errors"

	"github.com/eshaffer321/church-reconciler/internal/application/ingestion"
	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

var (
	// ErrResultNotFound is returned when a result id is not part of the session
	ErrResultNotFound = errors.New("result not found")
	// ErrTransactionUnavailable is returned when a transaction is already identified
	ErrTransactionUnavailable = errors.New("transaction is not available for matching")
	// ErrNotGhost is returned when a PENDENTE contributor entry was expected
	ErrNotGhost = errors.New("result is not a pending contributor entry")
	// ErrUnknownChurch is returned when a church id was not part of the run
	ErrUnknownChurch = errors.New("unknown church")
	// ErrNotIdentified is returned when confirming a result that has no church
	ErrNotIdentified = errors.New("result is not identified")
)

// File roles within a run
const (
	RoleStatement    = "statement"
	RoleContributors = "contributors"
)

// Phase names a stage of a run for progress reporting
type Phase string

const (
	PhaseStatements   Phase = "ingesting_statements"
	PhaseContributors Phase = "ingesting_contributors"
	PhaseMatching     Phase = "matching"
)

// Progress receives the phase and the processed/total units of that phase
// (files while ingesting, transactions while matching). It is called from
// ingestion workers concurrently.
type Progress func(phase Phase, current, total int)

// Options holds run configuration
type Options struct {
	Matching  matcher.Config
	Ingestion ingestion.Options
	Workers   int // concurrent file ingestions, default 4
}

// DefaultOptions returns the matcher and ingestion defaults
func DefaultOptions() Options {
	return Options{
		Matching:  matcher.DefaultConfig(),
		Ingestion: ingestion.DefaultOptions(),
		Workers:   4,
	}
}

// ChurchInput is one church and the files of its contributor list
type ChurchInput struct {
	Church matcher.Church
	Files  []ingest.File
}

// Input is everything uploaded for one reconciliation run
type Input struct {
	Statements []ingest.File
	Churches   []ChurchInput
}

// FileReport describes what happened to one uploaded file. A file that
// failed carries Error and no rows; it never aborts the run.
type FileReport struct {
	Name          string                        `json:"name"`
	Role          string                        `json:"role"`
	ChurchID      string                        `json:"church_id,omitempty"`
	Type          ingest.FileType               `json:"type"`
	Confidence    ingest.Confidence             `json:"confidence"`
	TotalRows     int                           `json:"total_rows"`
	AcceptedRows  int                           `json:"accepted_rows"`
	RejectedRows  int                           `json:"rejected_rows"`
	RejectReasons map[resolver.RejectReason]int `json:"reject_reasons,omitempty"`
	Expenses      int                           `json:"expenses,omitempty"`
	Error         string                        `json:"error,omitempty"`
}

// Report summarizes a run
type Report struct {
	Files        []FileReport    `json:"files"`
	Transactions int             `json:"transactions"`
	Expenses     int             `json:"expenses"`
	Contributors int             `json:"contributors"`
	Summary      matcher.Summary `json:"summary"`
}

// FailedFiles counts files that could not be ingested
func (r Report) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// RejectedRows totals the rows excluded by validation across all files
func (r Report) RejectedRows() int {
	n := 0
	for _, f := range r.Files {
		n += f.RejectedRows
	}
	return n
}

// AssociationStore reads and appends learned associations
type AssociationStore interface {
	ListAssociations(ctx context.Context) ([]storage.Association, error)
	SaveAssociation(ctx context.Context, a matcher.LearnedAssociation) error
}

// Suggester proposes a contributor for a transaction description, choosing
// from candidates. An empty name means no suggestion.
type Suggester interface {
	SuggestContributor(ctx context.Context, description string, candidates []string) (string, error)
}

// FinalizedSink receives identified results once a session is finalized
type FinalizedSink interface {
	Accept(ctx context.Context, results []matcher.MatchResult) error
}
