package storage

import (
	"context"
	"errors"

	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("storage: not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, MongoDB for
// associations) and makes testing with mocks straightforward.
type Repository interface {
	AssociationRepository
	RunRepository
	LedgerRepository
	Close() error
}

// AssociationRepository handles learned description to church associations
type AssociationRepository interface {
	// SaveAssociation inserts the association or, when its normalized
	// description is already known, replaces the church and contributor
	SaveAssociation(ctx context.Context, a matcher.LearnedAssociation) error

	// GetAssociation retrieves an association by normalized description
	GetAssociation(ctx context.Context, normalizedDescription string) (*Association, error)

	// ListAssociations returns every association, oldest first
	ListAssociations(ctx context.Context) ([]Association, error)
}

// RunRepository handles reconciliation run history
type RunRepository interface {
	// StartRun records the start of a run and returns the run ID
	StartRun(ctx context.Context, jobID string, statementFiles, contributorFiles int) (int64, error)

	// CompleteRun records the outcome of a run
	CompleteRun(ctx context.Context, runID int64, outcome RunOutcome) error

	// ListRuns returns recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, runID int64) (*Run, error)
}

// LedgerRepository stores finalized identified results
type LedgerRepository interface {
	// SaveLedgerEntries writes the entries of a run; an entry already saved
	// for the same result is replaced
	SaveLedgerEntries(ctx context.Context, runID int64, entries []LedgerEntry) error

	// ListLedgerEntries returns the entries of a run in insertion order
	ListLedgerEntries(ctx context.Context, runID int64) ([]LedgerEntry, error)
}

// LearnedAssociations converts stored associations for the matcher
func LearnedAssociations(stored []Association) []matcher.LearnedAssociation {
	out := make([]matcher.LearnedAssociation, 0, len(stored))
	for _, a := range stored {
		out = append(out, a.Learned())
	}
	return out
}
