package reconcile

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// LedgerSink persists finalized results as ledger entries of a run
type LedgerSink struct {
	repo  storage.LedgerRepository
	runID int64
}

// NewLedgerSink creates a sink writing to the run's ledger
func NewLedgerSink(repo storage.LedgerRepository, runID int64) *LedgerSink {
	return &LedgerSink{repo: repo, runID: runID}
}

// Accept converts and saves the results
func (s *LedgerSink) Accept(ctx context.Context, results []matcher.MatchResult) error {
	if len(results) == 0 {
		return nil
	}
	return s.repo.SaveLedgerEntries(ctx, s.runID, LedgerEntries(results))
}

// LedgerEntries converts identified transaction results to ledger entries.
// Results without a transaction or church are skipped.
func LedgerEntries(results []matcher.MatchResult) []storage.LedgerEntry {
	entries := make([]storage.LedgerEntry, 0, len(results))
	for _, r := range results {
		if r.Transaction == nil || r.Church == nil {
			continue
		}
		e := storage.LedgerEntry{
			ResultID:    r.ID,
			ChurchID:    r.Church.ID,
			ChurchName:  r.Church.Name,
			Date:        r.Transaction.Date,
			Description: r.Transaction.Description,
			Amount:      decimal.NewFromFloat(r.Transaction.Amount).Round(2),
			Method:      string(r.Method),
			Similarity:  r.Similarity,
		}
		if r.Contributor != nil {
			e.ContributorName = r.Contributor.Name
		}
		entries = append(entries, e)
	}
	return entries
}

// SinkFunc adapts a function to FinalizedSink
type SinkFunc func(ctx context.Context, results []matcher.MatchResult) error

// Accept calls f
func (f SinkFunc) Accept(ctx context.Context, results []matcher.MatchResult) error {
	return f(ctx, results)
}
