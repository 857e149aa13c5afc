// Package normalizer converts parser drafts into the terminal three-field
// transaction record.
package normalizer

import (
	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

// Normalize maps every draft to a NormalizedTransaction, preserving order.
// It never drops a draft; rows were already validated upstream. Drafts with
// no usable date (name-only contributor lists) get an empty Date.
func Normalize(drafts []ingest.TransactionDraft) []ingest.NormalizedTransaction {
	out := make([]ingest.NormalizedTransaction, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, NormalizeOne(d))
	}
	return out
}

// NormalizeOne converts a single draft
func NormalizeOne(d ingest.TransactionDraft) ingest.NormalizedTransaction {
	date := d.RawDate
	if date == resolver.InvalidDate {
		date = ""
	}
	return ingest.NormalizedTransaction{
		Date:   date,
		Name:   resolver.CleanName(d.RawDescription),
		Amount: resolver.ParseAmount(d.RawAmount),
	}
}
