package parser

import (
	"context"
	"strings"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

// TabularParser converts header-less rows of cells into drafts
type TabularParser struct {
	Dates     *resolver.DateResolver
	Amounts   *resolver.AmountResolver
	Names     *resolver.NameResolver
	Validator *resolver.RowValidator
}

// NewTabularParser creates a parser with default resolvers and the given row policy
func NewTabularParser(policy resolver.Policy) *TabularParser {
	return &TabularParser{
		Dates:     resolver.NewDateResolver(),
		Amounts:   resolver.NewAmountResolver(),
		Names:     resolver.NewNameResolver(),
		Validator: resolver.NewRowValidator(policy),
	}
}

// DiscoverLayout runs anchor-year and column discovery once for the document.
// The date column is excluded before scoring amounts, and both before scoring
// names, so the date column is never counted as a numeric or text candidate.
func (p *TabularParser) DiscoverLayout(rows [][]string) Layout {
	layout := Layout{AnchorYear: p.Dates.DiscoverAnchorYear(rows)}
	layout.DateColumn = p.Dates.IdentifyColumn(rows)
	layout.AmountColumn = p.Amounts.IdentifyColumn(rows, layout.DateColumn)
	layout.NameColumn = p.Names.IdentifyColumn(rows, layout.DateColumn, layout.AmountColumn)
	return layout
}

// Parse emits one draft per valid row, in source order. Cancellation is
// checked between rows.
func (p *TabularParser) Parse(ctx context.Context, rows [][]string) (*Result, error) {
	result := newResult(len(rows))
	if len(rows) == 0 {
		return result, nil
	}

	layout := p.DiscoverLayout(rows)
	result.Layout = layout
	validator := resolver.NewRowValidator(p.Validator.Policy.ForLayout(layout.DateColumn >= 0, layout.AmountColumn >= 0))

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		isoDate := resolver.InvalidDate
		if layout.DateColumn >= 0 {
			isoDate = p.Dates.ResolveToISO(resolver.Cell(row, layout.DateColumn), layout.AnchorYear)
		}
		amount := resolver.ZeroAmount
		if layout.AmountColumn >= 0 {
			amount = p.Amounts.Clean(resolver.Cell(row, layout.AmountColumn))
		}
		name := strings.TrimSpace(resolver.Cell(row, layout.NameColumn))

		if reason := validator.Validate(isoDate, name, amount, row); reason != resolver.ReasonNone {
			result.reject(i, reason)
			continue
		}

		confidence := ingest.ConfidenceHigh
		if !validator.FullyValidated(isoDate, amount, row) {
			confidence = ingest.ConfidenceLow
		}

		result.accept(ingest.TransactionDraft{
			RawDate:        isoDate,
			RawDescription: name,
			RawAmount:      amount,
			SourceRowIndex: i,
			Metadata: ingest.DraftMetadata{
				IsExpense:         strings.HasPrefix(amount, "-"),
				ParsingConfidence: confidence,
			},
		})
	}

	return result, nil
}
