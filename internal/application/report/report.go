// Package report turns a reconciliation's results into a per-church ledger:
// a CSV export for the treasurer and decimal totals for the summary.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

// Header is the column order of the ledger export
var Header = []string{
	"church", "status", "method", "date", "description", "contributor",
	"amount", "contributor_amount", "similarity", "divergence",
}

// unassigned groups results with no church, listed after every church
const unassigned = "(sem igreja)"

// ChurchTotal sums the results assigned to one church
type ChurchTotal struct {
	Church     matcher.Church  `json:"church"`
	Identified int             `json:"identified"`
	Received   decimal.Decimal `json:"received"` // identified transactions
	Pending    int             `json:"pending"`
	Expected   decimal.Decimal `json:"expected"` // PENDENTE contributor amounts
}

// Summary is the reconciliation outcome with money totals
type Summary struct {
	Identified        int             `json:"identified"`
	Unidentified      int             `json:"unidentified"`
	Ghosts            int             `json:"ghosts"`
	Divergent         int             `json:"divergent"`
	ExcludedRows      int             `json:"excluded_rows"`
	Expenses          int             `json:"expenses"`
	FailedFiles       int             `json:"failed_files"`
	IdentifiedTotal   decimal.Decimal `json:"identified_total"`
	UnidentifiedTotal decimal.Decimal `json:"unidentified_total"`
	Churches          []ChurchTotal   `json:"churches"`
}

// Build computes the summary of a run. Amounts are summed as decimals
// rounded to cents, so totals match the statement to the cent.
func Build(results []matcher.MatchResult, rep reconcile.Report) Summary {
	s := Summary{
		ExcludedRows:      rep.RejectedRows(),
		Expenses:          rep.Expenses,
		FailedFiles:       rep.FailedFiles(),
		IdentifiedTotal:   decimal.Zero,
		UnidentifiedTotal: decimal.Zero,
	}

	byChurch := make(map[string]*ChurchTotal)
	total := func(c *matcher.Church) *ChurchTotal {
		ct, ok := byChurch[c.ID]
		if !ok {
			ct = &ChurchTotal{Church: *c, Received: decimal.Zero, Expected: decimal.Zero}
			byChurch[c.ID] = ct
		}
		return ct
	}

	for i := range results {
		r := &results[i]
		if r.Divergence != nil {
			s.Divergent++
		}
		switch r.Status {
		case matcher.StatusIdentified:
			s.Identified++
			if r.Transaction == nil {
				continue
			}
			amount := cents(r.Transaction.Amount)
			s.IdentifiedTotal = s.IdentifiedTotal.Add(amount)
			if r.Church != nil {
				ct := total(r.Church)
				ct.Identified++
				ct.Received = ct.Received.Add(amount)
			}
		case matcher.StatusUnidentified:
			s.Unidentified++
			if r.Transaction != nil {
				s.UnidentifiedTotal = s.UnidentifiedTotal.Add(cents(r.Transaction.Amount))
			}
		case matcher.StatusPending:
			s.Ghosts++
			if r.Church != nil {
				ct := total(r.Church)
				ct.Pending++
				ct.Expected = ct.Expected.Add(cents(r.ContributorAmount))
			}
		}
	}

	for _, ct := range byChurch {
		s.Churches = append(s.Churches, *ct)
	}
	sort.Slice(s.Churches, func(i, j int) bool {
		if s.Churches[i].Church.Name != s.Churches[j].Church.Name {
			return s.Churches[i].Church.Name < s.Churches[j].Church.Name
		}
		return s.Churches[i].Church.ID < s.Churches[j].Church.ID
	})
	return s
}

// WriteCSV writes the ledger grouped by church (sorted by name, results with
// no church last), each group in result order, followed by the summary rows.
// comma is the field delimiter; 0 means ';', which spreadsheet software in
// pt-BR locales opens without an import dialog.
func WriteCSV(w io.Writer, results []matcher.MatchResult, rep reconcile.Report, comma rune) error {
	if comma == 0 {
		comma = ';'
	}
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	ordered := make([]matcher.MatchResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return groupKey(ordered[i]) < groupKey(ordered[j])
	})

	for _, r := range ordered {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write result %s: %w", r.ID, err)
		}
	}

	summary := Build(results, rep)
	footer := [][]string{
		{},
		{"summary", "identified", strconv.Itoa(summary.Identified), "", "", "", summary.IdentifiedTotal.StringFixed(2)},
		{"summary", "unidentified", strconv.Itoa(summary.Unidentified), "", "", "", summary.UnidentifiedTotal.StringFixed(2)},
		{"summary", "ghosts", strconv.Itoa(summary.Ghosts)},
		{"summary", "divergent", strconv.Itoa(summary.Divergent)},
		{"summary", "excluded_rows", strconv.Itoa(summary.ExcludedRows)},
	}
	for _, ct := range summary.Churches {
		footer = append(footer, []string{
			"total", ct.Church.Name, strconv.Itoa(ct.Identified), "", "", "",
			ct.Received.StringFixed(2), ct.Expected.StringFixed(2),
		})
	}
	if err := cw.WriteAll(footer); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// groupKey sorts churches by name, with the unassigned group last
func groupKey(r matcher.MatchResult) string {
	if r.Church == nil {
		return "\xff"
	}
	return r.Church.Name + "\x00" + r.Church.ID
}

func row(r matcher.MatchResult) []string {
	church := unassigned
	if r.Church != nil {
		church = r.Church.Name
	}
	var date, description, amount string
	if r.Transaction != nil {
		date = r.Transaction.Date
		description = r.Transaction.Description
		amount = cents(r.Transaction.Amount).StringFixed(2)
	}
	var contributor, contributorAmount string
	if r.Contributor != nil {
		contributor = r.Contributor.Name
		if date == "" {
			date = r.Contributor.Date
		}
		contributorAmount = cents(r.ContributorAmount).StringFixed(2)
	}
	similarity := ""
	if r.Status == matcher.StatusIdentified {
		similarity = strconv.FormatFloat(r.Similarity, 'f', 1, 64)
	}
	divergence := ""
	if r.Divergence != nil {
		divergence = fmt.Sprintf("expected %s", r.Divergence.ExpectedChurch.Name)
	}

	return []string{
		church, string(r.Status), string(r.Method), date, description, contributor,
		amount, contributorAmount, similarity, divergence,
	}
}

func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
