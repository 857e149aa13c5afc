package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/eshaffer321/church-reconciler/internal/application/ingestion"
	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/application/report"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, command string, persist bool) {
	mode := "LEARNING"
	if !persist {
		mode = "NO-STORE"
	}
	fmt.Fprintf(w, "church-reconciler: %s (%s mode)\n", command, mode)
}

// PrintConfiguration prints the matching configuration of a run
func PrintConfiguration(w io.Writer, opts reconcile.Options, statements, churches int) {
	fmt.Fprintf(w, "Statements: %d | Churches: %d | Threshold: %.0f | Tolerance: %d days\n\n",
		statements, churches, opts.Matching.SimilarityThreshold, opts.Matching.DayTolerance)
}

// PrintSummary prints per-file outcomes, the result counts and the church totals
func PrintSummary(w io.Writer, rep reconcile.Report, s report.Summary) {
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for _, f := range rep.Files {
		if f.Error != "" {
			fmt.Fprintf(w, "  ✗ %-30s %s\n", f.Name, f.Error)
			continue
		}
		fmt.Fprintf(w, "  ✓ %-30s %s rows=%d accepted=%d rejected=%d\n",
			f.Name, f.Type, f.TotalRows, f.AcceptedRows, f.RejectedRows)
	}

	fmt.Fprintf(w, "\nSummary: Identified=%d (%s) Unidentified=%d (%s) Pending=%d Divergent=%d\n",
		s.Identified, s.IdentifiedTotal.StringFixed(2),
		s.Unidentified, s.UnidentifiedTotal.StringFixed(2),
		s.Ghosts, s.Divergent)
	fmt.Fprintf(w, "Excluded rows=%d Expenses=%d Failed files=%d\n", s.ExcludedRows, s.Expenses, s.FailedFiles)

	if len(s.Churches) > 0 {
		fmt.Fprintln(w, "\nChurches:")
		for _, ct := range s.Churches {
			fmt.Fprintf(w, "  - %-25s identified=%d received=%s pending=%d expected=%s\n",
				ct.Church.Name, ct.Identified, ct.Received.StringFixed(2), ct.Pending, ct.Expected.StringFixed(2))
		}
	}
}

// PrintProbe prints the detection and the normalized transactions of one file
func PrintProbe(w io.Writer, name string, res *ingestion.Result) {
	fmt.Fprintf(w, "%s: %s (%s confidence, %s)\n", name, res.Detection.Type, res.Detection.Confidence, res.Detection.MIMEType)
	fmt.Fprintf(w, "Layout: date=%d amount=%d name=%d anchor_year=%d\n",
		res.Layout.DateColumn, res.Layout.AmountColumn, res.Layout.NameColumn, res.Layout.AnchorYear)
	fmt.Fprintf(w, "Rows: total=%d accepted=%d rejected=%d\n",
		res.Stats.TotalRows, res.Stats.AcceptedRows, res.Stats.RejectedRows)

	reasons := make([]string, 0, len(res.Stats.RejectReasons))
	for reason, n := range res.Stats.RejectReasons {
		reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(reasons)
	if len(reasons) > 0 {
		fmt.Fprintf(w, "Rejections: %s\n", strings.Join(reasons, " "))
	}

	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, tx := range res.Transactions {
		fmt.Fprintf(w, "%-10s  %12.2f  %s\n", tx.Date, tx.Amount, tx.Name)
	}
}
