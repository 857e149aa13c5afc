// Package reconcile runs a complete reconciliation: ingest the bank
// statements and every church's contributor list, load the learned
// associations once, match, and hand back a Session that owns the results
// until they are finalized.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/church-reconciler/internal/application/ingestion"
	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/church-reconciler/internal/domain/probe"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// Runner executes reconciliation runs
type Runner struct {
	statements   *ingestion.Orchestrator
	contributors *ingestion.Orchestrator
	matcher      *matcher.Matcher
	store        AssociationStore
	workers      int
	logger       *slog.Logger
}

// NewRunner creates a runner. store may be nil, in which case no learned
// associations are read or written.
func NewRunner(opts Options, store AssociationStore, logger *slog.Logger) *Runner {
	listOpts := opts.Ingestion
	listOpts.Policy = resolver.ListPolicy

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	return &Runner{
		statements:   ingestion.NewOrchestrator(opts.Ingestion, logger.With("role", RoleStatement)),
		contributors: ingestion.NewOrchestrator(listOpts, logger.With("role", RoleContributors)),
		matcher:      matcher.NewMatcher(opts.Matching),
		store:        store,
		workers:      workers,
		logger:       logger,
	}
}

// Matcher returns the matcher used by the runner's sessions
func (r *Runner) Matcher() *matcher.Matcher {
	return r.matcher
}

// ingested pairs a file's report with its parsed output (nil on failure)
type ingested struct {
	report FileReport
	result *ingestion.Result
}

// Run ingests, matches and returns the session. Per-file failures are
// reported in the session's Report; only cancellation and association
// loading errors fail the run.
func (r *Runner) Run(ctx context.Context, in Input, progress Progress) (*Session, error) {
	if progress == nil {
		progress = func(Phase, int, int) {}
	}

	statements, err := r.ingestAll(ctx, r.statements, in.Statements, PhaseStatements, progress)
	if err != nil {
		return nil, err
	}

	var listFiles []ingest.File
	var owners []matcher.Church
	for _, c := range in.Churches {
		for _, f := range c.Files {
			listFiles = append(listFiles, f)
			owners = append(owners, c.Church)
		}
	}
	lists, err := r.ingestAll(ctx, r.contributors, listFiles, PhaseContributors, progress)
	if err != nil {
		return nil, err
	}

	report := Report{}
	transactions := make([]matcher.Transaction, 0)
	for i := range statements {
		s := &statements[i]
		s.report.Role = RoleStatement
		if s.result != nil {
			for j, nt := range s.result.Transactions {
				switch {
				case nt.Amount < 0:
					s.report.Expenses++
					report.Expenses++
				case nt.Amount > 0:
					report.Transactions++
				}
				tx := matcher.NewTransaction(in.Statements[i].Name, s.result.Drafts[j].SourceRowIndex, nt, r.matcher.Config().IgnoreKeywords)
				transactions = append(transactions, tx)
			}
		}
		report.Files = append(report.Files, s.report)
	}

	files := make([]matcher.ContributorFile, 0, len(in.Churches))
	fileIndex := make(map[string]int, len(in.Churches))
	for _, c := range in.Churches {
		if _, seen := fileIndex[c.Church.ID]; seen {
			continue
		}
		fileIndex[c.Church.ID] = len(files)
		files = append(files, matcher.ContributorFile{Church: c.Church, Contributors: []matcher.Contributor{}})
	}
	for i := range lists {
		l := &lists[i]
		l.report.Role = RoleContributors
		l.report.ChurchID = owners[i].ID
		if l.result != nil {
			cf := &files[fileIndex[owners[i].ID]]
			for _, nt := range l.result.Transactions {
				cf.Contributors = append(cf.Contributors, matcher.NewContributor(nt, r.matcher.Config().IgnoreKeywords))
				report.Contributors++
			}
		}
		report.Files = append(report.Files, l.report)
	}

	var learned []matcher.LearnedAssociation
	if r.store != nil {
		stored, err := r.store.ListAssociations(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load learned associations: %w", err)
		}
		learned = storage.LearnedAssociations(stored)
	}

	r.logger.Info("Matching transactions",
		"transactions", len(transactions),
		"contributors", report.Contributors,
		"churches", len(files),
		"associations", len(learned),
	)

	results, err := r.matcher.Reconcile(ctx, transactions, files, learned, func(current, total int) {
		progress(PhaseMatching, current, total)
	})
	if err != nil {
		return nil, err
	}

	session := newSession(r.matcher, r.store, r.logger, files, results, report)

	summary := session.Report().Summary
	for _, res := range results {
		if res.Divergence != nil {
			r.logger.Warn("Divergent match",
				"result_id", res.ID,
				"expected_church", res.Divergence.ExpectedChurch.ID,
				"actual_church", res.Divergence.ActualChurch.ID,
			)
		}
	}
	r.logger.Info("Reconciliation complete",
		"identified", summary.Identified,
		"unidentified", summary.Unidentified,
		"pending", summary.Pending,
		"divergent", summary.Divergent,
		"failed_files", report.FailedFiles(),
	)

	return session, nil
}

// ingestAll processes files on a bounded worker pool. Results keep the
// input order. A failing file is recorded in its report and never cancels
// its siblings; cancellation of ctx does.
func (r *Runner) ingestAll(
	ctx context.Context,
	orch *ingestion.Orchestrator,
	files []ingest.File,
	phase Phase,
	progress Progress,
) ([]ingested, error) {
	out := make([]ingested, len(files))
	total := len(files)
	var done atomic.Int64
	progress(phase, 0, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			file := files[i]
			report := FileReport{Name: file.Name}
			res, err := orch.ProcessFile(gctx, file)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.logger.Warn("Failed to ingest file", "file", file.Name, "error", err)
				detection := probe.Detect(file)
				report.Type = detection.Type
				report.Confidence = detection.Confidence
				report.Error = err.Error()
			} else {
				report.Type = res.Detection.Type
				report.Confidence = res.Detection.Confidence
				report.TotalRows = res.Stats.TotalRows
				report.AcceptedRows = res.Stats.AcceptedRows
				report.RejectedRows = res.Stats.RejectedRows
				report.RejectReasons = res.Stats.RejectReasons
			}
			out[i] = ingested{report: report, result: res}

			progress(phase, int(done.Add(1)), total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
