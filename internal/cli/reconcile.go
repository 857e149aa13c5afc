package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/application/report"
	"github.com/eshaffer321/church-reconciler/internal/application/service"
	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// ReadFile loads a local file as an upload
func ReadFile(path string) (ingest.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ingest.File{Name: filepath.Base(path), Data: data}, nil
}

// BuildInput reads every statement and contributor list named by the flags
func BuildInput(flags ReconcileFlags) (reconcile.Input, error) {
	var in reconcile.Input
	for _, path := range flags.Statements {
		f, err := ReadFile(path)
		if err != nil {
			return in, err
		}
		in.Statements = append(in.Statements, f)
	}
	for _, c := range flags.Churches {
		ci := reconcile.ChurchInput{Church: matcher.Church{ID: c.ID, Name: c.Name}}
		for _, path := range c.Files {
			f, err := ReadFile(path)
			if err != nil {
				return in, err
			}
			ci.Files = append(ci.Files, f)
		}
		in.Churches = append(in.Churches, ci)
	}
	return in, nil
}

// RunReconcile runs one reconciliation over local files, prints the summary
// to out and optionally writes the CSV ledger.
func RunReconcile(ctx context.Context, cfg *config.Config, flags ReconcileFlags, out io.Writer, logger *slog.Logger) error {
	opts := RunOptions(cfg)

	in, err := BuildInput(flags)
	if err != nil {
		return err
	}

	var store storage.Repository
	if !flags.NoStore {
		s, err := storage.Open(ctx, cfg.Storage, logger)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	req := service.Request{Input: in}
	if flags.SimilarityThreshold > 0 {
		req.SimilarityThreshold = &flags.SimilarityThreshold
		opts.Matching.SimilarityThreshold = flags.SimilarityThreshold
	}
	if flags.DayTolerance >= 0 {
		req.DayTolerance = &flags.DayTolerance
		opts.Matching.DayTolerance = flags.DayTolerance
	}

	PrintHeader(out, "reconcile", store != nil)
	PrintConfiguration(out, opts, len(in.Statements), len(in.Churches))

	svc := service.NewReconciliationService(RunOptions(cfg), store, logger)
	jobID, err := svc.StartReconciliation(ctx, req)
	if err != nil {
		return err
	}

	job, err := svc.WaitForJob(ctx, jobID, 50*time.Millisecond)
	if err != nil {
		_ = svc.CancelReconciliation(jobID)
		return err
	}
	if job.Status != service.StatusCompleted {
		if job.Error != nil {
			return fmt.Errorf("reconciliation %s: %w", job.Status, job.Error)
		}
		return fmt.Errorf("reconciliation %s", job.Status)
	}

	results := job.Session.Results()
	rep := job.Session.Report()
	PrintSummary(out, rep, report.Build(results, rep))

	if flags.ExportPath != "" {
		if err := exportCSV(flags.ExportPath, out, results, rep, []rune(flags.Delimiter)[0]); err != nil {
			return err
		}
	}
	return nil
}

func exportCSV(path string, stdout io.Writer, results []matcher.MatchResult, rep reconcile.Report, comma rune) error {
	if path == "-" {
		return report.WriteCSV(stdout, results, rep, comma)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.WriteCSV(f, results, rep, comma); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "\nLedger written to %s\n", path)
	return nil
}
