package cli

import (
	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
)

// RunOptions converts the loaded configuration to run options. Values the
// config leaves unset keep the reconcile defaults.
func RunOptions(cfg *config.Config) reconcile.Options {
	opts := reconcile.DefaultOptions()

	if cfg.Matching.SimilarityThreshold > 0 {
		opts.Matching.SimilarityThreshold = cfg.Matching.SimilarityThreshold
	}
	if cfg.Matching.DayTolerance >= 0 {
		opts.Matching.DayTolerance = cfg.Matching.DayTolerance
	}
	if len(cfg.Matching.IgnoreKeywords) > 0 {
		opts.Matching.IgnoreKeywords = cfg.Matching.IgnoreKeywords
	}

	if cfg.Ingestion.SampleRows > 0 {
		opts.Ingestion.SampleRows = cfg.Ingestion.SampleRows
	}
	if cfg.Ingestion.MinNumericRatio > 0 {
		opts.Ingestion.MinNumericRatio = cfg.Ingestion.MinNumericRatio
	}
	if cfg.Ingestion.PDFLineGranularity > 0 {
		opts.Ingestion.LineGranularity = cfg.Ingestion.PDFLineGranularity
	}
	if cfg.Ingestion.Workers > 0 {
		opts.Workers = cfg.Ingestion.Workers
	}

	return opts
}
