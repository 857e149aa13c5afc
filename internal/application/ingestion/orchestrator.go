// Package ingestion composes probe, reader, parser and normalizer into the
// single-file ingestion pipeline.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eshaffer321/church-reconciler/internal/adapters/readers"
	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/normalizer"
	"github.com/eshaffer321/church-reconciler/internal/domain/parser"
	"github.com/eshaffer321/church-reconciler/internal/domain/probe"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

// Options tunes column discovery and PDF line reconstruction
type Options struct {
	SampleRows      int
	MinNumericRatio float64
	LineGranularity float64
	Policy          resolver.Policy
}

// DefaultOptions returns the options used for bank statements
func DefaultOptions() Options {
	return Options{
		SampleRows:      resolver.DefaultSampleSize,
		MinNumericRatio: resolver.DefaultMinNumericRatio,
		LineGranularity: readers.DefaultLineGranularity,
		Policy:          resolver.StrictPolicy,
	}
}

// Result is the outcome of ingesting one file
type Result struct {
	Detection    probe.Result
	Drafts       []ingest.TransactionDraft
	Transactions []ingest.NormalizedTransaction
	Layout       parser.Layout
	Stats        parser.Stats
}

// pipeline reads and parses one file of a known type
type pipeline func(ctx context.Context, file ingest.File) (*parser.Result, error)

// Orchestrator dispatches files to the reader/parser pair of their detected type
type Orchestrator struct {
	pipelines map[ingest.FileType]pipeline
	logger    *slog.Logger
}

// NewOrchestrator wires every supported file type to its reader and parser
func NewOrchestrator(opts Options, logger *slog.Logger) *Orchestrator {
	tabular := parser.NewTabularParser(opts.Policy)
	if opts.SampleRows > 0 {
		tabular.Dates.SampleSize = opts.SampleRows
		tabular.Amounts.SampleSize = opts.SampleRows
		tabular.Names.SampleSize = opts.SampleRows
	}
	if opts.MinNumericRatio > 0 {
		tabular.Amounts.MinNumericRatio = opts.MinNumericRatio
	}
	lines := parser.NewLineParser(tabular)
	ofx := parser.NewOFXParser()

	spreadsheet := readers.NewSpreadsheetReader()
	delimited := readers.NewDelimitedReader()
	pdfReader := readers.NewPDFReader(opts.LineGranularity)
	ofxReader := readers.NewTextReader(ingest.FileTypeOFX)
	txtReader := readers.NewTextReader(ingest.FileTypeTXT)

	return &Orchestrator{
		logger: logger,
		pipelines: map[ingest.FileType]pipeline{
			ingest.FileTypeXLSX: func(ctx context.Context, f ingest.File) (*parser.Result, error) {
				doc, err := spreadsheet.ReadRaw(f)
				if err != nil {
					return nil, err
				}
				return tabular.Parse(ctx, doc.Content)
			},
			ingest.FileTypeCSV: func(ctx context.Context, f ingest.File) (*parser.Result, error) {
				doc, err := delimited.ReadRaw(f)
				if err != nil {
					return nil, err
				}
				return tabular.Parse(ctx, doc.Content)
			},
			ingest.FileTypePDF: func(ctx context.Context, f ingest.File) (*parser.Result, error) {
				doc, err := pdfReader.ReadRaw(f)
				if err != nil {
					return nil, err
				}
				return lines.Parse(ctx, doc.Content)
			},
			ingest.FileTypeOFX: func(ctx context.Context, f ingest.File) (*parser.Result, error) {
				doc, err := ofxReader.ReadRaw(f)
				if err != nil {
					return nil, err
				}
				return ofx.Parse(ctx, doc.Content)
			},
			ingest.FileTypeTXT: func(ctx context.Context, f ingest.File) (*parser.Result, error) {
				doc, err := txtReader.ReadRaw(f)
				if err != nil {
					return nil, err
				}
				return lines.Parse(ctx, splitLines(doc.Content))
			},
		},
	}
}

// ProcessFile runs probe, reader, parser and normalizer for one file.
// Files whose detected type has no pipeline fail with ingest.ErrUnsupportedFormat.
func (o *Orchestrator) ProcessFile(ctx context.Context, file ingest.File) (*Result, error) {
	detection := probe.Detect(file)
	logger := o.logger.With("file", file.Name)
	logger.Debug("Detected file type",
		"type", detection.Type,
		"confidence", detection.Confidence,
		"size", file.Size(),
	)

	run, ok := o.pipelines[detection.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s detected as %s", ingest.ErrUnsupportedFormat, file.Name, detection.Type)
	}

	parsed, err := run(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", file.Name, err)
	}

	for _, rej := range parsed.Rejections {
		logger.Debug("Rejected row", "row", rej.Row, "reason", rej.Reason)
	}
	logger.Info("Ingested file",
		"type", detection.Type,
		"accepted", parsed.Stats.AcceptedRows,
		"rejected", parsed.Stats.RejectedRows,
	)

	return &Result{
		Detection:    detection,
		Drafts:       parsed.Drafts,
		Transactions: normalizer.Normalize(parsed.Drafts),
		Layout:       parsed.Layout,
		Stats:        parsed.Stats,
	}, nil
}

// SupportedTypes lists the file types that have a pipeline
func (o *Orchestrator) SupportedTypes() []ingest.FileType {
	out := make([]ingest.FileType, 0, len(o.pipelines))
	for _, t := range []ingest.FileType{
		ingest.FileTypePDF, ingest.FileTypeXLSX, ingest.FileTypeCSV, ingest.FileTypeOFX, ingest.FileTypeTXT,
	} {
		if _, ok := o.pipelines[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
