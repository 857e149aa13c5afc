package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
)

func TestRunOptions(t *testing.T) {
	t.Run("config values override defaults", func(t *testing.T) {
		cfg := &config.Config{
			Matching:  config.MatchingConfig{SimilarityThreshold: 70, DayTolerance: 0, IgnoreKeywords: []string{"OFERTA"}},
			Ingestion: config.IngestionConfig{SampleRows: 50, MinNumericRatio: 0.3, PDFLineGranularity: 2, Workers: 8},
		}

		opts := RunOptions(cfg)

		assert.Equal(t, 70.0, opts.Matching.SimilarityThreshold)
		assert.Equal(t, 0, opts.Matching.DayTolerance)
		assert.Equal(t, []string{"OFERTA"}, opts.Matching.IgnoreKeywords)
		assert.Equal(t, 50, opts.Ingestion.SampleRows)
		assert.Equal(t, 0.3, opts.Ingestion.MinNumericRatio)
		assert.Equal(t, 2.0, opts.Ingestion.LineGranularity)
		assert.Equal(t, 8, opts.Workers)
	})

	t.Run("unset values keep defaults", func(t *testing.T) {
		defaults := reconcile.DefaultOptions()

		opts := RunOptions(&config.Config{Matching: config.MatchingConfig{DayTolerance: -1}})

		assert.Equal(t, defaults, opts)
	})
}
