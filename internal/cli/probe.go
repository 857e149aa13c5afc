package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/eshaffer321/church-reconciler/internal/application/ingestion"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
)

// RunProbe ingests one file and prints what the pipeline made of it.
// list switches to the relaxed policy used for contributor lists.
func RunProbe(ctx context.Context, cfg *config.Config, path string, list bool, out io.Writer, logger *slog.Logger) error {
	file, err := ReadFile(path)
	if err != nil {
		return err
	}

	opts := RunOptions(cfg).Ingestion
	if list {
		opts.Policy = resolver.ListPolicy
	}

	res, err := ingestion.NewOrchestrator(opts, logger).ProcessFile(ctx, file)
	if err != nil {
		return err
	}

	PrintProbe(out, file.Name, res)
	return nil
}
