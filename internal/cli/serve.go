package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/church-reconciler/internal/adapters/clients"
	"github.com/eshaffer321/church-reconciler/internal/api"
	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/application/service"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/logging"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// cleanupInterval is how often stale and expired jobs are swept
const cleanupInterval = 5 * time.Minute

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithStage(loggingCfg, "api")

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	c, err := clients.NewClients(ctx, cfg, logger)
	if err != nil {
		return err
	}
	// a nil *gemini.Suggester must not become a non-nil interface
	var suggester reconcile.Suggester
	if c.Suggester != nil {
		suggester = c.Suggester
	}

	svc := service.NewReconciliationService(RunOptions(cfg), store, logger.With(logging.StageKey, "service"))
	svc.StartBackgroundCleanup(cleanupInterval)
	defer svc.StopBackgroundCleanup()

	apiCfg := api.Config{
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
		MaxUploadMB:    cfg.API.MaxUploadMB,
	}
	if flags.Port > 0 {
		apiCfg.Port = flags.Port
	}
	if len(apiCfg.AllowedOrigins) == 0 {
		apiCfg.AllowedOrigins = api.DefaultConfig().AllowedOrigins
	}

	server := api.NewServer(apiCfg, store, svc, suggester, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
