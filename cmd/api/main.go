// Command api serves the reconciliation HTTP API.
package main

import (
	"log/slog"
	"os"

	"github.com/eshaffer321/church-reconciler/internal/cli"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/logging"
)

func main() {
	flags := cli.ParseServeFlags()

	bootstrap := logging.NewLoggerWithStage(config.LoggingConfig{Level: "info"}, "api")
	cfg, err := cli.LoadConfig(flags.ConfigFile, bootstrap)
	if err != nil {
		bootstrap.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := cli.RunServe(cfg, flags); err != nil {
		bootstrap.Error("Server failed", slog.Any("error", err))
		os.Exit(1)
	}
}
