// Command reconcile runs one reconciliation over local statement and
// contributor-list files and prints the per-church summary.
//
//	reconcile -statement extrato.pdf -church "central=Igreja Central:lista.xlsx" -export ledger.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/church-reconciler/internal/cli"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/logging"
)

func main() {
	flags, err := cli.ParseReconcileFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	level := "info"
	if flags.Verbose {
		level = "debug"
	}
	bootstrap := logging.NewLoggerWithStage(config.LoggingConfig{Level: level}, "reconcile")

	cfg, err := cli.LoadConfig(flags.ConfigFile, bootstrap)
	if err != nil {
		bootstrap.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithStage(loggingCfg, "reconcile")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.RunReconcile(ctx, cfg, flags, os.Stdout, logger); err != nil {
		logger.Error("Reconciliation failed", "error", err)
		os.Exit(1)
	}
}
