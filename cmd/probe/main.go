// Command probe prints how a single file is detected and parsed: its type,
// the discovered columns and the normalized transactions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/eshaffer321/church-reconciler/internal/cli"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/logging"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		list       = flag.Bool("list", false, "Parse as a contributor list instead of a bank statement")
		verbose    = flag.Bool("verbose", false, "Log rejected rows")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: probe [-list] [-verbose] <file>")
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.NewLoggerWithStage(config.LoggingConfig{Level: level}, "probe")

	cfg, err := cli.LoadConfig(*configFile, logger)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cli.RunProbe(context.Background(), cfg, flag.Arg(0), *list, os.Stdout, logger); err != nil {
		logger.Error("Probe failed", "error", err)
		os.Exit(1)
	}
}
