// Package logging provides structured logging utilities.
//
// Text logs are formatted for a console with optional colors:
// [LEVEL] [STAGE] [HH:MM:SS] message key=value
//
// The "json" format emits one slog JSON object per line for log shippers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
)

// StageKey is the attribute shown in brackets instead of as key=value
const StageKey = "stage"

// ParseLevel maps a config level name to a slog level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured logger writing to stderr based on config.
// Stdout is left free for CLI output such as CSV exports.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return New(cfg, os.Stderr)
}

// New creates a structured logger writing to w
func New(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = NewConsoleHandler(w, opts)
	}
	return slog.New(handler)
}

// NewLoggerWithStage creates a logger scoped to a pipeline stage
// (e.g., "ingest", "match", "api")
func NewLoggerWithStage(cfg config.LoggingConfig, stage string) *slog.Logger {
	return NewLogger(cfg).With(StageKey, stage)
}
