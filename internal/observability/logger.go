// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability builds the structured logger and Prometheus metrics
// shared by the pipeline, the HTTP server and the scheduler.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// NewLogger creates a zerolog logger from cfg. Console and pretty formats
// use zerolog's human-readable writer; anything else writes JSON lines.
func NewLogger(cfg types.LoggingConfig) zerolog.Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}
	return NewLoggerTo(output, cfg)
}

// NewLoggerTo is NewLogger with an explicit destination.
func NewLoggerTo(output io.Writer, cfg types.LoggingConfig) zerolog.Logger {
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names map to
// info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// WithRunContext adds run fields to a logger.
func WithRunContext(logger zerolog.Logger, runID, topic string) zerolog.Logger {
	return logger.With().
		Str("run_id", runID).
		Str("topic", topic).
		Logger()
}
