// Package logger provides structured logging for botscope. It uses Go's
// slog package with configurable levels and formats. Output goes to a file
// rather than stdout, which is owned by the terminal UI.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// New creates a slog Logger writing to the named file and sets it as the
// process default. The returned closer flushes and releases the file.
func New(levelStr, format, file string) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(f, opts)
	} else {
		handler = slog.NewTextHandler(f, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, f, nil
}

// Discard returns a logger that drops everything, for tests and optional
// dependencies.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
