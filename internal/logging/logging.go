// Package logging provides structured logging setup for estate-crm.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a logger writing to w. Dev mode uses human-readable text at
// debug level; otherwise JSON at info level.
func New(w io.Writer, devMode bool) *slog.Logger {
	var handler slog.Handler
	if devMode {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return slog.New(handler)
}

// Setup initializes the default slog logger on stderr and returns it.
// Stdout stays free for command output.
func Setup(devMode bool) *slog.Logger {
	logger := New(os.Stderr, devMode)
	slog.SetDefault(logger)
	return logger
}
