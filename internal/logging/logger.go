// Package logging configures the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// NewLogger creates a logger writing to stderr so stdout stays clean
// for the wrapped tool. Verbose mode lowers the level to debug;
// production environments get JSON output.
func NewLogger(environment string, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
