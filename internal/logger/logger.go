// Package logger wires the process-wide slog default.
package logger

import (
	"log/slog"
	"os"
)

// Init installs a text handler on stderr as the slog default. Debug turns
// on debug-level records.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
