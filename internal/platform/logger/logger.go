package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. BONDLY_LOG_LEVEL selects the level; output
// is JSON on stdout.
func New() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("BONDLY_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
