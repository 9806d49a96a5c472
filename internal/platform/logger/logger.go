package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Services take a *slog.Logger so
// tests can pass slog.New(slog.DiscardHandler) or capture output.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
