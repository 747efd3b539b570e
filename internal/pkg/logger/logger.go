package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a JSON slog.Logger writing to w. Debug level is enabled outside production.
func Setup(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if env != "production" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetupDefault installs the JSON logger as the process-wide default. A nil w means os.Stdout.
func SetupDefault(w io.Writer, env string) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w, env))
}
