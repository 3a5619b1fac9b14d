// Package logging builds the structured loggers used by dispatchers and the CLI.
package logging

import (
	"io"
	"log/slog"

	"github.com/paveg/dispatch/internal/config"
)

// New returns a slog logger writing to w in the format selected by cfg.
// VerboseLogging lowers the level to Debug.
func New(w io.Writer, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(cfg)}

	var handler slog.Handler
	if cfg.LogFormat == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Level maps the configuration onto a slog level.
func Level(cfg config.Config) slog.Level {
	if cfg.VerboseLogging {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
