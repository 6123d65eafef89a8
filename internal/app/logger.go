package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger based on configuration.
// Every record carries the service name and environment so voltlead and
// worker output can be told apart in a shared log sink.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	env := "development"
	format := ""
	if cfg != nil {
		env = cfg.AppEnv
		format = cfg.LogFormat
	}

	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(
		slog.String("service", "voltlead"),
		slog.String("env", env),
	)
}
