package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger. JSON output when LOG_FORMAT=json,
// readable text otherwise. Records are tagged with the service name and
// environment for aggregated log streams.
func NewLogger(cfg *Config) *slog.Logger {
	env := "development"
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	}
	if cfg != nil {
		env = cfg.AppEnv
	}
	return slog.New(handler).With(slog.String("service", "madaris"), slog.String("env", env))
}
