// Package logger provides structured logging functionality for the
// application, plus helpers for carrying a request- or event-scoped logger
// through a context.Context.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Config holds the settings needed to initialize the logging system.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	Level string
}

// Setup initializes the application's logging system. It creates a
// structured JSON logger writing to stdout at the configured level, sets it
// as the process default, and returns it.
//
// An unknown level falls back to info with a warning rather than failing
// startup.
func Setup(cfg Config) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo

		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)

	return log, nil
}

// loggerContextKey is the private context key for the scoped logger.
type loggerContextKey struct{}

// WithLogger returns a context carrying the given logger. Handlers and
// pipeline stages attach per-request or per-event attributes once and pass
// the context down.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext retrieves the logger carried by the context, falling back to
// the process default logger when none is set.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger carried by the context, falling
// back to the provided logger, then to the process default.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
