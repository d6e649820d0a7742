package glr

import (
	"context"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with glr-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithClass adds a class name field to the logger.
func (l *Logger) WithClass(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("class", name),
	}
}

// WithStore adds a class repository field to the logger.
func (l *Logger) WithStore(store string) *Logger {
	return &Logger{
		Logger: l.Logger.With("store", store),
	}
}

// LogLoad logs a class load.
func (l *Logger) LogLoad(ctx context.Context, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "class load failed",
			"class", name,
			"size", humanize.IBytes(uint64(size)),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "class loaded",
			"class", name,
			"size", humanize.IBytes(uint64(size)),
		)
	}
}

// LogGrow logs a class table resize.
func (l *Logger) LogGrow(ctx context.Context, from, to int, err error) {
	if err != nil {
		l.WarnContext(ctx, "class table grow failed",
			"from", from,
			"to", to,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "class table grown",
			"from", from,
			"to", to,
		)
	}
}

// LogFetch logs a class file fetched from a repository.
func (l *Logger) LogFetch(ctx context.Context, name, source string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "class fetch failed",
			"class", name,
			"source", source,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "class fetched",
			"class", name,
			"source", source,
			"size", humanize.IBytes(uint64(size)),
		)
	}
}

// LogPreload logs a preload batch.
func (l *Logger) LogPreload(ctx context.Context, requested, loaded int, err error) {
	if err != nil {
		l.WarnContext(ctx, "preload completed with failures",
			"requested", requested,
			"loaded", loaded,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "preload completed",
			"requested", requested,
			"loaded", loaded,
		)
	}
}
