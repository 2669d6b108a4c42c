package lexgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with lexgo-specific context.
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

// WithIndex adds an index name field to the logger.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index", name),
	}
}

// LogOpen logs a database open.
func (l *Logger) LogOpen(path string, inMemory bool) {
	if inMemory {
		l.Info("database opened", "store", "memory")
		return
	}
	l.Info("database opened", "store", "bolt", "path", path)
}

// LogBatch logs the outcome of an update batch.
func (l *Logger) LogBatch(ctx context.Context, index string, indexed, replaced, deleted, failed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch failed",
			"index", index,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "batch applied",
		"index", index,
		"indexed", indexed,
		"replaced", replaced,
		"deleted", deleted,
		"failed", failed,
	)
}

// LogSearch logs the outcome of a search.
func (l *Logger) LogSearch(ctx context.Context, index, query string, total int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"index", index,
			"query", query,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"index", index,
		"query", query,
		"total", total,
	)
}
