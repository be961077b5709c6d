package evigo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with evigo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithQueryID adds a query id field to the logger.
func (l *Logger) WithQueryID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("query_id", id),
	}
}

// WithEntityType adds an entity type field to the logger.
func (l *Logger) WithEntityType(entityType string) *Logger {
	return &Logger{
		Logger: l.Logger.With("entity_type", entityType),
	}
}

// LogDefine logs the definition of an entity collection.
func (l *Logger) LogDefine(ctx context.Context, entityType string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "define entity failed",
			"entity_type", entityType,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "entity defined",
			"entity_type", entityType,
		)
	}
}

// LogUpsert logs an upsert operation.
func (l *Logger) LogUpsert(ctx context.Context, entityType string, pk uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upsert failed",
			"entity_type", entityType,
			"pk", pk,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "upsert completed",
			"entity_type", entityType,
			"pk", pk,
		)
	}
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, entityType string, pk uint32, removed bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"entity_type", entityType,
			"pk", pk,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"entity_type", entityType,
			"pk", pk,
			"removed", removed,
		)
	}
}

// LogIndexSelection logs the compared index alternatives of a query.
func (l *Logger) LogIndexSelection(ctx context.Context, alternatives []string, chosen string) {
	l.DebugContext(ctx, "index selection completed",
		"alternatives", alternatives,
		"chosen", chosen,
	)
}

// LogQuery logs a query.
func (l *Logger) LogQuery(ctx context.Context, q string, results int, cost int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"query", q,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"query", q,
			"results", results,
			"cost", cost,
		)
	}
}
