// Package logging wraps zerolog with context-carried correlation IDs so that every
// log line emitted while processing a task or a request can be traced back to it.
package logging

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	taskIDKey        contextKey = "task_id"
	correlationIDKey contextKey = "correlation_id"
	loggerKey        contextKey = "logger"
)

var (
	base   zerolog.Logger
	baseMu sync.RWMutex
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Configure sets the process-wide base logger. level is a zerolog level string
// ("debug", "info", "warn", "error"); pretty switches to a human-readable console
// writer instead of JSON (intended for local development only).
func Configure(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	baseMu.Lock()
	base = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	baseMu.Unlock()
}

// Logger returns the process-wide base logger.
func Logger() zerolog.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

// GenerateCorrelationID returns a short, readable correlation id (first 8 hex
// characters of a UUIDv4); good enough for grepping logs, not for global uniqueness.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// WithCorrelationID attaches a correlation id to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// WithTaskID attaches a collection-task id to ctx.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey, id)
}

// WithLogger stores a pre-built logger in ctx, useful when a caller has already
// added fields (e.g. "source") that every subsequent line in a call chain should carry.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns a logger enriched with whatever correlation/task IDs are present on ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	var l zerolog.Logger
	if stored, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		l = stored
	} else {
		l = Logger()
	}
	c := l.With()
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		c = c.Str("correlation_id", id)
	}
	if id, ok := ctx.Value(taskIDKey).(string); ok && id != "" {
		c = c.Str("task_id", id)
	}
	out := c.Logger()
	return &out
}

// Info/Warn/Error/Debug are shorthands for the process-wide base logger, for call
// sites that have no context to thread through (package init, CLI flag parsing).
func Info() *zerolog.Event  { l := Logger(); return l.Info() }
func Warn() *zerolog.Event  { l := Logger(); return l.Warn() }
func Error() *zerolog.Event { l := Logger(); return l.Error() }
func Debug() *zerolog.Event { l := Logger(); return l.Debug() }
