package es

import (
	"context"
	"log/slog"
)

// Logger provides a minimal interface for observability and debugging.
// It is designed to be optional and non-blocking, with zero overhead when
// disabled. Users can implement this interface to integrate their preferred
// logging library.
type Logger interface {
	// Debug logs debug-level information for detailed troubleshooting.
	Debug(ctx context.Context, msg string, keyvals ...interface{})

	// Info logs informational messages about normal operations.
	Info(ctx context.Context, msg string, keyvals ...interface{})

	// Error logs error-level information about failures.
	Error(ctx context.Context, msg string, keyvals ...interface{})
}

// NoOpLogger is a logger that does nothing.
// It can be used as a default when no logging is desired.
type NoOpLogger struct{}

// Debug implements Logger.
func (NoOpLogger) Debug(_ context.Context, _ string, _ ...interface{}) {}

// Info implements Logger.
func (NoOpLogger) Info(_ context.Context, _ string, _ ...interface{}) {}

// Error implements Logger.
func (NoOpLogger) Error(_ context.Context, _ string, _ ...interface{}) {}

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	L *slog.Logger
}

// NewSlogLogger wraps the given slog logger. A nil logger falls back to
// slog.Default().
func NewSlogLogger(l *slog.Logger) SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return SlogLogger{L: l}
}

// Debug implements Logger.
func (s SlogLogger) Debug(ctx context.Context, msg string, keyvals ...interface{}) {
	s.L.DebugContext(ctx, msg, keyvals...)
}

// Info implements Logger.
func (s SlogLogger) Info(ctx context.Context, msg string, keyvals ...interface{}) {
	s.L.InfoContext(ctx, msg, keyvals...)
}

// Error implements Logger.
func (s SlogLogger) Error(ctx context.Context, msg string, keyvals ...interface{}) {
	s.L.ErrorContext(ctx, msg, keyvals...)
}
