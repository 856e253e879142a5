// Package logger provides the structured logging abstraction used across the proxy.
// Implementations live in internal/infrastructure/monitoring; this package only
// defines the interface, field helpers and a no-op logger.
package logger

import (
	"context"

	"github.com/turtacn/soapproxy/pkg/constants"
)

// ================================================================================
// Logger Interface
// ================================================================================

// Fields is a set of key-value pairs attached to a log entry
type Fields map[string]interface{}

// Level is a logging severity
type Level int8

const (
	// DebugLevel is used for diagnostics, including SOAP message dumps
	DebugLevel Level = iota - 1
	// InfoLevel is the default level
	InfoLevel
	// WarnLevel indicates potential issues
	WarnLevel
	// ErrorLevel indicates errors that need attention
	ErrorLevel
)

// ParseLevel converts a configured level name into a Level, defaulting to InfoLevel.
func ParseLevel(level constants.LogLevel) Level {
	switch level {
	case constants.LogLevelDebug:
		return DebugLevel
	case constants.LogLevelWarn:
		return WarnLevel
	case constants.LogLevelError:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger defines the interface for structured logging
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, msg string, fields ...Fields)

	// Info logs an informational message
	Info(ctx context.Context, msg string, fields ...Fields)

	// Warn logs a warning message
	Warn(ctx context.Context, msg string, fields ...Fields)

	// Error logs an error message
	Error(ctx context.Context, msg string, err error, fields ...Fields)

	// Enabled reports whether entries at level would be written.
	// Callers use it to skip expensive formatting.
	Enabled(level Level) bool

	// WithFields creates a new logger with additional fields
	WithFields(fields Fields) Logger

	// ForContext returns the request-scoped logger stored in ctx, or the receiver
	ForContext(ctx context.Context) Logger
}

// String creates a single-entry Fields
func String(key, value string) Fields {
	return Fields{key: value}
}

// NewContext returns a copy of ctx carrying l as the request-scoped logger.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, constants.ContextKeyLogger, l)
}

// OrNoop returns l, or a no-op logger when l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NewNoopLogger()
	}
	return l
}
