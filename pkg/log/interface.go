// Package log provides a structured logging interface for gwr.
//
// The interface is slog-compatible so call sites stay the same whether the
// default zerolog-backed provider, log/slog or the in-memory TestLogger is
// installed.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("gwr").With(
//	    log.ModelNameKey, "GWR",
//	    log.KernelKey, "gaussian",
//	)
//	logger.Info("Run started",
//	    log.OperationKey, log.OperationEvaluate,
//	    log.LocationsKey, 250000,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key-value pairs. With returns a child logger that
// carries the given fields on every record.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// An error value passed under ErrAttrKey is rendered with its stack trace
	// where the backend supports it.
	//
	// Example:
	//   logger.Error("Initialize failed",
	//       log.ErrAttrKey, err,
	//       log.OperationKey, log.OperationInitialize,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
