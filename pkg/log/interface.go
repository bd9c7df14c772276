// Package log provides the structured logging interface used across the
// forest-fire pipeline.
//
// The interface is slog-compatible so that stage code never depends on a
// concrete backend. The default backend is zerolog (see NewZerologProvider);
// tests use TestLogger to capture entries in memory.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("model").With(
//	    log.StageKey, "model",
//	    log.RunIDKey, runID,
//	)
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 1000,
//	    log.FeaturesKey, 12,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. An error value may appear as the
// first field of Error; backends attach its message and stack trace.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information such as stage progress.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the stage, e.g. a malformed
	// report section or non-finite derived values.
	Warn(msg string, fields ...any)

	// Error logs error conditions. If the first field is an error, its
	// stack trace is included.
	//
	//   logger.Error("Load failed", err, log.PathKey, path)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
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

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
