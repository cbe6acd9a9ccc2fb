// Package logging provides structured logging using Go's slog package.
package logging

import (
	"log/slog"
	"os"
	"time"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	// Initialize with a default logger (text format, Warn level). The CLI
	// re-initializes from flags; library use stays quiet unless asked.
	InitLogger(LevelWarn, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// Helper functions for common logging patterns

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// EditStaged logs a mutation that has been staged but not yet committed.
func EditStaged(kind, author string, args ...any) {
	allArgs := []any{
		"kind", kind,
		"author", author,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("edit_staged", allArgs...)
}

// EditCommitted logs a mutation that passed validation and was committed.
func EditCommitted(kind, author string, revisionIDs []int, args ...any) {
	allArgs := []any{
		"kind", kind,
		"author", author,
		"revision_ids", revisionIDs,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("edit_committed", allArgs...)
}

// EditDiscarded logs a staged mutation that failed validation and was dropped.
func EditDiscarded(kind string, err error, args ...any) {
	allArgs := []any{
		"kind", kind,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Warn("edit_discarded", allArgs...)
}

// SessionOpened logs a container being opened for a session.
func SessionOpened(part string, paragraphs, maxRevisionID int, args ...any) {
	allArgs := []any{
		"part", part,
		"paragraphs", paragraphs,
		"max_revision_id", maxRevisionID,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("session_opened", allArgs...)
}
