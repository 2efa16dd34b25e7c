// Package logger wraps slog for structured application logging.
package logger

import (
	"log/slog"
	"os"
)

// Logger is the application-wide logger. It emits JSON lines on stdout so
// log shippers can ingest records without a parsing step.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing at the given minimum slog level.
func New(level int) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(level)})),
	}
}

// Fatal logs at error level and terminates the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
