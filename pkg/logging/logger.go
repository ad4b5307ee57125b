package logging

import (
	"context"
)

// Level represents log severity
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields are key/value pairs attached to a log entry
type Fields map[string]interface{}

// Logger is the structured logger shared by the CLI and the sync workers.
// Implementations are safe for concurrent use; loggers derived with
// WithFields write to the same destination as their parent.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)

	// Error logs msg with err, which may be nil
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger that adds fields to every entry
	WithFields(fields Fields) Logger

	// Close releases the destination. Closing a derived logger closes
	// its parent's destination too.
	Close() error
}
