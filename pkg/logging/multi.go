package logging

import (
	"context"
	"errors"
)

// MultiLogger fans every entry out to several loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers, skipping nil ones
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Discard returns a logger that drops every entry
func Discard() Logger {
	return &MultiLogger{}
}

// Debug logs a debug message
func (m *MultiLogger) Debug(ctx context.Context, msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Debug(ctx, msg, fields)
	}
}

// Info logs an info message
func (m *MultiLogger) Info(ctx context.Context, msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Info(ctx, msg, fields)
	}
}

// Warn logs a warning message
func (m *MultiLogger) Warn(ctx context.Context, msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Warn(ctx, msg, fields)
	}
}

// Error logs an error message
func (m *MultiLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	for _, l := range m.loggers {
		l.Error(ctx, msg, err, fields)
	}
}

// WithFields derives every underlying logger
func (m *MultiLogger) WithFields(fields Fields) Logger {
	derived := &MultiLogger{loggers: make([]Logger, len(m.loggers))}
	for i, l := range m.loggers {
		derived.loggers[i] = l.WithFields(fields)
	}
	return derived
}

// Close closes every underlying logger
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
