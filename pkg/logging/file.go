package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// logFile is the rotating file shared by a FileLogger and every logger
// derived from it with WithFields
type logFile struct {
	config      FileLoggerConfig
	mu          sync.Mutex
	file        *os.File
	currentSize int64
}

// FileLogger implements Logger interface with file output
type FileLogger struct {
	out    *logFile
	fields Fields
}

// NewFileLogger creates a new file logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	// Ensure directory exists
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open file in append mode
	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &FileLogger{
		out: &logFile{
			config:      config,
			file:        file,
			currentSize: info.Size(),
		},
	}, nil
}

// Debug logs a debug message
func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(DebugLevel, msg, nil, fields)
}

// Info logs an info message
func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(InfoLevel, msg, nil, fields)
}

// Warn logs a warning message
func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(WarnLevel, msg, nil, fields)
}

// Error logs an error message
func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ErrorLevel, msg, err, fields)
}

// WithFields returns a logger with additional fields writing to the same file
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{
		out:    l.out,
		fields: mergeFields(l.fields, fields),
	}
}

// Close flushes and closes the logger
func (l *FileLogger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.file == nil {
		return nil
	}
	err := l.out.file.Close()
	l.out.file = nil
	return err
}

// log writes a log entry
func (l *FileLogger) log(level Level, msg string, err error, fields Fields) {
	if level < l.out.config.Level {
		return
	}

	line, encErr := encode(l.out.config.Format, level, msg, err, mergeFields(l.fields, fields))
	if encErr != nil {
		return
	}

	l.out.write(line)
}

func (f *logFile) write(line []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.config.MaxSize > 0 && f.currentSize >= f.config.MaxSize {
		f.rotate()
	}
	if f.file == nil {
		return
	}

	n, _ := f.file.Write(line)
	f.currentSize += int64(n)
}

// rotate shifts path.N to path.N+1 and starts a fresh file.
// Must be called with the lock held.
func (f *logFile) rotate() {
	if f.file == nil {
		return
	}

	f.file.Close()
	f.file = nil

	for i := f.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", f.config.Path, i)
		newPath := fmt.Sprintf("%s.%d", f.config.Path, i+1)
		os.Rename(oldPath, newPath)
	}

	os.Rename(f.config.Path, f.config.Path+".1")

	if f.config.MaxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", f.config.Path, f.config.MaxBackups+1))
	}

	file, err := os.OpenFile(f.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}

	f.file = file
	f.currentSize = 0
}
