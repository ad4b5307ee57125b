package models

import (
	"time"
)

const (
	// DefaultCopyWorkers is the number of copy workers when none is configured
	DefaultCopyWorkers = 16
	// DefaultRecursiveCompareWorkers is the compare pool size for recursive runs
	DefaultRecursiveCompareWorkers = 16
	// DefaultCopyQueueSize is the capacity of the bounded copy queue
	DefaultCopyQueueSize = 1024
	// DefaultBufferSize is the copy buffer size per worker
	DefaultBufferSize = 64 * 1024
)

// SyncOperation represents one configured run of the synchronizer
type SyncOperation struct {
	ID              string
	SourcePath      string
	DestPath        string
	Recursive       bool     // Descend into subdirectories
	MkPath          bool     // Create missing destination ancestors
	DryRun          bool     // Report what would be done without writing
	DestAbsent      bool     // Destination root not created yet (dry run only)
	ExcludePatterns []string
	CompareWorkers  int
	CopyWorkers     int
	CopyQueueSize   int
	BandwidthLimit  int64 // bytes per second, 0 = unlimited
	BufferSize      int
	CreatedAt       time.Time
}

// DefaultCompareWorkers returns the compare pool size for a run.
// A non-recursive run only ever diffs the root pair, so one worker is enough.
func DefaultCompareWorkers(recursive bool) int {
	if recursive {
		return DefaultRecursiveCompareWorkers
	}
	return 1
}

// ApplyDefaults fills zero-valued tuning fields
func (op *SyncOperation) ApplyDefaults() {
	if op.CompareWorkers == 0 {
		op.CompareWorkers = DefaultCompareWorkers(op.Recursive)
	}
	if op.CopyWorkers == 0 {
		op.CopyWorkers = DefaultCopyWorkers
	}
	if op.CopyQueueSize == 0 {
		op.CopyQueueSize = DefaultCopyQueueSize
	}
	if op.BufferSize == 0 {
		op.BufferSize = DefaultBufferSize
	}
}

// Validate checks if the operation configuration is valid
func (op *SyncOperation) Validate() error {
	if op.SourcePath == "" {
		return &ValidationError{Field: "SourcePath", Message: "source path is required"}
	}
	if op.DestPath == "" {
		return &ValidationError{Field: "DestPath", Message: "destination path is required"}
	}
	if op.DestAbsent && !op.DryRun {
		return &ValidationError{Field: "DestAbsent", Message: "a missing destination root is only allowed in a dry run"}
	}
	if op.CompareWorkers < 1 {
		return &ValidationError{Field: "CompareWorkers", Message: "compare workers must be at least 1"}
	}
	if op.CopyWorkers < 1 {
		return &ValidationError{Field: "CopyWorkers", Message: "copy workers must be at least 1"}
	}
	if op.CopyQueueSize < 1 {
		return &ValidationError{Field: "CopyQueueSize", Message: "copy queue size must be at least 1"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "bandwidth limit cannot be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
