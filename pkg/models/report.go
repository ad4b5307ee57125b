package models

import (
	"sync"
	"sync/atomic"
	"time"
)

// SyncReport represents the results of a sync run
type SyncReport struct {
	// Operation details
	OperationID string
	SourcePath  string
	DestPath    string
	Recursive   bool
	DryRun      bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Statistics
	Stats Statistics

	// Conflicts encountered
	Conflicts []Conflict

	// Errors encountered
	Errors []SyncError

	// Overall status
	Status SyncStatus

	mu sync.Mutex
}

// Statistics holds run metrics. Counters are updated concurrently by workers.
type Statistics struct {
	DirsCompared     atomic.Int64 // Directory pairs successfully listed and diffed
	EntriesScanned   atomic.Int64 // Source entries examined
	EntriesPresent   atomic.Int64 // Source entries already present by name
	EntriesExcluded  atomic.Int64
	FilesCopied      atomic.Int64
	DirsCreated      atomic.Int64
	BytesTransferred atomic.Int64
	ConflictCount    atomic.Int64
	ErrorCount       atomic.Int64
}

// SyncStatus represents the overall result
type SyncStatus string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess SyncStatus = "success"
	// StatusPartial indicates some objects failed or conflicted
	StatusPartial SyncStatus = "partial"
	// StatusFailed indicates the root directories could not be compared
	StatusFailed SyncStatus = "failed"
	// StatusCancelled indicates the run was cancelled
	StatusCancelled SyncStatus = "cancelled"
)

// SyncError represents a recoverable per-task error
type SyncError struct {
	SourcePath string    `json:"source_path"`
	TargetPath string    `json:"target_path"`
	Operation  Action    `json:"operation"`
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
}

// AddError records a task error. Safe for concurrent use.
func (r *SyncReport) AddError(op Action, sourcePath, targetPath string, err error) {
	r.Stats.ErrorCount.Add(1)
	r.mu.Lock()
	r.Errors = append(r.Errors, SyncError{
		SourcePath: sourcePath,
		TargetPath: targetPath,
		Operation:  op,
		Error:      err.Error(),
		Timestamp:  time.Now(),
	})
	r.mu.Unlock()
}

// AddConflict records a kind mismatch. Safe for concurrent use.
func (r *SyncReport) AddConflict(c Conflict) {
	r.Stats.ConflictCount.Add(1)
	r.mu.Lock()
	r.Conflicts = append(r.Conflicts, c)
	r.mu.Unlock()
}

// HasFailures reports whether any task error or conflict was recorded
func (r *SyncReport) HasFailures() bool {
	return r.Stats.ErrorCount.Load() > 0 || r.Stats.ConflictCount.Load() > 0
}

// ExitCode returns the appropriate exit code for the sync status
func (s SyncStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
