package output

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/sdejongh/treefill/pkg/models"
)

// EventType identifies a progress notification
type EventType string

const (
	// EventDirCompared is sent after a directory pair has been diffed
	EventDirCompared EventType = "dir_compared"
	// EventDirCreated is sent after a missing directory was created
	EventDirCreated EventType = "dir_created"
	// EventCopyStart is sent before a file copy begins
	EventCopyStart EventType = "copy_start"
	// EventCopyProgress is sent periodically while a file is copied
	EventCopyProgress EventType = "copy_progress"
	// EventCopyComplete is sent after a file was copied
	EventCopyComplete EventType = "copy_complete"
	// EventConflict is sent when a same-named entry has a different kind
	EventConflict EventType = "conflict"
	// EventError is sent when a task fails
	EventError EventType = "error"
)

// ProgressUpdate represents a progress notification during sync.
// Paths are display paths (absolute where the backend allows it).
type ProgressUpdate struct {
	Type         EventType
	Path         string
	TargetPath   string
	BytesWritten int64
	TotalBytes   int64
	Error        error
}

// Formatter defines the interface for output formatting.
// Progress is called concurrently by every worker of a run.
type Formatter interface {
	// Start initializes the formatter for a new sync operation
	Start(operation *models.SyncOperation) error

	// Progress reports progress during sync
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report *models.SyncReport) error

	// Error reports an error that prevented the run
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter registered under name
func New(name string, writer io.Writer, listObjects bool) (Formatter, error) {
	switch name {
	case "human", "":
		return NewHumanFormatter(writer, listObjects), nil
	case "json":
		return NewJSONFormatter(writer), nil
	case "progress":
		return NewProgressFormatter(writer), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
}

// IsTerminal reports whether w is attached to a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
