package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/sdejongh/treefill/pkg/models"
)

// progressTemplate renders byte counters against the bytes discovered so
// far. The total grows while compare workers keep finding missing files.
const progressTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{speed . }}`

// getUpdateInterval returns the progress refresh interval based on OS.
// Windows terminals are slow with ANSI sequences, so they refresh less often.
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter draws a live progress bar, then prints the human summary
type ProgressFormatter struct {
	writer io.Writer
	bar    *pb.ProgressBar

	mu         sync.Mutex
	totalBytes int64
	files      int64
	dirs       int64
	failures   int64
	inFlight   map[string]int64 // source path -> bytes already counted
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter(writer io.Writer) *ProgressFormatter {
	if writer == nil {
		writer = os.Stdout
	}
	return &ProgressFormatter{
		writer:   writer,
		inFlight: make(map[string]int64),
	}
}

// Start creates and starts the bar
func (f *ProgressFormatter) Start(operation *models.SyncOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	bar := pb.New64(0)
	bar.SetTemplateString(progressTemplate)
	bar.SetWriter(f.writer)
	bar.SetRefreshRate(getUpdateInterval())
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", f.prefix())
	if err := bar.Err(); err != nil {
		return fmt.Errorf("failed to configure progress bar: %w", err)
	}

	f.bar = bar.Start()
	return nil
}

// prefix must be called with the lock held
func (f *ProgressFormatter) prefix() string {
	s := fmt.Sprintf("%d files, %d dirs", f.files, f.dirs)
	if f.failures > 0 {
		s += fmt.Sprintf(", %d failed", f.failures)
	}
	return s
}

// Progress updates the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case EventCopyStart:
		f.totalBytes += update.TotalBytes
		f.bar.SetTotal(f.totalBytes)
		f.inFlight[update.Path] = 0

	case EventCopyProgress:
		f.bar.Add64(update.BytesWritten - f.inFlight[update.Path])
		f.inFlight[update.Path] = update.BytesWritten

	case EventCopyComplete:
		f.bar.Add64(update.BytesWritten - f.inFlight[update.Path])
		delete(f.inFlight, update.Path)
		f.files++

	case EventDirCreated:
		f.dirs++

	case EventError, EventConflict:
		// Bytes of a failed copy stay counted; the summary has exact figures
		delete(f.inFlight, update.Path)
		f.failures++
	}

	f.bar.Set("prefix", f.prefix())
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	return writeSummary(f.writer, report)
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	_, werr := fmt.Fprintf(f.writer, "Error: %v\n", err)
	return werr
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
