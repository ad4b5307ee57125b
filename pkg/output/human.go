package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/treefill/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer      io.Writer
	listObjects bool // print one line per created object
	dryRun      bool
	mu          sync.Mutex
}

// NewHumanFormatter creates a new human-readable formatter.
// With listObjects unset only the summary is printed.
func NewHumanFormatter(writer io.Writer, listObjects bool) *HumanFormatter {
	if writer == nil {
		writer = io.Discard
	}
	return &HumanFormatter{writer: writer, listObjects: listObjects}
}

// Start prints the run header
func (f *HumanFormatter) Start(operation *models.SyncOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dryRun = operation.DryRun

	mode := "shallow"
	if operation.Recursive {
		mode = "recursive"
	}
	if operation.DryRun {
		mode += ", dry run"
	}

	_, err := fmt.Fprintf(f.writer, "Syncing %s -> %s (%s)\n", operation.SourcePath, operation.DestPath, mode)
	return err
}

// Progress prints created objects, conflicts and failures
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if !f.listObjects {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	switch update.Type {
	case EventDirCreated:
		_, err = fmt.Fprintf(f.writer, "%s %s/\n", f.marker(), update.TargetPath)
	case EventCopyComplete:
		_, err = fmt.Fprintf(f.writer, "%s %s (%s)\n", f.marker(), update.TargetPath, humanize.IBytes(uint64(update.BytesWritten)))
	case EventConflict:
		_, err = fmt.Fprintf(f.writer, "! %s: %v\n", update.TargetPath, update.Error)
	case EventError:
		_, err = fmt.Fprintf(f.writer, "✗ %s: %v\n", update.Path, update.Error)
	}
	return err
}

func (f *HumanFormatter) marker() string {
	if f.dryRun {
		return "~"
	}
	return "+"
}

// Complete displays the summary
func (f *HumanFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return writeSummary(f.writer, report)
}

func writeSummary(w io.Writer, report *models.SyncReport) error {
	stats := &report.Stats
	title := "Sync completed"
	if report.DryRun {
		title = "Dry run completed"
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "%s in %s\n", title, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Scanned:\n")
	fmt.Fprintf(w, "    Directories:    %s\n", humanize.Comma(stats.DirsCompared.Load()))
	fmt.Fprintf(w, "    Entries:        %s\n", humanize.Comma(stats.EntriesScanned.Load()))
	fmt.Fprintf(w, "    Present:        %s\n", humanize.Comma(stats.EntriesPresent.Load()))
	fmt.Fprintf(w, "    Excluded:       %s\n", humanize.Comma(stats.EntriesExcluded.Load()))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Operations:\n")
	fmt.Fprintf(w, "    Files copied:   %s\n", humanize.Comma(stats.FilesCopied.Load()))
	fmt.Fprintf(w, "    Dirs created:   %s\n", humanize.Comma(stats.DirsCreated.Load()))
	fmt.Fprintf(w, "    Conflicts:      %s\n", humanize.Comma(stats.ConflictCount.Load()))
	fmt.Fprintf(w, "    Errors:         %s\n", humanize.Comma(stats.ErrorCount.Load()))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Transfer:\n")
	fmt.Fprintf(w, "    Data:           %s\n", humanize.IBytes(uint64(stats.BytesTransferred.Load())))

	if !report.DryRun && report.Duration.Seconds() > 0 {
		avgSpeed := float64(stats.BytesTransferred.Load()) / report.Duration.Seconds()
		fmt.Fprintf(w, "    Average speed:  %s/s\n", humanize.IBytes(uint64(avgSpeed)))
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", report.Status)

	if len(report.Conflicts) > 0 {
		fmt.Fprintf(w, "\nConflicts:\n")
		for _, c := range report.Conflicts {
			fmt.Fprintf(w, "  %s\n", c.Describe())
		}
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s %s -> %s: %s\n", e.Operation, e.SourcePath, e.TargetPath, e.Error)
		}
	}

	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, werr := fmt.Fprintf(f.writer, "Error: %v\n", err)
	return werr
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}
