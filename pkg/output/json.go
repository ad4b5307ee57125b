package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/treefill/pkg/models"
)

// JSONFormatter writes a single JSON report for automation and scripting
type JSONFormatter struct {
	writer io.Writer
}

// JSONReportData represents the final report data
type JSONReportData struct {
	OperationID string             `json:"operation_id"`
	Source      string             `json:"source"`
	Destination string             `json:"destination"`
	Recursive   bool               `json:"recursive"`
	DryRun      bool               `json:"dry_run"`
	Status      string             `json:"status"`
	ExitCode    int                `json:"exit_code"`
	StartTime   time.Time          `json:"start_time"`
	Duration    string             `json:"duration"`
	DurationMs  int64              `json:"duration_ms"`
	Stats       JSONStatsData      `json:"stats"`
	Conflicts   []JSONConflict     `json:"conflicts,omitempty"`
	Errors      []models.SyncError `json:"errors,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	DirsCompared     int64  `json:"dirs_compared"`
	EntriesScanned   int64  `json:"entries_scanned"`
	EntriesPresent   int64  `json:"entries_present"`
	EntriesExcluded  int64  `json:"entries_excluded"`
	FilesCopied      int64  `json:"files_copied"`
	DirsCreated      int64  `json:"dirs_created"`
	BytesTransferred int64  `json:"bytes_transferred"`
	Transferred      string `json:"transferred"`
	Conflicts        int64  `json:"conflicts"`
	Errors           int64  `json:"errors"`
}

// JSONConflict represents a kind mismatch
type JSONConflict struct {
	SourcePath string `json:"source_path"`
	SourceKind string `json:"source_kind"`
	TargetPath string `json:"target_path"`
	TargetKind string `json:"target_kind"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	if writer == nil {
		writer = os.Stdout
	}
	return &JSONFormatter{writer: writer}
}

// Start does nothing; the report is written once on completion
func (f *JSONFormatter) Start(operation *models.SyncOperation) error {
	return nil
}

// Progress is not streamed, to keep the output a single parseable document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report as indented JSON
func (f *JSONFormatter) Complete(report *models.SyncReport) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewJSONReport(report))
}

// NewJSONReport converts a report into its JSON representation
func NewJSONReport(report *models.SyncReport) JSONReportData {
	stats := &report.Stats
	data := JSONReportData{
		OperationID: report.OperationID,
		Source:      report.SourcePath,
		Destination: report.DestPath,
		Recursive:   report.Recursive,
		DryRun:      report.DryRun,
		Status:      string(report.Status),
		ExitCode:    report.Status.ExitCode(),
		StartTime:   report.StartTime,
		Duration:    report.Duration.Round(time.Millisecond).String(),
		DurationMs:  report.Duration.Milliseconds(),
		Stats: JSONStatsData{
			DirsCompared:     stats.DirsCompared.Load(),
			EntriesScanned:   stats.EntriesScanned.Load(),
			EntriesPresent:   stats.EntriesPresent.Load(),
			EntriesExcluded:  stats.EntriesExcluded.Load(),
			FilesCopied:      stats.FilesCopied.Load(),
			DirsCreated:      stats.DirsCreated.Load(),
			BytesTransferred: stats.BytesTransferred.Load(),
			Transferred:      humanize.IBytes(uint64(stats.BytesTransferred.Load())),
			Conflicts:        stats.ConflictCount.Load(),
			Errors:           stats.ErrorCount.Load(),
		},
		Errors: report.Errors,
	}

	for _, c := range report.Conflicts {
		data.Conflicts = append(data.Conflicts, JSONConflict{
			SourcePath: c.SourcePath,
			SourceKind: c.SourceKind.String(),
			TargetPath: c.TargetPath,
			TargetKind: c.TargetKind.String(),
		})
	}

	return data
}

// Error writes a failed-run document
func (f *JSONFormatter) Error(err error) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]string{
		"status": string(models.StatusFailed),
		"error":  err.Error(),
	})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
