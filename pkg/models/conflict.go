package models

import (
	"fmt"
	"time"
)

// Conflict records a source object whose name exists in the destination
// with a different kind (a file where a directory is expected or the reverse).
// Conflicts are never resolved; the source object is skipped.
type Conflict struct {
	// SourcePath is the display path of the source object
	SourcePath string `json:"source_path"`

	// TargetPath is the display path of the existing destination object
	TargetPath string `json:"target_path"`

	// SourceKind is the kind of the source object
	SourceKind EntryKind `json:"-"`

	// TargetKind is the kind of the destination object
	TargetKind EntryKind `json:"-"`

	// DetectedAt is when the compare pass found the mismatch
	DetectedAt time.Time `json:"detected_at"`
}

// NewConflict creates a conflict record for two mismatched entries
func NewConflict(sourcePath, targetPath string, sourceKind, targetKind EntryKind) Conflict {
	return Conflict{
		SourcePath: sourcePath,
		TargetPath: targetPath,
		SourceKind: sourceKind,
		TargetKind: targetKind,
		DetectedAt: time.Now(),
	}
}

// Describe returns a one-line description of the conflict
func (c Conflict) Describe() string {
	return fmt.Sprintf("cannot copy %s %s: destination %s %s has the same name",
		c.SourceKind, c.SourcePath, c.TargetKind, c.TargetPath)
}
