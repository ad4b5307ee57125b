package sync

import (
	"github.com/sdejongh/treefill/pkg/models"
)

// CompareTask is one directory pair awaiting a name diff.
// Both paths are relative to their backend roots; "" is the root.
type CompareTask struct {
	Source string
	Target string

	// TargetAbsent marks a target directory that a dry run pretended to
	// create. Its listing is treated as empty.
	TargetAbsent bool

	root bool
}

// CopyTask is one source object missing from TargetDir
type CopyTask struct {
	Entry     models.Entry
	TargetDir string
}
