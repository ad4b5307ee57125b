package models

import (
	"os"
)

// EntryKind represents the type of a filesystem object
type EntryKind uint8

const (
	// KindFile is a regular file
	KindFile EntryKind = iota
	// KindDir is a directory
	KindDir
	// KindOther covers symlinks, devices, sockets and pipes
	KindOther
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "other"
	}
}

// KindFromMode derives the EntryKind from an os.FileMode
func KindFromMode(mode os.FileMode) EntryKind {
	switch {
	case mode.IsDir():
		return KindDir
	case mode.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}

// Entry is a snapshot of one filesystem object taken when its parent
// directory was listed. It is not re-validated before use.
type Entry struct {
	// Name is the base name of the object
	Name string

	// Path is the path relative to the root of the backend it was listed from
	Path string

	// Kind is the object type at listing time
	Kind EntryKind

	// Size in bytes (zero for directories)
	Size int64
}

// IsDir reports whether the entry was a directory when listed
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// Action represents what was done (or attempted) with an object
type Action string

const (
	// ActionList lists a directory during a compare pass
	ActionList Action = "list"
	// ActionCopy copies a file into the destination
	ActionCopy Action = "copy"
	// ActionMkdir creates a directory in the destination
	ActionMkdir Action = "mkdir"
)
