package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sdejongh/treefill/internal/platform"
)

// PreflightError reports a root directory that cannot be used.
// Nothing has been written when it is returned.
type PreflightError struct {
	Path    string
	Message string
	Err     error
}

func (e *PreflightError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Message, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Path)
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

// normalize validates path and returns its absolute form
func normalize(path, role string) (string, error) {
	if err := platform.ValidatePath(path); err != nil {
		return "", &PreflightError{Path: path, Message: "invalid " + role + " path", Err: err}
	}
	abs, err := platform.NormalizePath(path)
	if err != nil {
		return "", &PreflightError{Path: path, Message: "failed to resolve " + role + " path", Err: err}
	}
	return abs, nil
}

// ValidateSource checks that the source root is an existing directory
// and returns its absolute path
func ValidateSource(path string) (string, error) {
	abs, err := normalize(path, "source")
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", &PreflightError{Path: abs, Message: "source path does not exist"}
	} else if err != nil {
		return "", &PreflightError{Path: abs, Message: "failed to access source path", Err: err}
	} else if !info.IsDir() {
		return "", &PreflightError{Path: abs, Message: "source path is not a directory"}
	}

	return abs, nil
}

// CheckOverlap rejects roots that are identical or nested in each other.
// Both paths must be absolute.
func CheckOverlap(source, dest string) error {
	if platform.SamePath(source, dest) {
		return &PreflightError{Path: source, Message: "source and destination cannot be the same"}
	}
	if platform.IsWithin(source, dest) {
		return &PreflightError{Path: dest, Message: "destination cannot be inside source directory"}
	}
	if platform.IsWithin(dest, source) {
		return &PreflightError{Path: source, Message: "source cannot be inside destination directory"}
	}
	return nil
}

// PrepareDestination makes sure the destination root exists and is a
// directory. Without mkpath only the root itself may be created, so its
// parent must exist; with mkpath every missing ancestor is created. In a
// dry run nothing is created and missing reports that the root is absent.
func PrepareDestination(path string, mkpath, dryRun bool) (abs string, missing bool, err error) {
	abs, err = normalize(path, "destination")
	if err != nil {
		return "", false, err
	}

	info, statErr := os.Stat(abs)
	if statErr == nil {
		if !info.IsDir() {
			return "", false, &PreflightError{Path: abs, Message: "destination path exists but is not a directory"}
		}
		return abs, false, nil
	}

	ancestor, ancestorInfo, err := existingAncestor(abs)
	if err != nil {
		return "", false, &PreflightError{Path: abs, Message: "failed to access destination path", Err: statErr}
	}
	if !ancestorInfo.IsDir() {
		return "", false, &PreflightError{Path: ancestor, Message: "part of the destination path is a file"}
	}

	parent := filepath.Dir(abs)
	if !mkpath && ancestor != parent {
		return "", false, &PreflightError{Path: parent, Message: "destination parent does not exist (use --mkpath to create it)"}
	}

	if dryRun {
		return abs, true, nil
	}

	if mkpath {
		err = os.MkdirAll(abs, 0755)
	} else {
		err = os.Mkdir(abs, 0755)
	}
	if err != nil {
		return "", false, &PreflightError{Path: abs, Message: "failed to create destination directory", Err: err}
	}

	return abs, false, nil
}

// existingAncestor returns the closest ancestor of path that exists
func existingAncestor(path string) (string, os.FileInfo, error) {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			return dir, info, nil
		}
		if dir == filepath.Dir(dir) {
			return "", nil, err
		}
	}
}
