package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath returns the cleaned absolute form of path
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	// On Windows, ensure UNC paths are preserved
	if IsUNCPath(path) && !strings.HasPrefix(abs, `\\`) {
		abs = `\\` + strings.TrimLeft(abs, `\/`)
	}

	return abs, nil
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//")
}

// caseInsensitive reports whether the default filesystems of this
// platform ignore case
func caseInsensitive() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// SamePath reports whether two normalized paths name the same location
func SamePath(a, b string) bool {
	if caseInsensitive() {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// IsWithin reports whether child lies strictly below parent.
// Both paths must be normalized.
func IsWithin(parent, child string) bool {
	if caseInsensitive() {
		parent, child = strings.ToLower(parent), strings.ToLower(child)
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	if strings.ContainsRune(path, 0) {
		return &PathError{Path: path, Message: "path contains a NUL byte"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" && !IsUNCPath(path) {
		rest := path
		if filepath.VolumeName(path) != "" {
			rest = path[len(filepath.VolumeName(path)):]
		}
		for _, char := range []string{"<", ">", ":", "\"", "|", "?", "*"} {
			if strings.Contains(rest, char) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
