package sync

import (
	"path/filepath"
	"strings"
)

// excluder matches source-relative paths against exclusion patterns.
// Patterns are sorted by shape once, when the pipeline is built:
//   - "name/" excludes a directory of that name at any depth, with its contents
//   - "**/glob" matches any single path component, or a path suffix
//   - globs containing "/" match the whole path or its tail ("build/*")
//   - anything else is a glob on the base name ("*.tmp")
type excluder struct {
	dirs     []string
	anyDepth []string
	paths    []string
	names    []string
}

func newExcluder(patterns []string) *excluder {
	e := &excluder{}
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		pattern = filepath.ToSlash(pattern)

		switch {
		case strings.HasSuffix(pattern, "/"):
			e.dirs = append(e.dirs, strings.TrimSuffix(pattern, "/"))
		case strings.HasPrefix(pattern, "**/"):
			e.anyDepth = append(e.anyDepth, strings.TrimPrefix(pattern, "**/"))
		case strings.Contains(pattern, "/"):
			e.paths = append(e.paths, pattern)
		default:
			e.names = append(e.names, pattern)
		}
	}
	return e
}

// empty reports whether no pattern was configured
func (e *excluder) empty() bool {
	return len(e.dirs)+len(e.anyDepth)+len(e.paths)+len(e.names) == 0
}

// match reports whether relativePath is excluded. An excluded directory
// is neither copied nor descended into.
func (e *excluder) match(relativePath string) bool {
	if e.empty() {
		return false
	}

	path := filepath.ToSlash(relativePath)
	components := strings.Split(path, "/")
	base := components[len(components)-1]

	for _, dir := range e.dirs {
		if path == dir ||
			strings.HasPrefix(path, dir+"/") ||
			strings.HasSuffix(path, "/"+dir) ||
			strings.Contains(path, "/"+dir+"/") {
			return true
		}
	}

	for _, suffix := range e.anyDepth {
		if path == suffix || strings.HasSuffix(path, "/"+suffix) {
			return true
		}
		for _, component := range components {
			if globMatch(suffix, component) {
				return true
			}
		}
	}

	for _, pattern := range e.paths {
		if globMatch(pattern, path) || strings.HasSuffix(path, pattern) {
			return true
		}
	}

	for _, pattern := range e.names {
		if globMatch(pattern, base) {
			return true
		}
	}

	return false
}

// globMatch ignores malformed patterns
func globMatch(pattern, name string) bool {
	matched, _ := filepath.Match(pattern, name)
	return matched
}
