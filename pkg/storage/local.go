package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/sdejongh/treefill/pkg/models"
)

// Local is a billy-backed storage backend rooted at a directory.
// On disk it uses osfs; tests may hand it any billy.Filesystem.
type Local struct {
	fs       billy.Filesystem
	rootPath string
}

// NewLocal creates a backend over the directory at rootPath
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return NewFromFilesystem(osfs.New(absPath)), nil
}

// NewPendingLocal creates a backend for a directory that does not exist
// yet. Only paths below the root may be used once the root is created.
func NewPendingLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	return NewFromFilesystem(osfs.New(absPath)), nil
}

// NewFromFilesystem wraps an existing billy filesystem
func NewFromFilesystem(fs billy.Filesystem) *Local {
	return &Local{fs: fs, rootPath: fs.Root()}
}

// List returns the direct children of dir
func (l *Local) List(ctx context.Context, dir string) ([]models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := l.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	entries := make([]models.Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromInfo(l.fs.Join(dir, info.Name()), info))
	}

	return entries, nil
}

// Open opens a file for reading
func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Create creates a new file exclusively
func (l *Local) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := l.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return file, nil
}

// Mkdir creates a single directory that must not exist yet
func (l *Local) Mkdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// billy only offers MkdirAll, which succeeds silently on existing
	// directories and would hide a lost race for this name.
	if _, err := l.fs.Lstat(path); err == nil {
		return fmt.Errorf("failed to create directory: %w", os.ErrExist)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := l.fs.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// Remove deletes a single file or empty directory
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := l.fs.Remove(path); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Stat returns an entry for whatever path resolves to
func (l *Local) Stat(ctx context.Context, path string) (*models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	entry := entryFromInfo(path, info)
	return &entry, nil
}

// Join joins path elements
func (l *Local) Join(elem ...string) string {
	return l.fs.Join(elem...)
}

// Display returns the absolute path of a backend path
func (l *Local) Display(path string) string {
	return filepath.Join(l.rootPath, path)
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

func entryFromInfo(path string, info os.FileInfo) models.Entry {
	kind := models.KindFromMode(info.Mode())
	var size int64
	if kind != models.KindDir {
		size = info.Size()
	}
	return models.Entry{
		Name: info.Name(),
		Path: path,
		Kind: kind,
		Size: size,
	}
}
