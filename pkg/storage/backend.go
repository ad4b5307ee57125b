package storage

import (
	"context"
	"io"

	"github.com/sdejongh/treefill/pkg/models"
)

// Backend defines the filesystem operations the sync pipeline needs.
// All paths are relative to the backend root; "" is the root itself.
type Backend interface {
	// List returns the direct children of a directory (no recursion)
	List(ctx context.Context, dir string) ([]models.Entry, error)

	// Open opens a file for reading
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Create creates a new file for writing. It fails if anything
	// already exists at path; existing objects are never truncated.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Mkdir creates a single directory. It fails if path already exists.
	Mkdir(ctx context.Context, path string) error

	// Remove deletes a single file or empty directory
	Remove(ctx context.Context, path string) error

	// Stat returns a snapshot of the object at path, following symlinks.
	// List reports links as KindOther; Stat reveals what they point to.
	Stat(ctx context.Context, path string) (*models.Entry, error)

	// Join joins path elements using the backend separator
	Join(elem ...string) string

	// Display returns a human readable path for logs and reports
	Display(path string) string

	// Close releases any resources held by the backend
	Close() error
}
