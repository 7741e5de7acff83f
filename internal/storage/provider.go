// Package storage defines the file-system access used by the migration:
// discovering posts under the source root and writing migrated entries
// under the destination root.
package storage

import "github.com/starford/blogmigrate/internal/models"

// Provider is the interface for rooted file operations.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns every markdown file under dir (relative to root), in walk order.
	List(dir string) ([]string, error)
	// Dirs returns the names of the directories directly under dir (relative to root).
	Dirs(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Stat returns the creation and modification times of path (relative to root).
	Stat(path string) (models.Timestamps, error)
	// Write atomically writes content to path (relative to root), creating parents.
	Write(path string, content []byte) error
}
