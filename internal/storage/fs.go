package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/starford/blogmigrate/internal/models"
)

var markdownExts = map[string]struct{}{
	".md":       {},
	".markdown": {},
}

// IsMarkdown reports whether name carries a markdown extension (any case).
func IsMarkdown(name string) bool {
	_, ok := markdownExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// FS implements Provider backed by the local file system.
type FS struct {
	root   string // absolute path
	ignore *ignore.GitIgnore
}

// FSOption configures an FS.
type FSOption func(*FS) error

// WithIgnoreFile skips paths matched by the gitignore-style patterns in
// name (relative to root). A missing file is not an error.
func WithIgnoreFile(name string) FSOption {
	return func(f *FS) error {
		if name == "" {
			return nil
		}
		p := filepath.Join(f.root, name)
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		gi, err := ignore.CompileIgnoreFile(p)
		if err != nil {
			return fmt.Errorf("storage: compile ignore file %s: %w", name, err)
		}
		f.ignore = gi
		return nil
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return newFS(abs, opts)
}

// OpenFS returns an FS whose root may not exist yet; the first Write
// creates it. A root that exists but is not a directory is rejected.
func OpenFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return newFS(abs, opts)
}

func newFS(abs string, opts []FSOption) (*FS, error) {
	f := &FS{root: abs}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// List walks dir (relative to root) and returns the relative path of every
// .md or .markdown file. Directories are traversed but never returned.
func (f *FS) List(dir string) ([]string, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		if f.ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsMarkdown(d.Name()) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

func (f *FS) ignored(rel string, isDir bool) bool {
	if f.ignore == nil || rel == "." {
		return false
	}
	slashed := filepath.ToSlash(rel)
	if isDir && f.ignore.MatchesPath(slashed+"/") {
		return true
	}
	return f.ignore.MatchesPath(slashed)
}

// Dirs returns the names of the immediate subdirectories of dir, sorted.
func (f *FS) Dirs(dir string) ([]string, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Read returns the raw bytes of a file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Stat returns the creation and modification times of a file. Created is
// zero on platforms or file systems that do not record a birth time.
func (f *FS) Stat(path string) (models.Timestamps, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return models.Timestamps{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.Timestamps{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return models.Timestamps{
		Created:  birthTime(abs, info),
		Modified: info.ModTime(),
	}, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".blogmigrate-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
