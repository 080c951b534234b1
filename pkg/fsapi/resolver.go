// Package fsapi materialises REST semantics from an on-disk directory tree:
// URL paths resolve to files, and each HTTP method maps to filesystem reads,
// writes and deletes with pagination, filtering and patching layered on JSON
// resources.
package fsapi

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/internal/mimetype"
)

// FileRef describes a resolved file.
type FileRef struct {
	// Path is the absolute location on disk.
	Path string
	// MediaType is derived from the file extension.
	MediaType string
	// Size is the byte length reported by stat.
	Size int64
}

// IsJSON reports whether the file holds a JSON document.
func (f *FileRef) IsJSON() bool {
	return f.MediaType == mimetype.JSON
}

// Resolver maps prefix-stripped URL paths to files under a root directory.
type Resolver struct {
	root string
}

// NewResolver creates a resolver rooted at root.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the tree root.
func (r *Resolver) Root() string {
	return r.root
}

// DiskPath converts a URL path to its location under the root. The path is
// cleaned with a leading slash first so it cannot escape the root.
func (r *Resolver) DiskPath(urlPath string) string {
	cleaned := path.Clean("/" + urlPath)
	return filepath.Join(r.root, filepath.FromSlash(cleaned))
}

// Resolve attempts, in order: the exact file, the directory's index.json,
// then the first sibling file (lexicographically) whose name starts with the
// last path segment. A miss is a "not found" signal, not an error.
func (r *Resolver) Resolve(urlPath string) (*FileRef, bool, error) {
	candidate := r.DiskPath(urlPath)

	info, err := os.Stat(candidate)
	switch {
	case err == nil && !info.IsDir():
		return newFileRef(candidate, info.Size()), true, nil
	case err == nil && info.IsDir():
		index := filepath.Join(candidate, "index.json")
		if indexInfo, err := os.Stat(index); err == nil && !indexInfo.IsDir() {
			return newFileRef(index, indexInfo.Size()), true, nil
		}
	case !os.IsNotExist(err):
		return nil, false, err
	}

	return r.resolveSibling(candidate)
}

// resolveSibling scans the candidate's parent directory for a file whose
// name begins with the candidate's base name, extension-agnostic. Entries
// are scanned in lexicographic order so resolution is deterministic.
func (r *Resolver) resolveSibling(candidate string) (*FileRef, bool, error) {
	parent := filepath.Dir(candidate)
	base := filepath.Base(candidate)
	if base == "." || base == string(filepath.Separator) {
		return nil, false, nil
	}

	entries, err := os.ReadDir(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base) {
			continue
		}
		match := filepath.Join(parent, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return nil, false, err
		}
		logger.Debug("resolved by sibling prefix",
			logger.KeyDir, parent,
			logger.KeyMatched, entry.Name())
		return newFileRef(match, info.Size()), true, nil
	}
	return nil, false, nil
}

func newFileRef(diskPath string, size int64) *FileRef {
	return &FileRef{
		Path:      diskPath,
		MediaType: mimetype.ByExtension(diskPath),
		Size:      size,
	}
}
