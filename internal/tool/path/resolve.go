// Package path maps project-relative paths onto a project root on disk.
package path

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver resolves paths inside one project root.
type Resolver struct {
	root string
}

// NewResolver creates a resolver for root, which should be canonical.
func NewResolver(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Root returns the project root.
func (r *Resolver) Root() string {
	return r.root
}

// CanonicaliseRoot makes root absolute, resolves symlinks and checks that
// it is an existing directory.
func CanonicaliseRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &RootError{Root: root, Cause: err}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &RootError{Root: abs, Cause: err}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", &RootError{Root: resolved, Cause: err}
	}
	if !info.IsDir() {
		return "", &RootError{Root: resolved, Cause: fmt.Errorf("%w: %s", ErrNotADirectory, resolved)}
	}
	return resolved, nil
}

// Abs returns the absolute location of a project path. Leading slashes are
// ignored: "/app/page.tsx" and "app/page.tsx" are the same file. Paths that
// climb out of the root are rejected.
func (r *Resolver) Abs(p string) (string, error) {
	if r.root == "" || r.root == "." {
		return "", ErrRootNotSet
	}

	rel := strings.TrimLeft(filepath.FromSlash(p), string(filepath.Separator))
	abs := filepath.Clean(filepath.Join(r.root, rel))

	if abs != r.root && !strings.HasPrefix(abs, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return abs, nil
}

// Rel returns the slash-separated project path of an absolute location,
// or "" for the root itself.
func (r *Resolver) Rel(abs string) (string, error) {
	if r.root == "" || r.root == "." {
		return "", ErrRootNotSet
	}

	rel, err := filepath.Rel(r.root, filepath.Clean(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, abs)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}
