// Package project exposes one project directory on disk as the filesystem
// the agent's tools operate on.
package project

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Cyclone1070/kosuke/internal/tool/content"
	"github.com/Cyclone1070/kosuke/internal/tool/fs"
	"github.com/Cyclone1070/kosuke/internal/tool/git"
	"github.com/Cyclone1070/kosuke/internal/tool/path"
)

var (
	ErrBinaryFile  = errors.New("binary file")
	ErrIsDirectory = errors.New("is a directory")
	ErrEmptyQuery  = errors.New("search query is empty")
	ErrRemoveRoot  = errors.New("cannot remove the project root")
)

// skipDirs are never listed or searched.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".next":        true,
	"dist":         true,
	"build":        true,
}

const filePerm = 0o644

// Limits bounds reads and search output.
type Limits struct {
	MaxFileSize      int64
	MaxSearchResults int
}

// Workspace is a project directory. All paths it accepts and returns are
// slash-separated and relative to the project root.
type Workspace struct {
	resolver *path.Resolver
	fs       *fs.OSFileSystem
	ignore   git.Matcher
	limits   Limits
}

// NewWorkspace opens root as a workspace. root must be an existing directory.
func NewWorkspace(root string, limits Limits) (*Workspace, error) {
	canonical, err := path.CanonicaliseRoot(root)
	if err != nil {
		return nil, err
	}
	osfs := fs.NewOSFileSystem()

	matcher, err := git.NewIgnoreMatcher(canonical, osfs)
	if err != nil {
		return nil, err
	}

	return &Workspace{
		resolver: path.NewResolver(canonical),
		fs:       osfs,
		ignore:   matcher,
		limits:   limits,
	}, nil
}

// Root returns the canonical project directory.
func (w *Workspace) Root() string {
	return w.resolver.Root()
}

func (w *Workspace) ReadFile(p string) (string, error) {
	abs, err := w.resolver.Abs(p)
	if err != nil {
		return "", err
	}
	info, err := w.fs.Stat(abs)
	if err != nil {
		return "", w.relError("read", p, err)
	}
	if info.IsDir() {
		return "", w.relError("read", p, ErrIsDirectory)
	}

	data, err := w.fs.ReadFile(abs, w.limits.MaxFileSize)
	if err != nil {
		return "", w.relError("read", p, err)
	}
	if content.IsBinary(data) {
		return "", w.relError("read", p, ErrBinaryFile)
	}
	return string(data), nil
}

// WriteFile creates or replaces a file, creating missing parent directories.
func (w *Workspace) WriteFile(p, text string) error {
	abs, err := w.resolver.Abs(p)
	if err != nil {
		return err
	}
	if abs == w.Root() {
		return w.relError("write", p, ErrIsDirectory)
	}
	if info, err := w.fs.Stat(abs); err == nil && info.IsDir() {
		return w.relError("write", p, ErrIsDirectory)
	}
	if err := w.fs.EnsureDirs(filepath.Dir(abs)); err != nil {
		return w.relError("write", p, err)
	}
	if err := w.fs.WriteFileAtomic(abs, []byte(text), filePerm); err != nil {
		return w.relError("write", p, err)
	}
	return nil
}

func (w *Workspace) DeleteFile(p string) error {
	abs, err := w.resolver.Abs(p)
	if err != nil {
		return err
	}
	info, err := w.fs.Lstat(abs)
	if err != nil {
		return w.relError("delete", p, err)
	}
	if info.IsDir() {
		return w.relError("delete", p, ErrIsDirectory)
	}
	if err := w.fs.Remove(abs); err != nil {
		return w.relError("delete", p, err)
	}
	return nil
}

// Mkdir creates a directory and its parents. Existing directories are fine.
func (w *Workspace) Mkdir(p string) error {
	abs, err := w.resolver.Abs(p)
	if err != nil {
		return err
	}
	if err := w.fs.EnsureDirs(abs); err != nil {
		return w.relError("mkdir", p, err)
	}
	return nil
}

// Rmdir removes a directory with everything in it.
func (w *Workspace) Rmdir(p string) error {
	abs, err := w.resolver.Abs(p)
	if err != nil {
		return err
	}
	if abs == w.Root() {
		return ErrRemoveRoot
	}
	info, err := w.fs.Lstat(abs)
	if err != nil {
		return w.relError("rmdir", p, err)
	}
	if !info.IsDir() {
		return w.relError("rmdir", p, path.ErrNotADirectory)
	}
	if err := w.fs.RemoveAll(abs); err != nil {
		return w.relError("rmdir", p, err)
	}
	return nil
}

// Search finds query, case-insensitively, in file paths and file contents.
// A path match yields the path; content matches yield "path:line: text".
func (w *Workspace) Search(query string) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, ErrEmptyQuery
	}

	var out []string
	full := func() bool {
		return w.limits.MaxSearchResults > 0 && len(out) >= w.limits.MaxSearchResults
	}

	err := w.walk(func(rel, abs string) error {
		if full() {
			return iofs.SkipAll
		}
		if strings.Contains(strings.ToLower(rel), q) {
			out = append(out, rel)
			return nil
		}

		data, err := w.fs.ReadFile(abs, w.limits.MaxFileSize)
		if err != nil || content.IsBinary(data) {
			return nil
		}
		for i, line := range content.SplitLines(string(data)) {
			if strings.Contains(strings.ToLower(line), q) {
				out = append(out, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
				if full() {
					return iofs.SkipAll
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListFiles returns every project file, sorted, excluding dependency and
// build directories and anything .gitignore ignores.
func (w *Workspace) ListFiles() ([]string, error) {
	var out []string
	err := w.walk(func(rel, _ string) error {
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// walk visits regular files below the root in lexical order.
func (w *Workspace) walk(visit func(rel, abs string) error) error {
	root := w.Root()
	return w.fs.WalkDir(root, func(abs string, d iofs.DirEntry, err error) error {
		if err != nil {
			if abs == root {
				return err
			}
			return nil
		}
		if abs == root {
			return nil
		}
		rel, err := w.resolver.Rel(abs)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if skipDirs[d.Name()] || w.ignore.ShouldIgnore(rel, true) {
				return iofs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || w.ignore.ShouldIgnore(rel, false) {
			return nil
		}
		return visit(rel, abs)
	})
}

// relError replaces absolute locations in err with the project path.
func (w *Workspace) relError(op, p string, err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return fmt.Errorf("%s %s: %w", op, strings.TrimLeft(p, "/"), err)
}
