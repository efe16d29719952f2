// Package git matches project paths against the root .gitignore.
package git

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Cyclone1070/kosuke/internal/tool/content"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// GitignoreReadError is returned when .gitignore exists but cannot be read.
type GitignoreReadError struct {
	Path  string
	Cause error
}

func (e *GitignoreReadError) Error() string {
	return fmt.Sprintf("failed to read .gitignore at %s: %v", e.Path, e.Cause)
}
func (e *GitignoreReadError) Unwrap() error { return e.Cause }

type fileSystem interface {
	Stat(path string) (os.FileInfo, error)
	ReadFile(path string, limit int64) ([]byte, error)
}

// Matcher reports whether a project-relative path is ignored.
type Matcher interface {
	ShouldIgnore(relativePath string, isDir bool) bool
}

// IgnoreMatcher implements Matcher with go-git's gitignore rules.
type IgnoreMatcher struct {
	matcher gitignore.Matcher
}

// NewIgnoreMatcher loads .gitignore from root. A missing file yields a
// matcher that never ignores.
func NewIgnoreMatcher(root string, fsys fileSystem) (*IgnoreMatcher, error) {
	if root == "" {
		return nil, errors.New("root is required")
	}
	if fsys == nil {
		return nil, errors.New("filesystem is required")
	}
	path := filepath.Join(root, ".gitignore")

	if _, err := fsys.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &IgnoreMatcher{}, nil
		}
		return nil, &GitignoreReadError{Path: path, Cause: err}
	}

	data, err := fsys.ReadFile(path, 0)
	if err != nil {
		return nil, &GitignoreReadError{Path: path, Cause: err}
	}

	var patterns []gitignore.Pattern
	for _, line := range content.SplitLines(string(data)) {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &IgnoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ShouldIgnore checks a relative path against the loaded patterns.
func (m *IgnoreMatcher) ShouldIgnore(relativePath string, isDir bool) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	segments := splitPath(relativePath)
	if len(segments) == 0 {
		return false
	}
	return m.matcher.Match(segments, isDir)
}

func splitPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
