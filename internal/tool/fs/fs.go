// Package fs wraps the OS filesystem primitives the project workspace uses.
package fs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// OSFileSystem implements filesystem operations on the local disk.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OSFileSystem.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// Stat returns file info for a path (follows symlinks).
func (f *OSFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Lstat returns file info for a path without following symlinks.
func (f *OSFileSystem) Lstat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

// ReadFile reads a whole file. A positive limit rejects larger files
// before reading them.
func (f *OSFileSystem) ReadFile(path string, limit int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if limit > 0 && info.Size() > limit {
		return nil, &TooLargeError{Path: path, Size: info.Size(), Limit: limit}
	}
	return io.ReadAll(file)
}

// WriteFileAtomic writes content through a temp file in the same directory
// and renames it over path, so readers never see a partial file.
func (f *OSFileSystem) WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &TempFileError{Dir: dir, Cause: err}
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return &TempWriteError{Path: tmpPath, Op: "write", Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		return &TempWriteError{Path: tmpPath, Op: "sync", Cause: err}
	}
	err = tmp.Close()
	tmp = nil
	if err != nil {
		return &TempWriteError{Path: tmpPath, Op: "close", Cause: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return &RenameError{Old: tmpPath, New: path, Cause: err}
	}
	cleanup = false

	if err := os.Chmod(path, perm); err != nil {
		return &ChmodError{Path: path, Mode: perm, Cause: err}
	}
	return nil
}

// EnsureDirs creates path and its parents.
func (f *OSFileSystem) EnsureDirs(path string) error {
	return os.MkdirAll(path, 0o755)
}

// Remove deletes a file or an empty directory.
func (f *OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll deletes path and everything below it.
func (f *OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// WalkDir walks the tree rooted at root.
func (f *OSFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}
