package fs

import (
	"fmt"
	"os"
)

// TempFileError is returned when the staging file of an atomic write
// cannot be created.
type TempFileError struct {
	Dir   string
	Cause error
}

func (e *TempFileError) Error() string {
	return fmt.Sprintf("failed to create temp file in %s: %v", e.Dir, e.Cause)
}
func (e *TempFileError) Unwrap() error { return e.Cause }

// TempWriteError covers write, sync and close failures of the staging file.
type TempWriteError struct {
	Path  string
	Op    string
	Cause error
}

func (e *TempWriteError) Error() string {
	return fmt.Sprintf("failed to %s temp file %s: %v", e.Op, e.Path, e.Cause)
}
func (e *TempWriteError) Unwrap() error { return e.Cause }

type RenameError struct {
	Old   string
	New   string
	Cause error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("failed to rename %s to %s: %v", e.Old, e.New, e.Cause)
}
func (e *RenameError) Unwrap() error { return e.Cause }

type ChmodError struct {
	Path  string
	Mode  os.FileMode
	Cause error
}

func (e *ChmodError) Error() string {
	return fmt.Sprintf("failed to set permissions for %s to %v: %v", e.Path, e.Mode, e.Cause)
}
func (e *ChmodError) Unwrap() error { return e.Cause }

// TooLargeError is returned when a file exceeds the read limit.
type TooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, over the %d byte limit", e.Path, e.Size, e.Limit)
}
