package path

import (
	"errors"
	"fmt"
)

// RootError is returned when a project root is unusable.
type RootError struct {
	Root  string
	Cause error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("invalid project root %s: %v", e.Root, e.Cause)
}
func (e *RootError) Unwrap() error { return e.Cause }

var (
	ErrOutsideRoot   = errors.New("path is outside the project root")
	ErrRootNotSet    = errors.New("project root not set")
	ErrNotADirectory = errors.New("not a directory")
)
