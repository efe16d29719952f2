package adapter

import (
	"context"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// FileSystem is the project filesystem a tool operates on.
// All paths are project-relative.
type FileSystem interface {
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	DeleteFile(path string) error
	Mkdir(path string) error
	Rmdir(path string) error
	Search(query string) ([]string, error)
	ListFiles() ([]string, error)
}

// Tool executes one action kind against a FileSystem.
// Tools are stateless and safe for concurrent use. They never retry and
// never swallow errors.
type Tool interface {
	// Kind returns the action kind this tool handles
	Kind() models.ActionKind

	// Description returns a one-line signature for the system prompt
	Description() string

	// Execute runs the action. Read and search return data; mutating
	// kinds return an empty string.
	Execute(ctx context.Context, fs FileSystem, action models.Action) (string, error)
}
