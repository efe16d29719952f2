package adapter

import (
	"context"
	"strings"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// This file consolidates all tool adapters using the BaseAdapter pattern.

// NewReadFile creates the readFile tool
func NewReadFile() Tool {
	return NewBaseAdapter(
		models.ActionReadFile,
		"readFile(filePath: string) - Read the contents of a file to understand existing code before making changes",
		func(_ context.Context, fs FileSystem, a models.Action) (string, error) {
			return fs.ReadFile(a.Path)
		},
	)
}

// NewEditFile creates the editFile tool
func NewEditFile() Tool {
	return NewBaseAdapter(
		models.ActionEditFile,
		"editFile(filePath: string, content: string) - Replace a file with its complete new content",
		writeContent,
	)
}

// NewCreateFile creates the createFile tool
func NewCreateFile() Tool {
	return NewBaseAdapter(
		models.ActionCreateFile,
		"createFile(filePath: string, content: string) - Create a new file",
		writeContent,
	)
}

// NewDeleteFile creates the deleteFile tool
func NewDeleteFile() Tool {
	return NewBaseAdapter(
		models.ActionDeleteFile,
		"deleteFile(filePath: string) - Delete a file",
		func(_ context.Context, fs FileSystem, a models.Action) (string, error) {
			return "", fs.DeleteFile(a.Path)
		},
	)
}

// NewCreateDirectory creates the createDirectory tool
func NewCreateDirectory() Tool {
	return NewBaseAdapter(
		models.ActionCreateDirectory,
		"createDirectory(filePath: string) - Create a new directory",
		func(_ context.Context, fs FileSystem, a models.Action) (string, error) {
			return "", fs.Mkdir(a.Path)
		},
	)
}

// NewRemoveDirectory creates the removeDirectory tool
func NewRemoveDirectory() Tool {
	return NewBaseAdapter(
		models.ActionRemoveDirectory,
		"removeDirectory(filePath: string) - Remove a directory and all its contents",
		func(_ context.Context, fs FileSystem, a models.Action) (string, error) {
			return "", fs.Rmdir(a.Path)
		},
	)
}

// NewSearch creates the search tool. The path field carries the query.
func NewSearch() Tool {
	return NewBaseAdapter(
		models.ActionSearch,
		"search(filePath: string) - Search file names and contents for the given text; filePath holds the query",
		func(_ context.Context, fs FileSystem, a models.Action) (string, error) {
			matches, err := fs.Search(a.Path)
			if err != nil {
				return "", err
			}
			if len(matches) == 0 {
				return "No matches found.", nil
			}
			return strings.Join(matches, "\n"), nil
		},
	)
}

func writeContent(_ context.Context, fs FileSystem, a models.Action) (string, error) {
	return "", fs.WriteFile(a.Path, a.Content)
}
