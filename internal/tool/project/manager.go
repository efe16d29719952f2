package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/Cyclone1070/kosuke/internal/config"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/adapter"
	"github.com/Cyclone1070/kosuke/internal/tool/fs"
)

var ErrInvalidProjectID = errors.New("invalid project id")

var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Manager opens workspaces below the projects directory.
type Manager struct {
	dir    string
	limits Limits
	fs     *fs.OSFileSystem
}

// NewManager creates a manager for cfg.ProjectsDir.
func NewManager(cfg config.ToolsConfig) *Manager {
	return &Manager{
		dir: cfg.ProjectsDir,
		limits: Limits{
			MaxFileSize:      cfg.MaxFileSize,
			MaxSearchResults: cfg.MaxSearchResults,
		},
		fs: fs.NewOSFileSystem(),
	}
}

// Open returns the workspace for projectID, creating its directory on
// first use.
func (m *Manager) Open(projectID string) (adapter.FileSystem, error) {
	if !projectIDPattern.MatchString(projectID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProjectID, projectID)
	}
	root := filepath.Join(m.dir, projectID)
	if err := m.fs.EnsureDirs(root); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	return NewWorkspace(root, m.limits)
}
