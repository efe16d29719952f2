package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// ErrInvalidAction is returned when an action does not match its tool.
var ErrInvalidAction = errors.New("invalid action")

// ToolExecutor performs the filesystem work for one kind.
type ToolExecutor func(ctx context.Context, fs FileSystem, action models.Action) (string, error)

// BaseAdapter provides the common Tool plumbing:
// - kind check
// - path and content checks
// - context cancellation
// - error wrapping with the action for logs
type BaseAdapter struct {
	kind        models.ActionKind
	description string
	executor    ToolExecutor
}

// NewBaseAdapter creates a new base adapter for kind.
func NewBaseAdapter(kind models.ActionKind, description string, executor ToolExecutor) *BaseAdapter {
	return &BaseAdapter{
		kind:        kind,
		description: description,
		executor:    executor,
	}
}

// Kind implements adapter.Tool
func (b *BaseAdapter) Kind() models.ActionKind {
	return b.kind
}

// Description implements adapter.Tool
func (b *BaseAdapter) Description() string {
	return b.description
}

// Execute implements adapter.Tool
func (b *BaseAdapter) Execute(ctx context.Context, fs FileSystem, action models.Action) (string, error) {
	if err := b.validate(action); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := b.executor(ctx, fs, action)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", b.kind, action.Path, err)
	}
	return out, nil
}

func (b *BaseAdapter) validate(action models.Action) error {
	if action.Kind != b.kind {
		return fmt.Errorf("%w: %s tool cannot run %s", ErrInvalidAction, b.kind, action.Kind)
	}
	if action.Path == "" {
		return fmt.Errorf("%w: %s requires a path", ErrInvalidAction, b.kind)
	}
	if b.kind.RequiresContent() && action.Content == "" {
		return fmt.Errorf("%w: %s requires content", ErrInvalidAction, b.kind)
	}
	return nil
}
