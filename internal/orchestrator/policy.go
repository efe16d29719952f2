package orchestrator

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// ErrPathDenied is returned for actions that touch a protected path.
var ErrPathDenied = errors.New("path is protected by policy")

// Policy restricts which project paths actions may touch.
// It is read-only after construction and safe for concurrent use.
type Policy struct {
	deny []string
}

// NewPolicy creates a policy denying every path equal to or below one of
// the given prefixes.
func NewPolicy(deny []string) *Policy {
	p := &Policy{}
	for _, d := range deny {
		d = strings.Trim(path.Clean("/"+strings.TrimSpace(d)), "/")
		if d == "" {
			continue
		}
		p.deny = append(p.deny, d)
	}
	return p
}

// CheckAction validates that action may run. Search queries are not paths
// and are always allowed.
func (p *Policy) CheckAction(action models.Action) error {
	if p == nil || action.Kind == models.ActionSearch {
		return nil
	}

	clean := strings.Trim(path.Clean("/"+action.Path), "/")
	if clean == "" && action.Kind == models.ActionRemoveDirectory {
		return fmt.Errorf("%w: cannot remove the project root", ErrPathDenied)
	}
	for _, d := range p.deny {
		if clean == d || strings.HasPrefix(clean, d+"/") {
			return fmt.Errorf("%w: %s", ErrPathDenied, action.Path)
		}
	}
	return nil
}
