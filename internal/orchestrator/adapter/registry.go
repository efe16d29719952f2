package adapter

import (
	"fmt"
	"sort"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// Registry maps action kinds to tools. It is built once per process and
// read-only afterwards.
type Registry struct {
	tools map[models.ActionKind]Tool
}

// NewRegistry creates a registry holding tools.
// A later tool replaces an earlier one with the same kind.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[models.ActionKind]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// DefaultRegistry holds a tool for every known action kind.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewReadFile(),
		NewEditFile(),
		NewCreateFile(),
		NewDeleteFile(),
		NewCreateDirectory(),
		NewRemoveDirectory(),
		NewSearch(),
	)
}

// Register adds or replaces the tool for its kind.
func (r *Registry) Register(t Tool) {
	r.tools[t.Kind()] = t
}

// Lookup returns the tool for kind.
func (r *Registry) Lookup(kind models.ActionKind) (Tool, error) {
	t, ok := r.tools[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTool, kind)
	}
	return t, nil
}

// Descriptions returns tool signatures in a stable order for prompts.
func (r *Registry) Descriptions() []string {
	order := make(map[models.ActionKind]int, len(models.AllActionKinds))
	for i, k := range models.AllActionKinds {
		order[k] = i
	}
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool {
		oi, iok := order[tools[i].Kind()]
		oj, jok := order[tools[j].Kind()]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return tools[i].Kind() < tools[j].Kind()
	})
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Description()
	}
	return out
}
