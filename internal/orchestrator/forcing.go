package orchestrator

import (
	"fmt"
	"math"

	"github.com/Cyclone1070/kosuke/internal/config"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// Decision is the loop guard verdict for one thinking iteration.
type Decision struct {
	Force      bool
	Reason     string
	Duplicates []string
}

// LoopGuard decides when a run that keeps gathering context must be forced
// to implement. Duplicate reads are counted across the whole run, so a
// model that proposes one already-read file per iteration is forced on its
// third repeat.
type LoopGuard struct {
	maxIterations int
	threshold     int
	forceAt       int
	warnAt        int

	duplicates int
}

// NewLoopGuard builds a guard from the agent limits.
func NewLoopGuard(cfg config.AgentConfig) *LoopGuard {
	return &LoopGuard{
		maxIterations: cfg.MaxIterations,
		threshold:     cfg.DuplicateReadThreshold,
		forceAt:       iterationAt(cfg.ForceIterationRatio, cfg.MaxIterations),
		warnAt:        iterationAt(cfg.WarningIterationRatio, cfg.MaxIterations),
	}
}

// iterationAt returns floor(ratio*limit), never below 1 and never above limit.
func iterationAt(ratio float64, limit int) int {
	n := int(math.Floor(ratio*float64(limit) + 1e-9))
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForceAt is the iteration from which every thinking response is forced.
func (g *LoopGuard) ForceAt() int {
	return g.forceAt
}

// WarnAt is the iteration from which the context carries a limit warning.
func (g *LoopGuard) WarnAt() int {
	return g.warnAt
}

// Observe inspects the actions proposed at iteration and reports whether the
// run must be forced. readFiles is the set of paths already read.
func (g *LoopGuard) Observe(iteration int, actions []models.Action, readFiles map[string]bool) Decision {
	var d Decision
	for _, a := range actions {
		if a.Kind == models.ActionReadFile && readFiles[a.Path] {
			d.Duplicates = append(d.Duplicates, a.Path)
		}
	}
	g.duplicates += len(d.Duplicates)

	switch {
	case len(d.Duplicates) >= g.threshold:
		d.Force = true
		d.Reason = fmt.Sprintf("%d already-read files requested in one iteration", len(d.Duplicates))
	case g.duplicates >= g.threshold:
		d.Force = true
		d.Reason = fmt.Sprintf("already-read files requested %d times", g.duplicates)
	case iteration >= g.forceAt:
		d.Force = true
		d.Reason = fmt.Sprintf("iteration %d reached the forcing limit of %d", iteration, g.forceAt)
	}
	return d
}

// Warning returns the near-limit warning text for iteration, or "" when the
// run is not yet close to the limit.
func (g *LoopGuard) Warning(iteration int) string {
	if iteration < g.warnAt {
		return ""
	}
	left := g.maxIterations - iteration
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("You are on iteration %d of %d (%d left). Stop gathering context: "+
		"implement the changes now with thinking set to false, using the files you have already read.",
		iteration, g.maxIterations, left)
}
