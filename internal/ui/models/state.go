// Package models holds the state rendered by the progress view.
package models

import (
	"time"

	orchmodels "github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/charmbracelet/bubbles/spinner"
)

// Status phases shown in the status bar.
const (
	PhaseReady     = "ready"
	PhaseThinking  = "thinking"
	PhaseExecuting = "executing"
	PhaseDone      = "done"
	PhaseFailed    = "failed"
)

// ActionLine is one action as it moves from pending to a final status.
type ActionLine struct {
	Kind    orchmodels.ActionKind
	Path    string
	Message string
	Status  orchmodels.Status
}

// State is everything the view renders.
type State struct {
	Spinner  spinner.Model
	Width    int
	DotCount int

	Prompt        string
	StatusPhase   string
	StatusMessage string

	Actions []ActionLine

	Summary     string
	Err         string
	TotalTokens int
	Duration    time.Duration
	Done        bool
	Interrupted bool
}
