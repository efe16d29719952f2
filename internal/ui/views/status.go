package views

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/kosuke/internal/ui/models"
)

// RenderStatus renders the status bar
func RenderStatus(s models.State) string {
	switch s.StatusPhase {
	case models.PhaseThinking:
		dots := strings.Repeat(".", s.DotCount)
		msg := s.StatusMessage
		if msg == "" {
			msg = "Thinking"
		}
		return StatusThinkingStyle.Render(fmt.Sprintf("%s %s%s", s.Spinner.View(), msg, dots))
	case models.PhaseExecuting:
		return StatusExecutingStyle.Render(fmt.Sprintf("%s %s", s.Spinner.View(), s.StatusMessage))
	case models.PhaseDone:
		return StatusDoneStyle.Render("✔ " + orDefault(s.StatusMessage, "Done"))
	case models.PhaseFailed:
		return StatusFailedStyle.Render("✘ " + orDefault(s.Err, s.StatusMessage))
	default:
		return StatusDefaultStyle.Render(orDefault(s.StatusMessage, "Ready"))
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
