package views

import (
	"fmt"
	"strings"

	orchmodels "github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/ui/models"
)

// RenderActions renders one line per action with its current status.
func RenderActions(s models.State) string {
	lines := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		lines = append(lines, RenderActionLine(a, s.Spinner.View()))
	}
	return strings.Join(lines, "\n")
}

// RenderActionLine renders a single action. pendingIcon is shown while the
// action runs.
func RenderActionLine(a models.ActionLine, pendingIcon string) string {
	var icon string
	switch a.Status {
	case orchmodels.StatusCompleted:
		icon = StatusDoneStyle.Render("✔")
	case orchmodels.StatusError:
		icon = StatusFailedStyle.Render("✘")
	default:
		icon = StatusExecutingStyle.Render(pendingIcon)
	}

	line := fmt.Sprintf("%s %s %s", icon, a.Kind, PathStyle.Render(a.Path))
	if a.Message != "" {
		line += " " + MessageStyle.Render(a.Message)
	}
	return line
}
