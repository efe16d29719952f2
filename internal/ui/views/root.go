package views

import (
	"fmt"
	"time"

	"github.com/Cyclone1070/kosuke/internal/tokens"
	"github.com/Cyclone1070/kosuke/internal/ui/models"
	"github.com/Cyclone1070/kosuke/internal/ui/services"
	"github.com/charmbracelet/lipgloss"
)

// RenderRoot renders the complete UI layout
func RenderRoot(s models.State, renderer services.MarkdownRenderer) string {
	var sections []string
	if s.Prompt != "" {
		sections = append(sections, PromptStyle.Render("> "+s.Prompt))
	}
	if len(s.Actions) > 0 {
		sections = append(sections, RenderActions(s))
	}
	sections = append(sections, RenderStatus(s))

	if s.Done && s.Summary != "" {
		sections = append(sections, RenderSummary(s, renderer))
	}
	if s.Done && (s.TotalTokens > 0 || s.Duration > 0) {
		sections = append(sections, FooterStyle.Render(fmt.Sprintf("%s tokens in %s",
			tokens.Format(s.TotalTokens), s.Duration.Round(100*time.Millisecond))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// RenderSummary renders the run summary as markdown, or as plain text when
// rendering fails.
func RenderSummary(s models.State, renderer services.MarkdownRenderer) string {
	out, err := services.RenderMarkdown(s.Summary, s.Width-4, renderer)
	if err != nil {
		out = s.Summary
	}
	return SummaryStyle.Render(out)
}
