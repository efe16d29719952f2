// Package services renders agent output for the terminal.
package services

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const defaultWidth = 80

// MarkdownRenderer renders markdown to styled terminal text.
type MarkdownRenderer interface {
	Render(content string, width int) (string, error)
}

// GlamourRenderer renders with glamour's auto-detected style.
type GlamourRenderer struct{}

func (GlamourRenderer) Render(content string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// RenderMarkdown renders content at width, falling back to a default width
// and to the raw text without a renderer.
func RenderMarkdown(content string, width int, renderer MarkdownRenderer) (string, error) {
	if renderer == nil {
		return content, nil
	}
	if width <= 0 {
		width = defaultWidth
	}
	out, err := renderer.Render(content, width)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
