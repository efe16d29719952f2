package views

import "github.com/charmbracelet/lipgloss"

var (
	StatusDefaultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	StatusThinkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	StatusExecutingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	StatusDoneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	StatusFailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	PromptStyle  = lipgloss.NewStyle().Bold(true)
	PathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	MessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	FooterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	SummaryStyle = lipgloss.NewStyle().MarginTop(1)
)
