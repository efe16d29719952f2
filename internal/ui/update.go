package ui

import (
	"time"

	orchmodels "github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/ui/models"
	"github.com/Cyclone1070/kosuke/internal/ui/services"
	"github.com/Cyclone1070/kosuke/internal/ui/views"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// BubbleTeaModel implements tea.Model
type BubbleTeaModel struct {
	state models.State

	renderer services.MarkdownRenderer

	reports     <-chan orchmodels.Report
	completions <-chan orchmodels.Completion
	results     <-chan orchmodels.RunResult
}

// SpinnerFactory creates a new spinner
type SpinnerFactory func() spinner.Model

// DefaultSpinner is the spinner used by the CLI.
func DefaultSpinner() spinner.Model {
	return spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(views.StatusThinkingStyle))
}

func newBubbleTeaModel(ch *Channels, prompt string, renderer services.MarkdownRenderer, spinnerFactory SpinnerFactory) BubbleTeaModel {
	if spinnerFactory == nil {
		spinnerFactory = DefaultSpinner
	}
	return BubbleTeaModel{
		state: models.State{
			Spinner:     spinnerFactory(),
			Prompt:      prompt,
			StatusPhase: models.PhaseThinking,
		},
		renderer:    renderer,
		reports:     ch.Reports,
		completions: ch.Completions,
		results:     ch.Results,
	}
}

// Internal messages
type tickMsg time.Time
type reportMsg orchmodels.Report
type completionMsg orchmodels.Completion
type resultMsg orchmodels.RunResult

// Init initializes the model
func (m BubbleTeaModel) Init() tea.Cmd {
	return tea.Batch(
		m.state.Spinner.Tick,
		tick(),
		listenForReports(m.reports),
		listenForCompletions(m.completions),
		listenForResults(m.results),
	)
}

// Update handles messages
func (m BubbleTeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.state.Interrupted = true
			m.state.StatusPhase = models.PhaseFailed
			m.state.StatusMessage = "Interrupted"
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.state.Width = msg.Width

	case tickMsg:
		m.state.DotCount = (m.state.DotCount + 1) % 4
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.state.Spinner, cmd = m.state.Spinner.Update(msg)
		return m, cmd

	case reportMsg:
		m.applyReport(orchmodels.Report(msg))
		return m, listenForReports(m.reports)

	case completionMsg:
		m.state.TotalTokens = msg.TotalTokens
		m.state.Duration = msg.Duration
		return m, listenForCompletions(m.completions)

	case resultMsg:
		m.drain()
		m.state.Done = true
		if msg.Success {
			m.state.StatusPhase = models.PhaseDone
			m.state.Summary = msg.Summary
		} else {
			m.state.StatusPhase = models.PhaseFailed
			m.state.Err = msg.Error
		}
		return m, tea.Quit
	}
	return m, nil
}

// applyReport folds a report into the state. An action report updates the
// newest pending line for the same action, or starts a new line.
func (m *BubbleTeaModel) applyReport(r orchmodels.Report) {
	if !r.IsAction() {
		switch r.UpdateType {
		case orchmodels.UpdateThinking:
			m.state.StatusPhase = models.PhaseThinking
		case orchmodels.UpdateCompleted:
			m.state.StatusPhase = models.PhaseDone
		case orchmodels.UpdateError:
			m.state.StatusPhase = models.PhaseFailed
		}
		m.state.StatusMessage = r.Message
		return
	}

	if r.Status == orchmodels.StatusPending {
		m.state.StatusPhase = models.PhaseExecuting
		m.state.StatusMessage = r.Message
	}
	for i := len(m.state.Actions) - 1; i >= 0; i-- {
		a := &m.state.Actions[i]
		if a.Kind == r.Kind && a.Path == r.Path && a.Status == orchmodels.StatusPending {
			a.Status = r.Status
			if r.Message != "" {
				a.Message = r.Message
			}
			return
		}
	}
	m.state.Actions = append(m.state.Actions, models.ActionLine{
		Kind:    r.Kind,
		Path:    r.Path,
		Message: r.Message,
		Status:  r.Status,
	})
}

// drain applies events still buffered when the result arrives.
func (m *BubbleTeaModel) drain() {
	for {
		select {
		case r := <-m.reports:
			m.applyReport(r)
		case c := <-m.completions:
			m.state.TotalTokens = c.TotalTokens
			m.state.Duration = c.Duration
		default:
			return
		}
	}
}

// View renders the UI
func (m BubbleTeaModel) View() string {
	return views.RenderRoot(m.state, m.renderer)
}

func listenForReports(ch <-chan orchmodels.Report) tea.Cmd {
	return func() tea.Msg {
		return reportMsg(<-ch)
	}
}

func listenForCompletions(ch <-chan orchmodels.Completion) tea.Cmd {
	return func() tea.Msg {
		return completionMsg(<-ch)
	}
}

func listenForResults(ch <-chan orchmodels.RunResult) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(<-ch)
	}
}

func tick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
