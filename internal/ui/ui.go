// Package ui renders agent runs in the terminal.
package ui

import (
	"context"
	"errors"
	"sync"

	orchmodels "github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/ui/services"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrClosed is returned by reports sent after the UI has exited.
var ErrClosed = errors.New("ui closed")

// Channels carry run events from the orchestrator to the UI.
type Channels struct {
	Reports     chan orchmodels.Report
	Completions chan orchmodels.Completion
	Results     chan orchmodels.RunResult
}

// NewChannels creates the event channels with default buffers.
func NewChannels() *Channels {
	return &Channels{
		Reports:     make(chan orchmodels.Report, 64),
		Completions: make(chan orchmodels.Completion, 1),
		Results:     make(chan orchmodels.RunResult, 1),
	}
}

// UI is a bubbletea progress view for one run. It implements
// models.Reporter and models.CompletionReporter.
type UI struct {
	program *tea.Program
	ch      *Channels

	closed    chan struct{}
	closeOnce sync.Once
}

// NewUI creates the progress view for prompt.
func NewUI(ch *Channels, prompt string, renderer services.MarkdownRenderer, spinnerFactory SpinnerFactory, opts ...tea.ProgramOption) *UI {
	model := newBubbleTeaModel(ch, prompt, renderer, spinnerFactory)
	return &UI{
		program: tea.NewProgram(model, opts...),
		ch:      ch,
		closed:  make(chan struct{}),
	}
}

// Start runs the program until the run finishes or the user quits. It
// reports whether the user interrupted the run.
func (u *UI) Start() (interrupted bool, err error) {
	defer u.closeOnce.Do(func() { close(u.closed) })
	final, err := u.program.Run()
	if err != nil {
		return false, err
	}
	if m, ok := final.(BubbleTeaModel); ok {
		return m.state.Interrupted, nil
	}
	return false, nil
}

func (u *UI) Report(ctx context.Context, r orchmodels.Report) error {
	select {
	case u.ch.Reports <- r:
		return nil
	case <-u.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *UI) ReportCompletion(ctx context.Context, c orchmodels.Completion) error {
	select {
	case u.ch.Completions <- c:
		return nil
	case <-u.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish hands the run result to the view, which then exits.
func (u *UI) Finish(res orchmodels.RunResult) {
	select {
	case u.ch.Results <- res:
	case <-u.closed:
	}
}
