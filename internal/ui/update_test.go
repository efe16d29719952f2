package ui

import (
	"testing"
	"time"

	orchmodels "github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/ui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestModel() (BubbleTeaModel, *Channels) {
	ch := NewChannels()
	return newBubbleTeaModel(ch, "add a header", &MockMarkdownRenderer{}, mockSpinnerFactory), ch
}

func update(t *testing.T, m BubbleTeaModel, msg tea.Msg) (BubbleTeaModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(BubbleTeaModel)
	require.True(t, ok)
	return out, cmd
}

func TestInit_ReturnsCommands(t *testing.T) {
	m, _ := createTestModel()
	assert.NotNil(t, m.Init())
	assert.Equal(t, models.PhaseThinking, m.state.StatusPhase)
}

func TestUpdate_ActionLifecycle(t *testing.T) {
	m, _ := createTestModel()

	m, cmd := update(t, m, reportMsg{Kind: orchmodels.ActionEditFile, Path: "a.ts", Status: orchmodels.StatusPending, Message: "I will edit a.ts"})
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, models.PhaseExecuting, m.state.StatusPhase)
	require.Len(t, m.state.Actions, 1)

	m, _ = update(t, m, reportMsg{Kind: orchmodels.ActionEditFile, Path: "a.ts", Status: orchmodels.StatusCompleted})
	require.Len(t, m.state.Actions, 1)
	assert.Equal(t, orchmodels.StatusCompleted, m.state.Actions[0].Status)
	assert.Equal(t, "I will edit a.ts", m.state.Actions[0].Message)

	m, _ = update(t, m, reportMsg{Kind: orchmodels.ActionEditFile, Path: "a.ts", Status: orchmodels.StatusPending})
	assert.Len(t, m.state.Actions, 2, "a finished line is never reused")
}

func TestUpdate_RunLevelReports(t *testing.T) {
	m, _ := createTestModel()

	m, _ = update(t, m, reportMsg{Message: "Reading files", UpdateType: orchmodels.UpdateThinking})
	assert.Equal(t, models.PhaseThinking, m.state.StatusPhase)
	assert.Equal(t, "Reading files", m.state.StatusMessage)
	assert.Empty(t, m.state.Actions)

	m, _ = update(t, m, reportMsg{Message: "Failed", UpdateType: orchmodels.UpdateError})
	assert.Equal(t, models.PhaseFailed, m.state.StatusPhase)
}

func TestUpdate_ResultQuits(t *testing.T) {
	m, ch := createTestModel()
	ch.Reports <- orchmodels.Report{Kind: orchmodels.ActionCreateFile, Path: "b.ts", Status: orchmodels.StatusCompleted}
	ch.Completions <- orchmodels.Completion{TotalTokens: 1200, Duration: time.Second}

	m, cmd := update(t, m, resultMsg{Success: true, Summary: "Created b.ts."})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.state.Done)
	assert.Equal(t, models.PhaseDone, m.state.StatusPhase)
	assert.Len(t, m.state.Actions, 1, "buffered reports are applied")
	assert.Equal(t, 1200, m.state.TotalTokens)
	assert.Contains(t, m.View(), "Created b.ts.")
	assert.Contains(t, m.View(), "1.2k tokens in 1s")
}

func TestUpdate_FailedResult(t *testing.T) {
	m, _ := createTestModel()

	m, _ = update(t, m, resultMsg{Error: "The request took too long to process."})

	assert.Equal(t, models.PhaseFailed, m.state.StatusPhase)
	assert.Contains(t, m.View(), "The request took too long to process.")
}

func TestUpdate_CtrlCInterrupts(t *testing.T) {
	m, _ := createTestModel()

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, m.state.Interrupted)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestUpdate_DotsAnimate(t *testing.T) {
	m, _ := createTestModel()

	m, cmd := update(t, m, tickMsg(time.Now()))

	assert.Equal(t, 1, m.state.DotCount)
	assert.NotNil(t, cmd)
}
