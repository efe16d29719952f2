package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTurns_RecentOldestFirst(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	for _, m := range []models.Message{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "two"},
		{Role: models.RoleUser, Content: "three"},
		{Role: models.RoleAssistant, Content: "four"},
	} {
		require.NoError(t, s.AppendTurn(ctx, "p1", m))
	}
	require.NoError(t, s.AppendTurn(ctx, "p2", models.Message{Role: models.RoleUser, Content: "other"}))

	got, err := s.FetchRecentTurns(ctx, "p1", 3)

	require.NoError(t, err)
	assert.Equal(t, []models.Message{
		{Role: models.RoleAssistant, Content: "two"},
		{Role: models.RoleUser, Content: "three"},
		{Role: models.RoleAssistant, Content: "four"},
	}, got)

	got, err = s.FetchRecentTurns(ctx, "p1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.FetchRecentTurns(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReport_LogsFinishedActions(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	reports := []models.Report{
		{ProjectID: "p1", Kind: models.ActionEditFile, Path: "a.ts", Status: models.StatusPending, Timestamp: ts},
		{ProjectID: "p1", Kind: models.ActionEditFile, Path: "a.ts", Status: models.StatusCompleted, Message: "Edited a.ts", Timestamp: ts},
		{ProjectID: "p1", Message: "Thinking", Status: models.StatusPending},
		{ProjectID: "p1", Kind: models.ActionDeleteFile, Path: "b.ts", Status: models.StatusError, Message: "Failed to delete b.ts", ErrorType: models.ErrorTypeProcessing, Timestamp: ts},
		{ProjectID: "p2", Kind: models.ActionCreateFile, Path: "c.ts", Status: models.StatusCompleted},
	}
	for _, r := range reports {
		require.NoError(t, s.Report(ctx, r))
	}

	got, err := s.Actions(ctx, "p1", 10)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ActionEditFile, got[0].Kind)
	assert.Equal(t, models.StatusCompleted, got[0].Status)
	assert.Equal(t, "Edited a.ts", got[0].Message)
	assert.True(t, ts.Equal(got[0].CreatedAt))
	assert.Equal(t, models.ErrorTypeProcessing, got[1].ErrorType)

	got, err = s.Actions(ctx, "p1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b.ts", got[0].Path)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "kosuke.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(ctx, "p", models.Message{Role: models.RoleUser, Content: "hi"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.FetchRecentTurns(ctx, "p", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
