package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Cyclone1070/kosuke/internal/config"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/adapter"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	provider "github.com/Cyclone1070/kosuke/internal/provider/models"
	"github.com/Cyclone1070/kosuke/internal/testing/mocks"
	"github.com/Cyclone1070/kosuke/internal/testing/testhelpers"
	"github.com/Cyclone1070/kosuke/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testSummary = "Added the hero section to the landing page."

type mockWorkspaces struct {
	fs  adapter.FileSystem
	err error
}

func (w *mockWorkspaces) Open(projectID string) (adapter.FileSystem, error) {
	return w.fs, w.err
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Agent.CompletionTimeoutMs = 5000
	return cfg
}

type harness struct {
	orch     *Orchestrator
	fs       *mocks.MockFileSystem
	reporter *testhelpers.MockReporter
	history  *testhelpers.MockHistory
	usage    *testhelpers.MockUsage
}

func newHarness(t *testing.T, cfg *config.Config, p provider.Provider, files map[string]string) *harness {
	t.Helper()
	h := &harness{
		fs:       mocks.NewMockFileSystem(files),
		reporter: &testhelpers.MockReporter{},
		history:  testhelpers.NewMockHistory(),
		usage:    &testhelpers.MockUsage{},
	}
	orch, err := New(cfg, Dependencies{
		Provider:   p,
		Workspaces: &mockWorkspaces{fs: h.fs},
		History:    h.history,
		Reporter:   h.reporter,
		Usage:      h.usage,
		Tokens:     tokens.NewCounterWithFunc(tokens.Estimate),
	})
	require.NoError(t, err)
	h.orch = orch
	return h
}

// scriptedProvider answers agent calls with steps in order, repeating the
// last step, and summary calls with testSummary. A step is a response text
// or an error.
func scriptedProvider(steps ...any) *testhelpers.MockProvider {
	p := testhelpers.NewMockProvider()
	var mu sync.Mutex
	i := 0
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if req.SystemPrompt == summarySystemPrompt {
			return textResponse(testSummary), nil
		}
		mu.Lock()
		step := steps[min(i, len(steps)-1)]
		i++
		mu.Unlock()
		return stepResult(step)
	}
	return p
}

func stepResult(step any) (*provider.GenerateResponse, error) {
	switch s := step.(type) {
	case string:
		return textResponse(s), nil
	case error:
		return nil, s
	default:
		panic(fmt.Sprintf("unsupported step %T", step))
	}
}

func textResponse(text string) *provider.GenerateResponse {
	return &provider.GenerateResponse{
		Text: text,
		Metadata: provider.ResponseMetadata{
			PromptTokens:     100,
			CompletionTokens: 10,
			TotalTokens:      110,
			ModelUsed:        "mock-model",
		},
	}
}

func lastMessage(req *provider.GenerateRequest) string {
	return req.Messages[len(req.Messages)-1].Content
}

func isForced(req *provider.GenerateRequest) bool {
	return strings.Contains(lastMessage(req), SectionFinal)
}

func agentRequests(p *testhelpers.MockProvider) []*provider.GenerateRequest {
	var out []*provider.GenerateRequest
	for _, r := range p.Requests() {
		if r.SystemPrompt != summarySystemPrompt {
			out = append(out, r)
		}
	}
	return out
}

func readJSON(paths ...string) string {
	acts := make([]string, len(paths))
	for i, p := range paths {
		acts[i] = fmt.Sprintf(`{"action": "readFile", "filePath": %q}`, p)
	}
	return `{"thinking": true, "actions": [` + strings.Join(acts, ", ") + `]}`
}

func createJSON(paths ...string) string {
	acts := make([]string, len(paths))
	for i, p := range paths {
		acts[i] = fmt.Sprintf(`{"action": "createFile", "filePath": %q, "content": "export {}", "message": "I will create %s"}`, p, p)
	}
	return `{"thinking": false, "actions": [` + strings.Join(acts, ", ") + `]}`
}

func statuses(reports []models.Report, path string) []models.Status {
	var out []models.Status
	for _, r := range reports {
		if r.Path == path {
			out = append(out, r.Status)
		}
	}
	return out
}

// --- HAPPY PATH ---

func TestRun_FencedResponseExecutes(t *testing.T) {
	raw := "```json\n{\"thinking\":false,\"actions\":[{\"action\":\"createFile\",\"filePath\":\"app/page.tsx\",\"content\":\"...\",\"message\":\"...\"}]}\n```"
	p := scriptedProvider(raw)
	h := newHarness(t, testConfig(), p, map[string]string{"app/layout.tsx": "layout"})

	res := h.orch.Run(context.Background(), "42", "Add a landing page")

	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.ErrorType)
	assert.Equal(t, testSummary, res.Summary)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, "...", h.fs.Files["app/page.tsx"])
	require.Len(t, res.Actions, 1)

	assert.Equal(t, []models.Status{models.StatusPending, models.StatusCompleted},
		statuses(h.reporter.ActionReports(), "app/page.tsx"))
	last := h.reporter.Last()
	assert.Equal(t, models.UpdateCompleted, last.UpdateType)
	assert.Equal(t, testSummary, last.Message)
	assert.Equal(t, "42", last.ProjectID)

	require.Len(t, h.reporter.Completions, 1)
	c := h.reporter.Completions[0]
	assert.True(t, c.Success)
	assert.Equal(t, 1, c.TotalActions)
	assert.Equal(t, 220, c.TotalTokens)

	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "Add a landing page"},
		{Role: models.RoleAssistant, Content: testSummary},
	}, h.history.Turns["42"])
}

func TestRun_InitialContextAndPrompt(t *testing.T) {
	p := scriptedProvider(createJSON("b.ts"))
	h := newHarness(t, testConfig(), p, map[string]string{"a.ts": "a", "lib/c.ts": "c"})

	h.orch.Run(context.Background(), "7", "  Create b  ")

	reqs := agentRequests(p)
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Contains(t, req.SystemPrompt, "readFile")
	assert.Contains(t, req.SystemPrompt, "removeDirectory")
	assert.Equal(t, "gemini-2.5-pro", req.Model)
	require.NotNil(t, req.Config)
	assert.Equal(t, float32(0.7), *req.Config.Temperature)

	msg := lastMessage(req)
	assert.True(t, strings.HasPrefix(msg, "Project 7."))
	dir, ok := sectionContent(msg, SectionDirectory)
	require.True(t, ok)
	assert.Contains(t, dir, "a.ts\nlib/c.ts")
	assert.True(t, strings.HasSuffix(msg, userRequestHeader+"\nCreate b"))
}

func TestRun_GathersThenExecutes(t *testing.T) {
	p := scriptedProvider(
		`{"thinking": true, "actions": [
			{"action": "readFile", "filePath": "app/page.tsx"},
			{"action": "search", "filePath": "Hero"},
			{"action": "deleteFile", "filePath": "app/page.tsx"}
		]}`,
		`{"thinking": false, "actions": [{"action": "editFile", "filePath": "app/page.tsx", "content": "new page"}]}`,
	)
	h := newHarness(t, testConfig(), p, map[string]string{
		"app/page.tsx":         "old page",
		"components/banner.ts": "export const Hero = 1",
	})

	res := h.orch.Run(context.Background(), "1", "Use the hero")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, "new page", h.fs.Files["app/page.tsx"])
	assert.Empty(t, h.fs.CallsFor("DeleteFile"), "mutations never run while thinking")

	reqs := agentRequests(p)
	require.Len(t, reqs, 2)
	second := lastMessage(reqs[1])
	files, ok := sectionContent(second, SectionFileContents)
	require.True(t, ok)
	assert.Contains(t, files, "#### app/page.tsx\n```\nold page\n```")
	assert.Contains(t, files, "#### [search] Hero")
	assert.Contains(t, files, "components/banner.ts:1: export const Hero = 1")

	read, ok := sectionContent(second, SectionReadFiles)
	require.True(t, ok)
	assert.Contains(t, read, "1. app/page.tsx")

	logSection, ok := sectionContent(second, SectionExecutionLog)
	require.True(t, ok)
	assert.Contains(t, logSection, "- Read app/page.tsx")
	assert.Contains(t, logSection, `- Searched for "Hero"`)

	var gatherReports []models.Report
	for _, r := range h.reporter.ActionReports() {
		if r.UpdateType == models.UpdateRead {
			gatherReports = append(gatherReports, r)
		}
	}
	assert.Len(t, gatherReports, 4)
}

func TestRun_ReadErrorsAreRecordedNotFatal(t *testing.T) {
	p := scriptedProvider(readJSON("missing.ts"), createJSON("a.ts"))
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Create a")

	require.True(t, res.Success, res.Error)
	reqs := agentRequests(p)
	require.Len(t, reqs, 2)
	files, ok := sectionContent(lastMessage(reqs[1]), SectionFileContents)
	require.True(t, ok)
	assert.Contains(t, files, "Error: ")
	assert.Equal(t, []models.Status{models.StatusPending, models.StatusError, models.StatusPending, models.StatusCompleted},
		append(statuses(h.reporter.ActionReports(), "missing.ts"), statuses(h.reporter.ActionReports(), "a.ts")...))
}

// --- LOOP AVOIDANCE ---

func TestRun_NeverRereadsFiles(t *testing.T) {
	p := scriptedProvider(
		readJSON("a.ts"),
		readJSON("a.ts", "b.ts", "b.ts"),
		readJSON("a.ts", "c.ts"),
		createJSON("d.ts"),
	)
	h := newHarness(t, testConfig(), p, map[string]string{"a.ts": "a", "b.ts": "b", "c.ts": "c"})

	res := h.orch.Run(context.Background(), "1", "Do it")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"a.ts", "b.ts", "c.ts"}, h.fs.CallsFor("ReadFile"))
}

func TestRun_ForcesOnThirdDuplicateRead(t *testing.T) {
	p := testhelpers.NewMockProvider()
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		switch {
		case req.SystemPrompt == summarySystemPrompt:
			return textResponse(testSummary), nil
		case isForced(req):
			return textResponse(createJSON("b.ts")), nil
		default:
			return textResponse(readJSON("a.ts")), nil
		}
	}
	h := newHarness(t, testConfig(), p, map[string]string{"a.ts": "a"})

	res := h.orch.Run(context.Background(), "1", "Create b")

	require.True(t, res.Success, res.Error)
	// Iteration 1 reads a.ts; iterations 2, 3 and 4 repeat it.
	assert.Equal(t, 4, res.Iterations)
	assert.Equal(t, []string{"a.ts"}, h.fs.CallsFor("ReadFile"))
	assert.Equal(t, "export {}", h.fs.Files["b.ts"])

	forced := 0
	for _, r := range agentRequests(p) {
		if isForced(r) {
			forced++
		}
	}
	assert.Equal(t, 1, forced, "forcing makes exactly one extra call")
}

func TestRun_ForcedThinkingTrueStillExecutes(t *testing.T) {
	p := testhelpers.NewMockProvider()
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		switch {
		case req.SystemPrompt == summarySystemPrompt:
			return textResponse(testSummary), nil
		case isForced(req):
			return textResponse(`{"thinking": true, "actions": [{"action": "createFile", "filePath": "b.ts", "content": "export {}", "message": "I will create b"}]}`), nil
		default:
			return textResponse(readJSON("a.ts")), nil
		}
	}
	h := newHarness(t, testConfig(), p, map[string]string{"a.ts": "a"})

	res := h.orch.Run(context.Background(), "1", "Create b")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "export {}", h.fs.Files["b.ts"])

	forced := 0
	for _, r := range agentRequests(p) {
		if isForced(r) {
			forced++
		}
	}
	assert.Equal(t, 1, forced)
}

func TestRun_LoopTerminatesAtForceIteration(t *testing.T) {
	p := testhelpers.NewMockProvider()
	n := 0
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if isForced(req) {
			return textResponse(`{"thinking": true, "actions": [{"action": "readFile", "filePath": "again.ts"}]}`), nil
		}
		n++
		return textResponse(readJSON(fmt.Sprintf("f%d.ts", n))), nil
	}
	cfg := testConfig()
	h := newHarness(t, cfg, p, nil)

	res := h.orch.Run(context.Background(), "1", "Keep reading")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeProcessing, res.ErrorType)
	assert.Equal(t, UserMessage(models.ErrorTypeProcessing), res.Error)
	assert.Equal(t, 20, res.Iterations)
	assert.LessOrEqual(t, res.Iterations, cfg.Agent.MaxIterations)
	assert.Len(t, agentRequests(p), 21)
}

func TestRun_WarningNearIterationLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Agent.MaxIterations = 5
	cfg.Agent.WarningIterationRatio = 0.4
	cfg.Agent.ForceIterationRatio = 1.0
	p := testhelpers.NewMockProvider()
	n := 0
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		n++
		if n == 3 {
			return textResponse(createJSON("a.ts")), nil
		}
		if req.SystemPrompt == summarySystemPrompt {
			return textResponse(testSummary), nil
		}
		return textResponse(readJSON(fmt.Sprintf("f%d.ts", n))), nil
	}
	h := newHarness(t, cfg, p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	reqs := agentRequests(p)
	require.Len(t, reqs, 3)
	assert.False(t, hasSection(lastMessage(reqs[0]), SectionWarning))
	assert.True(t, hasSection(lastMessage(reqs[1]), SectionWarning))
	assert.Equal(t, 1, countSections(lastMessage(reqs[2]), SectionWarning))
	warning, _ := sectionContent(lastMessage(reqs[2]), SectionWarning)
	assert.Contains(t, warning, "iteration 3 of 5")
}

func TestRun_MaxIterationsOnRepeatedParseFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Agent.MaxIterations = 3
	p := scriptedProvider("I am not sure what to do.")
	h := newHarness(t, cfg, p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeProcessing, res.ErrorType)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, p.CallCount())
}

// --- EXECUTION ---

func TestRun_SequentialAbort(t *testing.T) {
	p := scriptedProvider(createJSON("a1.ts", "a2.ts", "a3.ts"))
	h := newHarness(t, testConfig(), p, nil)
	h.fs.OpErrors["WriteFile:a2.ts"] = errors.New("disk full")

	res := h.orch.Run(context.Background(), "1", "Create three files")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeProcessing, res.ErrorType)
	assert.Equal(t, []string{"a1.ts", "a2.ts"}, h.fs.CallsFor("WriteFile"))
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "a1.ts", res.Actions[0].Path)

	reports := h.reporter.ActionReports()
	require.Len(t, reports, 4)
	assert.Equal(t, []models.Status{models.StatusPending, models.StatusCompleted}, statuses(reports, "a1.ts"))
	assert.Equal(t, []models.Status{models.StatusPending, models.StatusError}, statuses(reports, "a2.ts"))
	assert.Empty(t, statuses(reports, "a3.ts"))
	assert.Equal(t, models.ErrorTypeProcessing, reports[3].ErrorType)
	assert.NotContains(t, reports[3].Message, "disk full")

	last := h.reporter.Last()
	assert.False(t, last.IsAction())
	assert.Equal(t, models.StatusError, last.Status)
	assert.Equal(t, models.UpdateError, last.UpdateType)
	assert.Equal(t, UserMessage(models.ErrorTypeProcessing), last.Message)

	require.Len(t, h.reporter.Completions, 1)
	assert.False(t, h.reporter.Completions[0].Success)
	assert.Equal(t, 1, h.reporter.Completions[0].TotalActions)
	assert.Empty(t, h.history.Turns["1"], "failed runs are not recorded as turns")
}

func TestRun_ProtectedPathFails(t *testing.T) {
	p := scriptedProvider(createJSON(".git/config"))
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Break git")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeProcessing, res.ErrorType)
	assert.Empty(t, h.fs.CallsFor("WriteFile"))
}

func TestRun_ThinkingFalseWithoutActionsRetriesUntilForced(t *testing.T) {
	p := scriptedProvider(`{"thinking": false, "actions": []}`)
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Nothing")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeProcessing, res.ErrorType)
	assert.Equal(t, 20, res.Iterations)

	reqs := agentRequests(p)
	require.Len(t, reqs, 21)
	assert.False(t, hasSection(lastMessage(reqs[0]), SectionErrorNote))
	assert.True(t, hasSection(lastMessage(reqs[1]), SectionErrorNote))
	assert.True(t, isForced(reqs[20]))
}

func TestRun_InvalidReadyTurnRetries(t *testing.T) {
	p := scriptedProvider(
		`{"thinking": false, "actions": [{"action": "editFile", "filePath": "app/page.tsx", "message": "I will edit the page"}]}`,
		createJSON("b.ts"),
	)
	h := newHarness(t, testConfig(), p, map[string]string{"app/page.tsx": "page"})

	res := h.orch.Run(context.Background(), "1", "Edit the page")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, "export {}", h.fs.Files["b.ts"])
	assert.Equal(t, "page", h.fs.Files["app/page.tsx"])

	reqs := agentRequests(p)
	require.Len(t, reqs, 2)
	note, ok := sectionContent(lastMessage(reqs[1]), SectionErrorNote)
	require.True(t, ok)
	assert.Contains(t, note, "no usable actions")
	assert.Contains(t, note, "action 1 was dropped: editFile app/page.tsx: missing content")
}

func TestRun_ReadyTurnRunsReadsInOrder(t *testing.T) {
	p := scriptedProvider(`{"thinking": false, "actions": [
		{"action": "readFile", "filePath": "a.ts", "message": "I will read a"},
		{"action": "createFile", "filePath": "b.ts", "content": "export {}", "message": "I will create b"}
	]}`)
	h := newHarness(t, testConfig(), p, map[string]string{"a.ts": "a"})

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"a.ts"}, h.fs.CallsFor("ReadFile"))
	assert.Equal(t, "export {}", h.fs.Files["b.ts"])
	require.Len(t, res.Actions, 1)
	assert.Equal(t, models.ActionCreateFile, res.Actions[0].Kind)
	assert.Equal(t, []models.Status{models.StatusPending, models.StatusCompleted},
		statuses(h.reporter.ActionReports(), "a.ts"))
}

func TestRun_ReadyTurnFailingReadAborts(t *testing.T) {
	p := scriptedProvider(`{"thinking": false, "actions": [
		{"action": "readFile", "filePath": "missing.ts", "message": "I will read missing"},
		{"action": "createFile", "filePath": "b.ts", "content": "export {}", "message": "I will create b"}
	]}`)
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeProcessing, res.ErrorType)
	assert.Empty(t, h.fs.CallsFor("WriteFile"))
	assert.Equal(t, []models.Status{models.StatusPending, models.StatusError},
		statuses(h.reporter.ActionReports(), "missing.ts"))
	assert.Empty(t, statuses(h.reporter.ActionReports(), "b.ts"))
}

func TestRun_ThinkingFalseWithOnlyReadsKeepsGathering(t *testing.T) {
	p := scriptedProvider(
		`{"thinking": false, "actions": [{"action": "readFile", "filePath": "a.ts"}]}`,
		createJSON("b.ts"),
	)
	h := newHarness(t, testConfig(), p, map[string]string{"a.ts": "a"})

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, []string{"a.ts"}, h.fs.CallsFor("ReadFile"))
}

func TestRun_SummaryFallback(t *testing.T) {
	p := testhelpers.NewMockProvider()
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if req.SystemPrompt == summarySystemPrompt {
			return nil, errors.New("summary model unavailable")
		}
		return textResponse(createJSON("a.ts", "b.ts")), nil
	}
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Applied 2 changes: created a.ts, created b.ts.", res.Summary)
}

// --- ERRORS & RECOVERY ---

func TestRun_ParseErrorNoteRecovery(t *testing.T) {
	p := scriptedProvider("Sorry, here is my plan in prose.", createJSON("a.ts"))
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Iterations)
	reqs := agentRequests(p)
	require.Len(t, reqs, 2)
	assert.False(t, hasSection(lastMessage(reqs[0]), SectionErrorNote))
	note, ok := sectionContent(lastMessage(reqs[1]), SectionErrorNote)
	require.True(t, ok)
	assert.Contains(t, note, "failed to parse JSON response")
}

func TestRun_RetryableProviderErrorContinues(t *testing.T) {
	unavailable := &provider.ProviderError{
		Code:       provider.ErrorCodeUnavailable,
		Message:    "overloaded",
		Underlying: provider.ErrServiceUnavailable,
		Retryable:  true,
	}
	p := scriptedProvider(unavailable, createJSON("a.ts"))
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Iterations)
}

func TestRun_NonRetryableProviderErrorFails(t *testing.T) {
	auth := &provider.ProviderError{
		Code:       provider.ErrorCodeAuth,
		Message:    "bad key",
		Underlying: provider.ErrAuthentication,
	}
	p := scriptedProvider(auth)
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeUnknown, res.ErrorType)
	assert.Equal(t, UserMessage(models.ErrorTypeUnknown), res.Error)
	assert.NotContains(t, res.Error, "bad key")
	assert.Equal(t, 1, p.CallCount())
}

func TestRun_TruncatedResponseParsesPartialText(t *testing.T) {
	p := testhelpers.NewMockProvider()
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if req.SystemPrompt == summarySystemPrompt {
			return textResponse(testSummary), nil
		}
		partial := `{"thinking": false, "actions": [{"action": "createFile", "filePath": "a.ts", "content": "a"}, {"action": "createFile", "filePath": "b.ts", "content": "unfinis`
		return textResponse(partial), &provider.ProviderError{
			Code:       provider.ErrorCodeTruncated,
			Message:    "max tokens",
			Underlying: provider.ErrTruncated,
		}
	}
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"a.ts"}, h.fs.CallsFor("WriteFile"))
}

func TestRun_ForcedParseFailureIsFatal(t *testing.T) {
	p := testhelpers.NewMockProvider()
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		if isForced(req) {
			return textResponse("I give up"), nil
		}
		return textResponse(readJSON("a.ts")), nil
	}
	h := newHarness(t, testConfig(), p, map[string]string{"a.ts": "a"})

	res := h.orch.Run(context.Background(), "1", "Go")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeParsing, res.ErrorType)
	assert.Equal(t, UserMessage(models.ErrorTypeParsing), res.Error)
}

func TestRun_TimeoutClassification(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig()
	cfg.Agent.CompletionTimeoutMs = 50
	p := testhelpers.NewMockProvider()
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	h := newHarness(t, cfg, p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeTimeout, res.ErrorType)
	assert.Equal(t, UserMessage(models.ErrorTypeTimeout), res.Error)
	assert.Equal(t, 1, p.CallCount(), "timeouts are fatal")
	assert.Equal(t, models.ErrorTypeTimeout, h.reporter.Last().ErrorType)
}

func TestRun_LateResultIsDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig()
	cfg.Agent.CompletionTimeoutMs = 20
	p := testhelpers.NewMockProvider()
	p.GenerateFunc = func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
		// Ignores ctx and answers after the deadline.
		time.Sleep(150 * time.Millisecond)
		return textResponse(createJSON("late.ts")), nil
	}
	h := newHarness(t, cfg, p, nil)

	res := h.orch.Run(context.Background(), "1", "Go")

	assert.Equal(t, models.ErrorTypeTimeout, res.ErrorType)
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, h.fs.CallsFor("WriteFile"))
	assert.Empty(t, h.usage.Usages)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := scriptedProvider(createJSON("a.ts"))
	h := newHarness(t, testConfig(), p, nil)

	res := h.orch.Run(ctx, "1", "Go")

	assert.False(t, res.Success)
	assert.Equal(t, 0, p.CallCount())
	require.Len(t, h.reporter.Completions, 1, "final reports are delivered after cancellation")
}

func TestRun_WorkspaceOpenFailure(t *testing.T) {
	p := scriptedProvider(createJSON("a.ts"))
	orch, err := New(testConfig(), Dependencies{
		Provider:   p,
		Workspaces: &mockWorkspaces{err: errors.New("no such project")},
	})
	require.NoError(t, err)

	res := orch.Run(context.Background(), "1", "Go")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorTypeProcessing, res.ErrorType)
	assert.Equal(t, 0, p.CallCount())
}

// --- COLLABORATORS ---

func TestRun_HistoryLimitedToRecentTurns(t *testing.T) {
	p := scriptedProvider(createJSON("a.ts"))
	h := newHarness(t, testConfig(), p, nil)
	for i := range 12 {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		h.history.Turns["1"] = append(h.history.Turns["1"], models.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []int{10}, h.history.Limits)
	req := agentRequests(p)[0]
	require.Len(t, req.Messages, 11)
	assert.Equal(t, "turn 2", req.Messages[0].Content)
	assert.Equal(t, "turn 11", req.Messages[9].Content)
}

func TestRun_HistoryFailureIsNotFatal(t *testing.T) {
	p := scriptedProvider(createJSON("a.ts"))
	h := newHarness(t, testConfig(), p, nil)
	h.history.FetchErr = errors.New("db locked")

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Len(t, agentRequests(p)[0].Messages, 1)
}

func TestRun_ReporterFailuresDoNotAbort(t *testing.T) {
	p := scriptedProvider(createJSON("a.ts"))
	h := newHarness(t, testConfig(), p, nil)
	h.reporter.Err = errors.New("webhook down")

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "export {}", h.fs.Files["a.ts"])
}

func TestRun_PerRunReporter(t *testing.T) {
	p := scriptedProvider(createJSON("a.ts"))
	h := newHarness(t, testConfig(), p, nil)
	var seen []models.Report
	observer := models.ReporterFunc(func(ctx context.Context, r models.Report) error {
		seen = append(seen, r)
		return nil
	})

	h.orch.Run(context.Background(), "1", "Go", WithReporter(observer))

	assert.Equal(t, len(h.reporter.Reports), len(seen))
	assert.Equal(t, models.UpdateThinking, seen[0].UpdateType)
}

func TestRun_UsageRecordedPerCall(t *testing.T) {
	p := scriptedProvider(readJSON("a.ts"), createJSON("b.ts"))
	h := newHarness(t, testConfig(), p, map[string]string{"a.ts": "a"})

	res := h.orch.Run(context.Background(), "1", "Go")

	require.True(t, res.Success, res.Error)
	var phases []string
	for _, u := range h.usage.Usages {
		phases = append(phases, u.Phase)
		assert.Equal(t, "1", u.ProjectID)
		assert.Positive(t, u.ContextTokens)
	}
	assert.Equal(t, []string{"thinking", "context", "thinking", "summary"}, phases)
	assert.Equal(t, 300, res.Usage.InputTokens)
	assert.Equal(t, 30, res.Usage.OutputTokens)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, Dependencies{})
	assert.Error(t, err)

	_, err = New(testConfig(), Dependencies{Workspaces: &mockWorkspaces{}})
	assert.Error(t, err)

	_, err = New(testConfig(), Dependencies{Provider: testhelpers.NewMockProvider()})
	assert.Error(t, err)
}
