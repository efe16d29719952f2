// Package testhelpers provides shared fakes for orchestrator and server tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"

	orchmodels "github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/provider/models"
)

// MockProvider is a controllable mock of the completion service.
// Queued responses are returned in order; once exhausted, the last one
// repeats. GenerateFunc, when set, takes precedence over the queue.
type MockProvider struct {
	mu        sync.Mutex
	responses []scripted
	index     int
	requests  []*models.GenerateRequest
	modelName string

	GenerateFunc func(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error)
	// OnGenerateCalled is a callback for observing Generate calls
	OnGenerateCalled func(*models.GenerateRequest)
}

type scripted struct {
	text string
	err  error
}

// NewMockProvider creates a new mock provider with default settings
func NewMockProvider() *MockProvider {
	return &MockProvider{modelName: "mock-model"}
}

// WithTextResponse adds a text response to the queue
func (m *MockProvider) WithTextResponse(text string) *MockProvider {
	m.responses = append(m.responses, scripted{text: text})
	return m
}

// WithError adds a failing call to the queue
func (m *MockProvider) WithError(err error) *MockProvider {
	m.responses = append(m.responses, scripted{err: err})
	return m
}

// Generate implements the Provider interface
func (m *MockProvider) Generate(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	onCall := m.OnGenerateCalled
	fn := m.GenerateFunc
	var next scripted
	if fn == nil {
		if len(m.responses) == 0 {
			m.mu.Unlock()
			return nil, fmt.Errorf("mock provider: no responses queued")
		}
		i := m.index
		if i >= len(m.responses) {
			i = len(m.responses) - 1
		}
		next = m.responses[i]
		m.index++
	}
	m.mu.Unlock()

	if onCall != nil {
		onCall(req)
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if next.err != nil {
		return nil, next.err
	}
	return &models.GenerateResponse{
		Text: next.text,
		Metadata: models.ResponseMetadata{
			PromptTokens:     100,
			CompletionTokens: 10,
			TotalTokens:      110,
			ModelUsed:        m.modelName,
		},
	}, nil
}

// GetModel implements the Provider interface
func (m *MockProvider) GetModel() string {
	return m.modelName
}

// Requests returns every request received so far.
func (m *MockProvider) Requests() []*models.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.GenerateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many times Generate was called.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// MockReporter records every report and completion.
type MockReporter struct {
	mu          sync.Mutex
	Reports     []orchmodels.Report
	Completions []orchmodels.Completion
	Err         error
}

func (m *MockReporter) Report(ctx context.Context, r orchmodels.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reports = append(m.Reports, r)
	return m.Err
}

func (m *MockReporter) ReportCompletion(ctx context.Context, c orchmodels.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completions = append(m.Completions, c)
	return m.Err
}

// ActionReports returns the per-action reports, in order.
func (m *MockReporter) ActionReports() []orchmodels.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []orchmodels.Report
	for _, r := range m.Reports {
		if r.IsAction() {
			out = append(out, r)
		}
	}
	return out
}

// Last returns the most recent report.
func (m *MockReporter) Last() orchmodels.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Reports) == 0 {
		return orchmodels.Report{}
	}
	return m.Reports[len(m.Reports)-1]
}

// MockHistory is an in-memory history provider and turn recorder.
type MockHistory struct {
	mu       sync.Mutex
	Turns    map[string][]orchmodels.Message
	FetchErr error
	Limits   []int
}

// NewMockHistory creates an empty history.
func NewMockHistory() *MockHistory {
	return &MockHistory{Turns: make(map[string][]orchmodels.Message)}
}

func (m *MockHistory) FetchRecentTurns(ctx context.Context, projectID string, limit int) ([]orchmodels.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Limits = append(m.Limits, limit)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	turns := m.Turns[projectID]
	if limit >= 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]orchmodels.Message, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MockHistory) AppendTurn(ctx context.Context, projectID string, msg orchmodels.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Turns[projectID] = append(m.Turns[projectID], msg)
	return nil
}

// MockUsage records token usage.
type MockUsage struct {
	mu     sync.Mutex
	Usages []orchmodels.Usage
}

func (m *MockUsage) RecordUsage(u orchmodels.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Usages = append(m.Usages, u)
}
