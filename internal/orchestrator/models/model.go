package models

import "time"

// Role values used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single message in the conversation history
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Status is the lifecycle of one reported operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// UpdateType groups reports for streaming clients.
type UpdateType string

const (
	UpdateThinking  UpdateType = "thinking"
	UpdateRead      UpdateType = "read"
	UpdateCreate    UpdateType = "create"
	UpdateEdit      UpdateType = "edit"
	UpdateDelete    UpdateType = "delete"
	UpdateCompleted UpdateType = "completed"
	UpdateError     UpdateType = "error"
)

// UpdateTypeFor maps an action kind onto its stream update type.
func UpdateTypeFor(k ActionKind) UpdateType {
	switch k {
	case ActionReadFile, ActionSearch:
		return UpdateRead
	case ActionCreateFile, ActionCreateDirectory:
		return UpdateCreate
	case ActionEditFile:
		return UpdateEdit
	case ActionDeleteFile, ActionRemoveDirectory:
		return UpdateDelete
	default:
		return UpdateError
	}
}

// Report is one operation status event. Kind is empty for run-level
// reports (thinking progress, final error).
type Report struct {
	ProjectID  string     `json:"projectId"`
	Kind       ActionKind `json:"action,omitempty"`
	Path       string     `json:"filePath,omitempty"`
	Message    string     `json:"message"`
	Status     Status     `json:"status"`
	UpdateType UpdateType `json:"updateType"`
	ErrorType  ErrorType  `json:"errorType,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// IsAction reports whether r describes a single action rather than run progress.
func (r Report) IsAction() bool {
	return r.Kind != ""
}

// Completion is the end-of-run summary sent to CompletionReporters.
type Completion struct {
	ProjectID    string        `json:"projectId"`
	Success      bool          `json:"success"`
	TotalActions int           `json:"totalActions"`
	TotalTokens  int           `json:"totalTokens"`
	Duration     time.Duration `json:"duration"`
	Summary      string        `json:"summary,omitempty"`
	ErrorType    ErrorType     `json:"errorType,omitempty"`
}

// Usage is token accounting for one step of a run.
type Usage struct {
	ProjectID     string
	Model         string
	Phase         string
	InputTokens   int
	OutputTokens  int
	ContextTokens int
}

// Add accumulates o into u, keeping the largest context seen.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	if o.ContextTokens > u.ContextTokens {
		u.ContextTokens = o.ContextTokens
	}
}

// Total is input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// RunResult is what a caller receives from one agent run.
type RunResult struct {
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	ErrorType  ErrorType `json:"errorType,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Actions    []Action  `json:"actions,omitempty"`
	Iterations int       `json:"iterations"`
	Usage      Usage     `json:"-"`
}
