package models

import (
	"context"
)

// Reporter receives per-action and run-level status events.
// Failures are logged by the caller and never abort a run.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// CompletionReporter is implemented by reporters that also want the
// end-of-run summary.
type CompletionReporter interface {
	ReportCompletion(ctx context.Context, c Completion) error
}

// HistoryProvider returns prior conversation turns, oldest first.
type HistoryProvider interface {
	FetchRecentTurns(ctx context.Context, projectID string, limit int) ([]Message, error)
}

// TurnRecorder is implemented by history providers that persist new turns.
type TurnRecorder interface {
	AppendTurn(ctx context.Context, projectID string, m Message) error
}

// UsageRecorder receives token accounting as it is produced.
type UsageRecorder interface {
	RecordUsage(u Usage)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r Report) error

func (f ReporterFunc) Report(ctx context.Context, r Report) error {
	return f(ctx, r)
}
