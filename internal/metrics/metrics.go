// Package metrics exports agent activity as Prometheus metrics.
package metrics

import (
	"context"
	"time"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kosuke"

// Recorder implements models.UsageRecorder and models.Reporter on top of a
// Prometheus registry.
type Recorder struct {
	tokens        *prometheus.CounterVec
	contextTokens *prometheus.HistogramVec
	actions       *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	iterations    prometheus.Histogram
}

// NewRecorder registers the agent metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		// Labels: model, phase (thinking, forced, summary), direction (input, output)
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens sent to and received from the model",
		}, []string{"model", "phase", "direction"}),

		contextTokens: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "context_tokens",
			Help:      "Size of the context message per model call",
			Buckets:   prometheus.ExponentialBuckets(500, 2, 10),
		}, []string{"phase"}),

		// Labels: action (readFile, editFile, ...), status (pending, completed, error)
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "actions_total",
			Help:      "Action status reports by action kind",
		}, []string{"action", "status"}),

		// Labels: outcome (success, timeout, parsing, processing, unknown)
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Finished agent runs by outcome",
		}, []string{"outcome"}),

		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "run_duration_seconds",
			Help:      "Wall time of agent runs",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "iterations",
			Help:      "Thinking iterations per run",
			Buckets:   prometheus.LinearBuckets(1, 3, 9),
		}),
	}
}

// RecordUsage counts the tokens of one model call. Context-only usage, sent
// when content is read into the context, only feeds the context histogram.
func (r *Recorder) RecordUsage(u models.Usage) {
	if u.InputTokens > 0 || u.OutputTokens > 0 {
		r.tokens.WithLabelValues(u.Model, u.Phase, "input").Add(float64(u.InputTokens))
		r.tokens.WithLabelValues(u.Model, u.Phase, "output").Add(float64(u.OutputTokens))
	}
	if u.ContextTokens > 0 {
		r.contextTokens.WithLabelValues(u.Phase).Observe(float64(u.ContextTokens))
	}
}

// Report counts action status events. Run-level reports are ignored.
func (r *Recorder) Report(_ context.Context, rep models.Report) error {
	if rep.IsAction() {
		r.actions.WithLabelValues(string(rep.Kind), string(rep.Status)).Inc()
	}
	return nil
}

// ObserveRun records the outcome of a finished run.
func (r *Recorder) ObserveRun(res models.RunResult, elapsed time.Duration) {
	outcome := "success"
	if !res.Success {
		outcome = string(res.ErrorType)
		if outcome == "" {
			outcome = string(models.ErrorTypeUnknown)
		}
	}
	r.runs.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(elapsed.Seconds())
	r.iterations.Observe(float64(res.Iterations))
}
