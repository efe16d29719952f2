// Package report delivers agent status reports to their consumers.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cyclone1070/kosuke/internal/config"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// StatusError is returned when the webhook endpoint answers with a
// non-success status.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook %s returned %d: %s", e.URL, e.Status, e.Body)
}

var ErrMissingURL = errors.New("webhook url is required")

type actionPayload struct {
	Type   models.ActionKind `json:"type"`
	Path   string            `json:"path"`
	Status models.Status     `json:"status"`
}

type completionPayload struct {
	Success      bool  `json:"success"`
	TotalActions int   `json:"totalActions"`
	TotalTokens  int   `json:"totalTokens"`
	Duration     int64 `json:"duration"` // milliseconds
}

type messagePayload struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// Webhook posts action, completion and message events to the web app.
// It implements models.Reporter, models.CompletionReporter and
// models.TurnRecorder.
type Webhook struct {
	client   *http.Client
	baseURL  string
	secret   string
	attempts uint
	delay    time.Duration
	logger   *zap.Logger
}

// NewWebhook creates a webhook reporter. secret is sent as a bearer token.
func NewWebhook(cfg config.WebhookConfig, secret string, logger *zap.Logger) (*Webhook, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrMissingURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Webhook{
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		secret:   secret,
		attempts: uint(attempts),
		delay:    time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		logger:   logger,
	}, nil
}

// Report posts action reports. Run-level progress is not sent.
func (w *Webhook) Report(ctx context.Context, r models.Report) error {
	if !r.IsAction() {
		return nil
	}
	return w.post(ctx, r.ProjectID, "action", actionPayload{
		Type:   r.Kind,
		Path:   r.Path,
		Status: r.Status,
	})
}

func (w *Webhook) ReportCompletion(ctx context.Context, c models.Completion) error {
	return w.post(ctx, c.ProjectID, "complete", completionPayload{
		Success:      c.Success,
		TotalActions: c.TotalActions,
		TotalTokens:  c.TotalTokens,
		Duration:     c.Duration.Milliseconds(),
	})
}

// AppendTurn posts assistant messages so the web app can store them.
// User turns are already stored by the caller.
func (w *Webhook) AppendTurn(ctx context.Context, projectID string, m models.Message) error {
	if m.Role != models.RoleAssistant {
		return nil
	}
	return w.post(ctx, projectID, "message", messagePayload{Content: m.Content, Role: m.Role})
}

// post sends payload with exponential backoff. Client errors other than
// 408 and 429 are not retried.
func (w *Webhook) post(ctx context.Context, projectID, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s webhook: %w", endpoint, err)
	}
	target := fmt.Sprintf("%s/api/projects/%s/webhook/%s", w.baseURL, url.PathEscape(projectID), endpoint)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.delay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := w.send(ctx, target, body)
		if err == nil {
			return struct{}{}, nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500 &&
			statusErr.Status != http.StatusRequestTimeout && statusErr.Status != http.StatusTooManyRequests {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(w.attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			w.logger.Warn("webhook attempt failed",
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		w.logger.Error("webhook failed", zap.String("url", target), zap.Int("attempts", attempt), zap.Error(err))
		return err
	}
	w.logger.Debug("webhook sent", zap.String("url", target), zap.Int("attempts", attempt))
	return nil
}

func (w *Webhook) send(ctx context.Context, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("Authorization", "Bearer "+w.secret)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{URL: target, Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
}
