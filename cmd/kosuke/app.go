package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Cyclone1070/kosuke/internal/config"
	"github.com/Cyclone1070/kosuke/internal/metrics"
	"github.com/Cyclone1070/kosuke/internal/orchestrator"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/adapter"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/report"
	"github.com/Cyclone1070/kosuke/internal/store/sqlite"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// workspaceOpener adapts a function to orchestrator.WorkspaceOpener.
type workspaceOpener func(projectID string) (adapter.FileSystem, error)

func (f workspaceOpener) Open(projectID string) (adapter.FileSystem, error) {
	return f(projectID)
}

// app is the wired agent shared by the run and serve commands.
type app struct {
	orch     *orchestrator.Orchestrator
	store    *sqlite.Store
	registry *prometheus.Registry
	metrics  *metrics.Recorder
}

func newApp(ctx context.Context, deps Dependencies, cfg *config.Config, logger *zap.Logger, workspaces orchestrator.WorkspaceOpener) (*app, error) {
	prov, err := deps.ProviderFactory(ctx, cfg, deps.Getenv)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewRecorder(reg)

	reporters := report.Fanout{store, rec}
	history := report.MirroredHistory{HistoryProvider: store}
	secret := deps.Getenv("WEBHOOK_SECRET")
	switch {
	case secret != "" && cfg.Webhook.URL == "":
		logger.Info("WEBHOOK_SECRET is set but webhook.url is empty, webhook reporting disabled")
	case secret != "":
		wh, err := report.NewWebhook(cfg.Webhook, secret, logger.Named("webhook"))
		if err != nil {
			store.Close()
			return nil, err
		}
		reporters = append(reporters, wh)
		history.Mirrors = append(history.Mirrors, wh)
		logger.Info("webhook reporting enabled", zap.String("url", cfg.Webhook.URL))
	}

	counter := deps.Tokens(logger.Named("tokens"))
	orch, err := orchestrator.New(cfg, orchestrator.Dependencies{
		Provider:   prov,
		Workspaces: workspaces,
		History:    history,
		Reporter:   reporters,
		Usage:      rec,
		Tokens:     counter,
		Logger:     logger.Named("orchestrator"),
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{orch: orch, store: store, registry: reg, metrics: rec}, nil
}

// run executes one agent run with an extra per-run reporter.
func (a *app) run(ctx context.Context, projectID, prompt string, rep models.Reporter) models.RunResult {
	return a.orch.Run(ctx, projectID, prompt, orchestrator.WithReporter(rep))
}

func (a *app) Close() error {
	return a.store.Close()
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// runError turns a failed result into a command error.
func runError(res models.RunResult) error {
	if res.Success {
		return nil
	}
	return errors.New(res.Error)
}
