package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Cyclone1070/kosuke/internal/config"
	"github.com/Cyclone1070/kosuke/internal/logging"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/adapter"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/tool/project"
	"github.com/Cyclone1070/kosuke/internal/ui"
	"github.com/Cyclone1070/kosuke/internal/ui/services"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(deps Dependencies, flags *globalFlags) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run the agent once against a project directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			cfg, err := loadConfig(deps, flags)
			if err != nil {
				return err
			}

			interactive := deps.IsTerminal()
			logger, err := runLogger(cfg, interactive)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ws, err := project.NewWorkspace(dir, project.Limits{
				MaxFileSize:      cfg.Tools.MaxFileSize,
				MaxSearchResults: cfg.Tools.MaxSearchResults,
			})
			if err != nil {
				return fmt.Errorf("failed to open project: %w", err)
			}
			projectID := filepath.Base(ws.Root())

			a, err := newApp(cmd.Context(), deps, cfg, logger, workspaceOpener(func(string) (adapter.FileSystem, error) {
				return ws, nil
			}))
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Now()
			var res models.RunResult
			if interactive {
				res, err = runInteractive(cmd.Context(), deps, a, projectID, prompt)
				if err != nil {
					return err
				}
			} else {
				res = a.run(cmd.Context(), projectID, prompt, ui.NewPlain(deps.Stdout))
			}
			a.metrics.ObserveRun(res, time.Since(start))
			return runError(res)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "project directory")
	return cmd
}

// runLogger keeps log lines out of the terminal view by writing them to a
// file when the progress view owns the screen.
func runLogger(cfg *config.Config, interactive bool) (*zap.Logger, error) {
	if interactive {
		return logging.New(cfg.Log, filepath.Join(os.TempDir(), "kosuke.log"))
	}
	return logging.New(cfg.Log)
}

func runInteractive(ctx context.Context, deps Dependencies, a *app, projectID, prompt string) (models.RunResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := ui.NewUI(ui.NewChannels(), prompt, services.GlamourRenderer{}, ui.DefaultSpinner, tea.WithOutput(deps.Stdout))

	done := make(chan models.RunResult, 1)
	go func() {
		res := a.run(ctx, projectID, prompt, view)
		view.Finish(res)
		done <- res
	}()

	interrupted, err := view.Start()
	if interrupted || err != nil {
		cancel()
	}
	res := <-done
	return res, err
}
