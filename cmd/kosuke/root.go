package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Cyclone1070/kosuke/internal/config"
	"github.com/Cyclone1070/kosuke/internal/provider/gemini"
	provider "github.com/Cyclone1070/kosuke/internal/provider/models"
	"github.com/Cyclone1070/kosuke/internal/tokens"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Dependencies are the process-level collaborators the commands build on.
type Dependencies struct {
	LoadConfig      func() (*config.Config, error)
	ProviderFactory func(ctx context.Context, cfg *config.Config, getenv func(string) string) (provider.Provider, error)
	Getenv          func(string) string
	Stdout          io.Writer
	Stderr          io.Writer
	IsTerminal      func() bool
	Tokens          func(logger *zap.Logger) *tokens.Counter
}

func defaultDependencies() Dependencies {
	return Dependencies{
		LoadConfig:      config.Load,
		ProviderFactory: geminiProvider,
		Getenv:          os.Getenv,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		IsTerminal:      stdoutIsTerminal,
		Tokens:          tokens.NewCounter,
	}
}

func geminiProvider(ctx context.Context, cfg *config.Config, getenv func(string) string) (provider.Provider, error) {
	apiKey := getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	client, err := gemini.NewClientFromAPIKey(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return gemini.New(client, cfg.Provider.Model), nil
}

type globalFlags struct {
	logLevel    string
	projectsDir string
	storePath   string
}

func newRootCmd(deps Dependencies) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "kosuke",
		Short:         "AI agent that edits web projects through file actions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(deps.Stdout)
	root.SetErr(deps.Stderr)

	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.projectsDir, "projects-dir", "", "directory holding one folder per project")
	root.PersistentFlags().StringVar(&flags.storePath, "store", "", "SQLite database for history and the action log")

	root.AddCommand(newRunCmd(deps, &flags), newServeCmd(deps, &flags))
	return root
}

// loadConfig reads the dotfile config and applies flag overrides.
func loadConfig(deps Dependencies, flags *globalFlags) (*config.Config, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.projectsDir != "" {
		cfg.Tools.ProjectsDir = flags.projectsDir
	}
	if flags.storePath != "" {
		cfg.Store.Path = flags.storePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
