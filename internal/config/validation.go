package config

import (
	"fmt"
)

// Validate checks config values for correctness.
// Returns an error listing every invalid value.
func (c *Config) Validate() error {
	var errs []string

	// Agent
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, "agent.max_iterations must be >= 1")
	}
	if c.Agent.CompletionTimeoutMs < 1 {
		errs = append(errs, "agent.completion_timeout_ms must be >= 1")
	}
	if c.Agent.HistoryTurns < 0 {
		errs = append(errs, "agent.history_turns must be >= 0")
	}
	if c.Agent.DuplicateReadThreshold < 1 {
		errs = append(errs, "agent.duplicate_read_threshold must be >= 1")
	}
	if c.Agent.ForceIterationRatio <= 0 || c.Agent.ForceIterationRatio > 1 {
		errs = append(errs, "agent.force_iteration_ratio must be in (0, 1]")
	}
	if c.Agent.WarningIterationRatio <= 0 || c.Agent.WarningIterationRatio > 1 {
		errs = append(errs, "agent.warning_iteration_ratio must be in (0, 1]")
	}
	if c.Agent.WarningIterationRatio > c.Agent.ForceIterationRatio {
		errs = append(errs, "agent.warning_iteration_ratio must be <= agent.force_iteration_ratio")
	}
	if c.Agent.MaxSnapshotFiles < 1 {
		errs = append(errs, "agent.max_snapshot_files must be >= 1")
	}

	// Provider
	if c.Provider.Model == "" {
		errs = append(errs, "provider.model must not be empty")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, "provider.temperature must be in [0, 2]")
	}
	if c.Provider.MaxOutputTokens < 1 {
		errs = append(errs, "provider.max_output_tokens must be >= 1")
	}
	if c.Provider.SummaryMaxOutputTokens < 1 {
		errs = append(errs, "provider.summary_max_output_tokens must be >= 1")
	}

	// Tools
	if c.Tools.ProjectsDir == "" {
		errs = append(errs, "tools.projects_dir must not be empty")
	}
	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.MaxSearchResults < 1 {
		errs = append(errs, "tools.max_search_results must be >= 1")
	}

	// Webhook. An empty URL disables the webhook reporter.
	if c.Webhook.RetryAttempts < 1 {
		errs = append(errs, "webhook.retry_attempts must be >= 1")
	}
	if c.Webhook.RetryDelayMs < 1 {
		errs = append(errs, "webhook.retry_delay_ms must be >= 1")
	}
	if c.Webhook.TimeoutMs < 1 {
		errs = append(errs, "webhook.timeout_ms must be >= 1")
	}

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr must not be empty")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
