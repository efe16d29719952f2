package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Agent    AgentConfig    `json:"agent"`
	Provider ProviderConfig `json:"provider"`
	Tools    ToolsConfig    `json:"tools"`
	Webhook  WebhookConfig  `json:"webhook"`
	Server   ServerConfig   `json:"server"`
	Store    StoreConfig    `json:"store"`
	Log      LogConfig      `json:"log"`
}

type AgentConfig struct {
	MaxIterations          int `json:"max_iterations"`           // Default: 25
	CompletionTimeoutMs    int `json:"completion_timeout_ms"`    // Default: 90000
	HistoryTurns           int `json:"history_turns"`            // Default: 10
	DuplicateReadThreshold int `json:"duplicate_read_threshold"` // Default: 3

	// Fractions of MaxIterations
	ForceIterationRatio   float64 `json:"force_iteration_ratio"`   // Default: 0.8
	WarningIterationRatio float64 `json:"warning_iteration_ratio"` // Default: 0.6

	MaxSnapshotFiles int `json:"max_snapshot_files"` // Default: 500
}

type ProviderConfig struct {
	Model                  string  `json:"model"`
	SummaryModel           string  `json:"summary_model"`
	Temperature            float32 `json:"temperature"`               // Default: 0.7
	MaxOutputTokens        int     `json:"max_output_tokens"`         // Default: 60000
	SummaryMaxOutputTokens int     `json:"summary_max_output_tokens"` // Default: 1024
}

type ToolsConfig struct {
	ProjectsDir      string `json:"projects_dir"`       // Default: /app/projects
	MaxFileSize      int64  `json:"max_file_size"`      // Default: 5 * 1024 * 1024 (5MB)
	MaxSearchResults int    `json:"max_search_results"` // Default: 100

	// Path prefixes no action may touch
	ProtectedPaths []string `json:"protected_paths"` // Default: .git, node_modules
}

type WebhookConfig struct {
	URL           string `json:"url"`            // Default: http://localhost:3000
	RetryAttempts int    `json:"retry_attempts"` // Default: 3
	RetryDelayMs  int    `json:"retry_delay_ms"` // Default: 1000
	TimeoutMs     int    `json:"timeout_ms"`     // Default: 30000
}

type ServerConfig struct {
	Addr string `json:"addr"` // Default: :8000
}

type StoreConfig struct {
	Path string `json:"path"` // Default: kosuke.db
}

type LogConfig struct {
	Level       string `json:"level"` // debug, info, warn, error
	Development bool   `json:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxIterations:          25,
			CompletionTimeoutMs:    90000,
			HistoryTurns:           10,
			DuplicateReadThreshold: 3,
			ForceIterationRatio:    0.8,
			WarningIterationRatio:  0.6,
			MaxSnapshotFiles:       500,
		},
		Provider: ProviderConfig{
			Model:                  "gemini-2.5-pro",
			SummaryModel:           "gemini-2.5-flash",
			Temperature:            0.7,
			MaxOutputTokens:        60000,
			SummaryMaxOutputTokens: 1024,
		},
		Tools: ToolsConfig{
			ProjectsDir:      "/app/projects",
			MaxFileSize:      5 * 1024 * 1024,
			MaxSearchResults: 100,
			ProtectedPaths:   []string{".git", "node_modules"},
		},
		Webhook: WebhookConfig{
			URL:           "http://localhost:3000",
			RetryAttempts: 3,
			RetryDelayMs:  1000,
			TimeoutMs:     30000,
		},
		Server: ServerConfig{Addr: ":8000"},
		Store:  StoreConfig{Path: "kosuke.db"},
		Log:    LogConfig{Level: "info"},
	}
}
