package models

import (
	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// GenerateRequest encapsulates all parameters for a generation request.
type GenerateRequest struct {
	// SystemPrompt is sent as the system instruction, if non-empty
	SystemPrompt string

	// Messages are the turns sent to the model, oldest first.
	// The last message is the current user turn.
	Messages []models.Message

	// Model overrides the provider's default model when non-empty
	Model string

	// Config contains optional generation parameters
	Config *GenerateConfig
}

// GenerateConfig contains optional generation parameters.
// All fields are pointers to distinguish between "not set" and "zero value".
type GenerateConfig struct {
	Temperature     *float32
	MaxOutputTokens *int
	StopSequences   []string
	// ResponseJSON asks the model for a JSON-only response when supported
	ResponseJSON bool
}

// GenerateResponse contains the model's response and metadata.
type GenerateResponse struct {
	// Text is the generated response
	Text string

	// Metadata contains information about the generation
	Metadata ResponseMetadata
}

// ResponseMetadata contains information about the generation.
type ResponseMetadata struct {
	// Token usage
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// Model used
	ModelUsed string

	FinishReason string

	// Performance
	LatencyMs int64
}
