package gemini

import (
	"context"
	"time"

	provider "github.com/Cyclone1070/kosuke/internal/provider/models"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client    GeminiClient
	modelName string
	now       func() time.Time
}

// New creates a new GeminiProvider with the specified client and default model.
func New(client GeminiClient, modelName string) *GeminiProvider {
	return &GeminiProvider{
		client:    client,
		modelName: modelName,
		now:       time.Now,
	}
}

// Generate sends a request to the Gemini API and returns the response.
func (p *GeminiProvider) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeInvalidRequest,
			Message: "request has no messages",
		}
	}

	model := p.modelName
	if req.Model != "" {
		model = req.Model
	}

	contents := toGeminiContents(req.Messages)
	config := toGeminiConfig(req.SystemPrompt, req.Config)

	start := p.now()
	resp, err := p.client.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapGeminiError(ctx, err)
	}

	out, err := fromGeminiResponse(resp, model)
	if out != nil {
		out.Metadata.LatencyMs = p.now().Sub(start).Milliseconds()
	}
	return out, err
}

// GetModel returns the default model name.
func (p *GeminiProvider) GetModel() string {
	return p.modelName
}
