package models

import (
	"context"
)

// Provider is the completion service: a plain request/response call with no
// hidden conversation state.
type Provider interface {
	// Generate sends a request to the model and returns the response.
	// The context deadline bounds the call.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// GetModel returns the default model name.
	GetModel() string
}
