package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	provider "github.com/Cyclone1070/kosuke/internal/provider/models"
	"google.golang.org/genai"
)

// toGeminiContents converts conversation messages to Gemini Content format.
// System messages are folded into user turns since Gemini only accepts
// a single system instruction.
func toGeminiContents(messages []models.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if msg.Role == models.RoleAssistant || msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	return contents
}

// toGeminiConfig converts internal GenerateConfig to Gemini config.
func toGeminiConfig(systemPrompt string, config *provider.GenerateConfig) *genai.GenerateContentConfig {
	geminiConfig := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings(),
	}

	if systemPrompt != "" {
		geminiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	if config == nil {
		return geminiConfig
	}

	if config.Temperature != nil {
		geminiConfig.Temperature = config.Temperature
	}
	if config.MaxOutputTokens != nil {
		geminiConfig.MaxOutputTokens = int32(*config.MaxOutputTokens)
	}
	if len(config.StopSequences) > 0 {
		geminiConfig.StopSequences = config.StopSequences
	}
	if config.ResponseJSON {
		geminiConfig.ResponseMIMEType = "application/json"
	}

	return geminiConfig
}

// defaultSafetySettings disables blocking for all categories; generated
// source code regularly trips the default filters.
func defaultSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: genai.HarmBlockThresholdOff,
		},
	}
}

// fromGeminiResponse converts Gemini response to internal format.
func fromGeminiResponse(resp *genai.GenerateContentResponse, modelUsed string) (*provider.GenerateResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, &provider.ProviderError{
			Code:       provider.ErrorCodeEmpty,
			Message:    "no candidates in response",
			Underlying: provider.ErrEmptyResponse,
			Retryable:  true,
		}
	}

	candidate := resp.Candidates[0]

	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &provider.ProviderError{
			Code:       provider.ErrorCodeContentBlocked,
			Message:    "content blocked by safety filters",
			Underlying: provider.ErrContentBlocked,
		}
	}

	response := &provider.GenerateResponse{
		Text:     candidateText(candidate),
		Metadata: buildMetadata(resp.UsageMetadata, modelUsed, candidate.FinishReason),
	}

	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		// Partial response is returned alongside the error
		return response, &provider.ProviderError{
			Code:       provider.ErrorCodeTruncated,
			Message:    "response truncated due to max tokens",
			Underlying: provider.ErrTruncated,
		}
	}

	if strings.TrimSpace(response.Text) == "" {
		return response, &provider.ProviderError{
			Code:       provider.ErrorCodeEmpty,
			Message:    "candidate has no text",
			Underlying: provider.ErrEmptyResponse,
			Retryable:  true,
		}
	}

	return response, nil
}

func candidateText(candidate *genai.Candidate) string {
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// buildMetadata builds response metadata from usage data.
func buildMetadata(usage *genai.GenerateContentResponseUsageMetadata, modelUsed string, reason genai.FinishReason) provider.ResponseMetadata {
	metadata := provider.ResponseMetadata{
		ModelUsed:    modelUsed,
		FinishReason: string(reason),
	}

	if usage != nil {
		metadata.PromptTokens = int(usage.PromptTokenCount)
		metadata.CompletionTokens = int(usage.CandidatesTokenCount)
		metadata.TotalTokens = int(usage.TotalTokenCount)
	}

	return metadata
}

// asAPIError extracts a genai.APIError whether it was returned by value or pointer.
func asAPIError(err error) (*genai.APIError, bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr, true
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return &val, true
	}
	return nil, false
}

// mapGeminiError maps Gemini API errors to provider errors.
func mapGeminiError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &provider.ProviderError{
			Code:       provider.ErrorCodeTimeout,
			Message:    "request timed out",
			Underlying: err,
		}
	}

	if apiErr, ok := asAPIError(err); ok {
		switch apiErr.Code {
		case 401, 403:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeAuth,
				Message:    "authentication failed",
				Underlying: err,
				Retryable:  false,
			}
		case 429:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeRateLimit,
				Message:    "rate limit exceeded",
				Underlying: err,
				Retryable:  true,
				RetryAfter: parseRetryAfter(apiErr),
			}
		case 400:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeInvalidRequest,
				Message:    fmt.Sprintf("invalid request: %s", apiErr.Message),
				Underlying: err,
				Retryable:  false,
			}
		case 404:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeInvalidModel,
				Message:    fmt.Sprintf("model not found: %s", apiErr.Message),
				Underlying: err,
				Retryable:  false,
			}
		case 504:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeTimeout,
				Message:    "upstream deadline exceeded",
				Underlying: err,
				Retryable:  true,
			}
		case 500, 502, 503:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeUnavailable,
				Message:    "service unavailable",
				Underlying: err,
				Retryable:  true,
			}
		default:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeNetwork,
				Message:    fmt.Sprintf("API error: %s", apiErr.Message),
				Underlying: err,
				Retryable:  true,
			}
		}
	}

	// Generic network error
	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

// parseRetryAfter reads a retryDelay hint from the error details.
// It accepts seconds as a number or a duration string such as "30s".
func parseRetryAfter(apiErr *genai.APIError) *time.Duration {
	if apiErr == nil {
		return nil
	}
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"]
		if !ok {
			continue
		}
		var d time.Duration
		switch v := raw.(type) {
		case int:
			d = time.Duration(v) * time.Second
		case int64:
			d = time.Duration(v) * time.Second
		case float64:
			d = time.Duration(v * float64(time.Second))
		case string:
			parsed, err := time.ParseDuration(v)
			if err != nil {
				continue
			}
			d = parsed
		default:
			continue
		}
		if d <= 0 {
			continue
		}
		return &d
	}
	return nil
}
