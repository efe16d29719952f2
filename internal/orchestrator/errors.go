package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/parser"
	provider "github.com/Cyclone1070/kosuke/internal/provider/models"
)

// Classify maps any error onto the run error taxonomy. Typed errors are
// matched exactly; message inspection is the last resort for foreign errors.
func Classify(err error) models.ErrorType {
	if err == nil {
		return ""
	}

	var agentErr *models.AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Type
	}
	if provider.IsTimeout(err) {
		return models.ErrorTypeTimeout
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return models.ErrorTypeParsing
	}
	if errors.Is(err, models.ErrNoActions) || errors.Is(err, models.ErrMaxIterations) {
		return models.ErrorTypeProcessing
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return models.ErrorTypeTimeout
	case strings.Contains(msg, "parse"), strings.Contains(msg, "json"):
		return models.ErrorTypeParsing
	default:
		return models.ErrorTypeUnknown
	}
}

// UserMessage returns the text shown to users for an error type.
func UserMessage(t models.ErrorType) string {
	switch t {
	case models.ErrorTypeTimeout:
		return "The request took too long to process. Please try a simpler request or try again later."
	case models.ErrorTypeParsing:
		return "There was an error processing the AI response. Please try again or simplify your request."
	case models.ErrorTypeProcessing:
		return "There was an error processing your request. Please try rephrasing it."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// toAgentError wraps err as an AgentError, keeping an existing one as is.
func toAgentError(err error) *models.AgentError {
	var agentErr *models.AgentError
	if errors.As(err, &agentErr) {
		return agentErr
	}
	if errors.Is(err, context.Canceled) {
		return models.NewAgentError(models.ErrorTypeUnknown, "run cancelled", err)
	}
	t := Classify(err)
	return models.NewAgentError(t, UserMessage(t), err)
}
