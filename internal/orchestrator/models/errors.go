package models

import (
	"errors"
	"fmt"
)

// ErrorType is the closed taxonomy every failed run is classified into.
type ErrorType string

const (
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Sentinel errors for run-level conditions.
var (
	ErrMaxIterations = errors.New("maximum iterations reached")
	ErrNoActions     = errors.New("no valid actions produced")
	ErrUnknownTool   = errors.New("no tool registered for action kind")
)

// AgentError is the only error type returned across the orchestrator boundary.
// Message is safe to show to users; Details and Cause are for logs.
type AgentError struct {
	Type    ErrorType
	Message string
	Details string
	Cause   error
}

func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *AgentError) Unwrap() error {
	return e.Cause
}

// NewAgentError builds an AgentError whose Details default to the cause text.
func NewAgentError(t ErrorType, message string, cause error) *AgentError {
	e := &AgentError{Type: t, Message: message, Cause: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}
