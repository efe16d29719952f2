package models

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrTimeout            = errors.New("request timeout")
	ErrRateLimit          = errors.New("rate limit exceeded")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAuthentication     = errors.New("authentication failed")
	ErrContentBlocked     = errors.New("content blocked by safety filters")
	ErrEmptyResponse      = errors.New("empty response from model")
	ErrTruncated          = errors.New("response truncated at max output tokens")
)

// ErrorCode classifies a ProviderError.
type ErrorCode string

const (
	ErrorCodeTimeout        ErrorCode = "timeout"
	ErrorCodeRateLimit      ErrorCode = "rate_limit"
	ErrorCodeUnavailable    ErrorCode = "service_unavailable"
	ErrorCodeNetwork        ErrorCode = "network_error"
	ErrorCodeAuth           ErrorCode = "authentication_failed"
	ErrorCodeInvalidModel   ErrorCode = "invalid_model"
	ErrorCodeInvalidRequest ErrorCode = "invalid_request"
	ErrorCodeContentBlocked ErrorCode = "content_blocked"
	ErrorCodeEmpty          ErrorCode = "empty_response"
	ErrorCodeTruncated      ErrorCode = "truncated"
)

// ProviderError is the error returned by every Provider. Retryable marks
// failures the agent loop may recover from on its next iteration.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retryable  bool
	// RetryAfter is the server's backoff hint, when it sent one.
	RetryAfter *time.Duration
}

func (e *ProviderError) Error() string {
	if e.Underlying == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Underlying)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether err is a retryable ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// IsTimeout reports whether err is a provider timeout or a context deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == ErrorCodeTimeout
}
