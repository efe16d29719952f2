package parser

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput       = errors.New("empty model response")
	ErrNoStructuredData = errors.New("no JSON could be recovered from model response")
	ErrNoObject         = errors.New("no JSON object found")
	ErrNoArray          = errors.New("no JSON array found")
	ErrNoEnvelope       = errors.New("JSON value is not an agent response")
	ErrNotAnObject      = errors.New("action is not an object")
)

const previewLen = 200

// ParseError is returned when every strategy failed.
type ParseError struct {
	Raw      string
	Err      error
	Attempts []error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse JSON response: %v (%d strategies tried)", e.Err, len(e.Attempts))
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Preview returns the start of the raw response for logging.
func (e *ParseError) Preview() string {
	if len(e.Raw) <= previewLen {
		return e.Raw
	}
	return e.Raw[:previewLen] + "..."
}
