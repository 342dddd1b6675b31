package quorum

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMessages reports a parse request with an empty conversation
var ErrNoMessages = errors.New("quorum: request has no messages")

// ErrNoSchema reports a parse request without a response schema
var ErrNoSchema = errors.New("quorum: request has no response schema")

// ErrNoModel reports a parse request without a model
var ErrNoModel = errors.New("quorum: request has no model")

// ProcessingError reports that every dispatch attempt failed. Causes
// holds one error per attempt in dispatch order.
type ProcessingError struct {
	Attempts int
	Causes   []error
}

// Error implements the error interface
func (e *ProcessingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all %d parallel attempts failed", e.Attempts)
	for i, cause := range e.Causes {
		fmt.Fprintf(&b, "\n  attempt %d: %v", i, cause)
	}
	return b.String()
}

// Unwrap exposes the per-attempt causes to errors.Is and errors.As
func (e *ProcessingError) Unwrap() []error {
	return e.Causes
}

// DecisionError reports that the decision maker failed with no
// successful attempt left to fall back to
type DecisionError struct {
	Err error
}

// Error implements the error interface
func (e *DecisionError) Error() string {
	return fmt.Sprintf("decision maker failed and no fallback available: %v", e.Err)
}

// Unwrap returns the underlying decision failure
func (e *DecisionError) Unwrap() error {
	return e.Err
}
