// Package quorum fans a structured-output request out to several
// concurrent model calls, then reduces the successful responses to one
// schema-valid result, by default through a second decision-maker call.
//
// The zero-friction path is Parse with a raw JSON Schema, or ParseAs
// with a Go struct. Callers migrating from an OpenAI-style SDK can use
// the Beta facade, which accepts and returns chat-completion shapes.
package quorum

import (
	"encoding/json"
	"time"
)

// State identifies where a parse call is in its lifecycle
type State string

// Parse lifecycle states. A call moves Idle through Dispatching,
// Aggregating, Deciding, and ends in exactly one terminal state.
const (
	StateIdle              State = "idle"
	StateDispatching       State = "dispatching"
	StateAggregating       State = "aggregating"
	StateDeciding          State = "deciding"
	StateSucceeded         State = "succeeded"
	StateFallbackSucceeded State = "fallback_succeeded"
	StateFailed            State = "failed"
)

// Terminal reports whether the state ends a call
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFallbackSucceeded, StateFailed:
		return true
	}
	return false
}

// Message is a chat message in a parse request
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Request describes one structured parse call
type Request struct {
	// Model is the model every dispatch attempt calls
	Model string

	// Messages is the conversation to send
	Messages []Message

	// Schema is the JSON Schema the result must satisfy. ParseAs derives
	// it from a struct; otherwise it is required.
	Schema json.RawMessage

	// Temperature is the sampling temperature for dispatch attempts
	Temperature float64

	// MaxTokens caps the completion length, 0 leaves it to the provider
	MaxTokens int

	// PassReasoning asks each attempt for its reasoning alongside the
	// payload. Reasoning is surfaced per attempt and never appears in
	// the final value.
	PassReasoning bool
}

// AttemptReport summarizes one dispatch attempt for the caller
type AttemptReport struct {
	Index     int
	Err       error
	Retries   int
	Duration  time.Duration
	Reasoning string
}

// Outcome is the full result of a parse call
type Outcome struct {
	// Value is the final schema-valid payload
	Value json.RawMessage

	// State is the terminal state the call reached
	State State

	// FallbackUsed reports that the decision maker failed and the first
	// successful attempt was returned instead
	FallbackUsed bool

	// DecisionErr holds the decision-maker failure when FallbackUsed is set
	DecisionErr error

	// Successes and Failures count settled attempts
	Successes int
	Failures  int

	// FailureCauses holds the error of each failed attempt in dispatch order
	FailureCauses []error

	// Attempts reports every attempt in dispatch order
	Attempts []AttemptReport
}
