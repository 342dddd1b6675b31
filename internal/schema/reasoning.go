package schema

import (
	"encoding/json"
	"fmt"
)

// The reasoning passthrough wraps the caller schema in an envelope so each
// attempt can return its chain of thought next to the payload. The envelope
// is internal: UnwrapReasoning splits it apart before aggregation, so the
// reasoning field can never reach the final result.

// reasoningEnvelope is the wire shape of a wrapped attempt response
type reasoningEnvelope struct {
	Response  json.RawMessage `json:"response"`
	Reasoning string          `json:"reasoning"`
}

// WrapReasoning wraps a caller schema into the reasoning envelope schema
func WrapReasoning(raw json.RawMessage) (json.RawMessage, error) {
	inner, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	wrapped := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"response": inner,
			"reasoning": {
				Type:        "string",
				Description: "Step-by-step reasoning that led to the response",
			},
		},
		Required: []string{"response", "reasoning"},
	}

	return wrapped.Marshal()
}

// UnwrapReasoning splits an envelope payload into the inner response and
// the reasoning text
func UnwrapReasoning(data json.RawMessage) (json.RawMessage, string, error) {
	var env reasoningEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("unwrap reasoning envelope: %w", err)
	}
	if len(env.Response) == 0 {
		return nil, "", fmt.Errorf("reasoning envelope has no response field")
	}
	return env.Response, env.Reasoning, nil
}
