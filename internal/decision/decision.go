// Package decision reduces the survivors of a fan-out to one final
// result. The default strategy asks a second model to pick or
// synthesize the best answer; cheaper strategies pick by position or by
// vote without another call.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/quorumllm/quorum/internal/dispatch"
	"github.com/quorumllm/quorum/internal/observability"
	"github.com/quorumllm/quorum/internal/provider"
	"github.com/quorumllm/quorum/internal/schema"
	pubobs "github.com/quorumllm/quorum/pkg/observability"
)

// Decision strategies
const (
	StrategyJudge    = "judge"
	StrategyFirst    = "first"
	StrategyMajority = "majority"
)

// Decision is the selected or synthesized final payload
type Decision struct {
	// Value is the schema-valid final payload
	Value []byte

	// Strategy is the strategy that produced the value
	Strategy string

	// FallbackUsed reports that the judge failed and the first survivor
	// was returned instead
	FallbackUsed bool

	// JudgeErr holds the judge failure when FallbackUsed is set
	JudgeErr error
}

// Judge makes the decision-maker call
type Judge struct {
	Provider    provider.Provider
	Model       string
	Temperature float64

	// Prompt is the system prompt, DefaultPrompt when empty
	Prompt string

	// Timeout bounds each judge try
	Timeout time.Duration

	// MaxRetries is the number of extra tries on transient failure
	MaxRetries int

	// Backoff is the base retry delay, doubled per retry
	Backoff time.Duration

	// Logf receives decision logs. Nil uses the standard logger.
	Logf func(format string, args ...any)
}

// Decide reduces survivors to a single Decision using the given
// strategy. Survivors must be non-empty and in dispatch-index order.
// A judge failure falls back to the first survivor and is reported on
// the Decision, never as an error.
func (j *Judge) Decide(ctx context.Context, strategy string, survivors []dispatch.Attempt, originalMessages []provider.Message, callerSchema []byte) (*Decision, error) {
	if len(survivors) == 0 {
		return nil, fmt.Errorf("decision: no survivors to decide between")
	}

	ctx, span := observability.StartSpan(ctx, "decision.Decide",
		observability.Attr("decision.strategy", strategy),
		observability.Attr("decision.survivors", len(survivors)),
	)
	defer span.End()

	// A single survivor is the answer under every strategy.
	if len(survivors) == 1 {
		pubobs.RecordDecision(strategy, "skipped")
		return &Decision{Value: survivors[0].Value, Strategy: strategy}, nil
	}

	switch strategy {
	case StrategyFirst:
		pubobs.RecordDecision(strategy, "selected")
		return &Decision{Value: First(survivors).Value, Strategy: strategy}, nil
	case StrategyMajority:
		winner, err := Majority(survivors)
		if err != nil {
			return nil, err
		}
		pubobs.RecordDecision(strategy, "selected")
		return &Decision{Value: winner.Value, Strategy: strategy}, nil
	case StrategyJudge:
		return j.judge(ctx, survivors, originalMessages, callerSchema)
	default:
		return nil, fmt.Errorf("decision: unknown strategy %q", strategy)
	}
}

func (j *Judge) judge(ctx context.Context, survivors []dispatch.Attempt, originalMessages []provider.Message, callerSchema []byte) (*Decision, error) {
	logf := j.Logf
	if logf == nil {
		logf = log.Printf
	}

	value, err := j.ask(ctx, survivors, originalMessages, callerSchema)
	if err != nil {
		logf("[Decision] judge failed, falling back to first survivor: %v", err)
		pubobs.RecordDecision(StrategyJudge, "fallback")
		return &Decision{
			Value:        survivors[0].Value,
			Strategy:     StrategyJudge,
			FallbackUsed: true,
			JudgeErr:     err,
		}, nil
	}

	pubobs.RecordDecision(StrategyJudge, "selected")
	return &Decision{Value: value, Strategy: StrategyJudge}, nil
}

// ask performs the judge call with its own retry budget
func (j *Judge) ask(ctx context.Context, survivors []dispatch.Attempt, originalMessages []provider.Message, callerSchema []byte) ([]byte, error) {
	if j.Provider == nil {
		return nil, fmt.Errorf("decision: judge provider is required")
	}

	messages := j.buildMessages(survivors, originalMessages)
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	backoff := j.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for try := 0; try <= j.MaxRetries; try++ {
		if try > 0 {
			delay := backoff * time.Duration(1<<(try-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		value, err := j.askOnce(ctx, messages, callerSchema, timeout)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if !provider.IsRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (j *Judge) askOnce(ctx context.Context, messages []provider.Message, callerSchema []byte, timeout time.Duration) ([]byte, error) {
	tryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := j.Provider.CreateStructured(tryCtx, provider.StructuredRequest{
		Messages:       messages,
		Model:          j.Model,
		Temperature:    j.Temperature,
		ResponseSchema: callerSchema,
		StrictSchema:   true,
	})
	if err != nil {
		return nil, err
	}

	value := []byte(resp.Data)
	if !json.Valid(value) {
		if extracted := schema.ExtractJSON(string(value)); extracted != "" {
			value = []byte(extracted)
		}
	}
	if len(callerSchema) > 0 {
		if err := schema.ValidateJSON(callerSchema, value, true); err != nil {
			return nil, err
		}
	}
	return value, nil
}

/// buildMessages assembles the judge conversation: the system prompt,
// then one user message carrying the original query context and every
// candidate response
func (j *Judge) buildMessages(survivors []dispatch.Attempt, originalMessages []provider.Message) []provider.Message {
	prompt := j.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	var queryContext strings.Builder
	for i, msg := range originalMessages {
		if i > 0 {
			queryContext.WriteString("\n")
		}
		queryContext.WriteString(msg.Role)
		queryContext.WriteString(": ")
		queryContext.WriteString(msg.Content)
	}

	var responses strings.Builder
	for i, s := range survivors {
		if i > 0 {
			responses.WriteString("\n\n")
		}
		fmt.Fprintf(&responses, "Response %d:\n%s", i+1, s.Value)
		if s.Reasoning != "" {
			fmt.Fprintf(&responses, "\nReasoning %d:\n%s", i+1, s.Reasoning)
		}
	}

	user := fmt.Sprintf(`Original Query Context:
%s

All Responses to Analyze:
%s

Please analyze these responses and return the best one or synthesize a better response using the same format as the original responses.`,
		queryContext.String(), responses.String())

	return []provider.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: user},
	}
}
