// Package dispatch fans a single structured request out to N concurrent
// provider calls and collects every outcome. All attempts run to
// completion: one attempt failing never cancels its siblings, and the
// barrier returns only after the last attempt has settled.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/quorumllm/quorum/internal/observability"
	"github.com/quorumllm/quorum/internal/provider"
	"github.com/quorumllm/quorum/internal/schema"
	pubobs "github.com/quorumllm/quorum/pkg/observability"
)

// Request describes the structured call each attempt performs. All
// attempts share the same request; they differ only in dispatch index.
type Request struct {
	Provider provider.Provider

	Model       string
	Messages    []provider.Message
	Schema      []byte
	Temperature float64
	MaxTokens   int

	// PassReasoning wraps the schema so the model returns its chain of
	// reasoning next to the payload. The reasoning is stripped before
	// aggregation and surfaced on the Attempt.
	PassReasoning bool
}

// Options controls fan-out width and the per-attempt failure policy
type Options struct {
	// Processors is the number of concurrent attempts
	Processors int

	// Timeout bounds each individual try, retries included get a fresh budget
	Timeout time.Duration

	// MaxRetries is the number of extra tries after the first failure
	MaxRetries int

	// Limiter, when set, paces tries across all attempts
	Limiter *rate.Limiter

	// Backoff is the base delay between retries, doubled per retry.
	// Zero means the default of one second.
	Backoff time.Duration

	// Logf receives attempt lifecycle logs. Nil uses the standard logger.
	Logf func(format string, args ...any)
}

// Attempt is the settled outcome of one dispatch slot
type Attempt struct {
	// Index is the dispatch index, stable across runs
	Index int

	// ID uniquely identifies the attempt for logs and traces
	ID string

	// Value is the schema-valid payload, nil when Err is set
	Value []byte

	// Reasoning is the model's reasoning text when PassReasoning was set
	Reasoning string

	// Err is the final error after the retry budget was spent
	Err error

	// Retries counts how many extra tries this attempt used
	Retries int

	// Duration is wall time from dispatch to settlement
	Duration time.Duration
}

// Result holds every attempt in dispatch-index order
type Result struct {
	Attempts []Attempt
}

// Survivors returns the successful attempts in dispatch-index order
func (r *Result) Survivors() []Attempt {
	var out []Attempt
	for _, a := range r.Attempts {
		if a.Err == nil {
			out = append(out, a)
		}
	}
	return out
}

// FailureCauses returns the error of every failed attempt in
// dispatch-index order
func (r *Result) FailureCauses() []error {
	var out []error
	for _, a := range r.Attempts {
		if a.Err != nil {
			out = append(out, a.Err)
		}
	}
	return out
}

// Run executes the fan-out and blocks until every attempt has settled.
// The returned error is non-nil only for invalid input or a cancelled
// parent context; per-attempt failures are reported on the Result.
func Run(ctx context.Context, req Request, opts Options) (*Result, error) {
	if req.Provider == nil {
		return nil, fmt.Errorf("dispatch: provider is required")
	}
	if opts.Processors < 1 {
		return nil, fmt.Errorf("dispatch: processors must be at least 1, got %d", opts.Processors)
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("dispatch: timeout must be positive")
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}

	sendSchema := req.Schema
	if req.PassReasoning {
		wrapped, err := schema.WrapReasoning(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("dispatch: wrapping schema: %w", err)
		}
		sendSchema = wrapped
	}

	ctx, span := observability.StartSpan(ctx, "dispatch.Run",
		observability.Attr("dispatch.processors", opts.Processors),
		observability.Attr("dispatch.model", req.Model),
	)
	defer span.End()

	result := &Result{Attempts: make([]Attempt, opts.Processors)}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.Processors; i++ {
		i := i
		g.Go(func() error {
			result.Attempts[i] = runAttempt(gctx, i, req, sendSchema, opts, logf)
			// Attempt errors stay on the Result so siblings keep running.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// runAttempt drives one dispatch slot through its retry budget
func runAttempt(ctx context.Context, index int, req Request, sendSchema []byte, opts Options, logf func(string, ...any)) Attempt {
	attempt := Attempt{
		Index: index,
		ID:    uuid.New().String(),
	}
	start := time.Now()

	providerName := req.Provider.Name()

	var lastErr error
	for try := 0; try <= opts.MaxRetries; try++ {
		if try > 0 {
			attempt.Retries++
			pubobs.RecordRetry(providerName)

			delay := opts.Backoff * time.Duration(1<<(try-1))
			logf("[Dispatch] attempt %d (%s): retry %d/%d after %v: %v",
				index, attempt.ID, try, opts.MaxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				attempt.Err = ctx.Err()
				attempt.Duration = time.Since(start)
				return attempt
			case <-time.After(delay):
			}
		}

		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				attempt.Err = err
				attempt.Duration = time.Since(start)
				return attempt
			}
		}

		value, reasoning, err := runTry(ctx, req, sendSchema, opts.Timeout)
		if err == nil {
			attempt.Value = value
			attempt.Reasoning = reasoning
			attempt.Duration = time.Since(start)
			pubobs.RecordAttempt(providerName, "success", attempt.Duration)
			return attempt
		}

		lastErr = err
		if !provider.IsRetryable(err) {
			logf("[Dispatch] attempt %d (%s): non-retryable failure: %v", index, attempt.ID, err)
			break
		}
	}

	attempt.Err = lastErr
	attempt.Duration = time.Since(start)
	pubobs.RecordAttempt(providerName, "failure", attempt.Duration)
	logf("[Dispatch] attempt %d (%s): failed after %d retries: %v",
		index, attempt.ID, attempt.Retries, lastErr)
	return attempt
}

// runTry performs a single provider call under its own timeout and
// validates the payload against the caller's schema
func runTry(ctx context.Context, req Request, sendSchema []byte, timeout time.Duration) ([]byte, string, error) {
	tryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := req.Provider.CreateStructured(tryCtx, provider.StructuredRequest{
		Messages:       req.Messages,
		Model:          req.Model,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseSchema: sendSchema,
		StrictSchema:   true,
	})
	if err != nil {
		return nil, "", err
	}

	payload := []byte(resp.Data)
	if !json.Valid(payload) {
		// Some models pad structured output with prose or markdown
		// fences, recover the embedded object before validating.
		if extracted := schema.ExtractJSON(string(payload)); extracted != "" {
			payload = []byte(extracted)
		}
	}
	reasoning := ""
	if req.PassReasoning {
		payload, reasoning, err = schema.UnwrapReasoning(payload)
		if err != nil {
			return nil, "", err
		}
	}

	if len(req.Schema) > 0 {
		if err := schema.ValidateJSON(req.Schema, payload, true); err != nil {
			// Validation failures are terminal: the model produced a
			// well-formed response that misses the contract.
			return nil, "", err
		}
	}

	return payload, reasoning, nil
}
