package quorum

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/quorumllm/quorum/internal/decision"
	"github.com/quorumllm/quorum/internal/dispatch"
	"github.com/quorumllm/quorum/internal/observability"
	"github.com/quorumllm/quorum/internal/provider"
	"github.com/quorumllm/quorum/internal/schema"
	"github.com/quorumllm/quorum/pkg/config"
	pubobs "github.com/quorumllm/quorum/pkg/observability"
)

// Client runs parallel structured parse calls against one provider
type Client struct {
	provider provider.Provider
	manager  *config.Manager

	// limiter follows RequestsPerSecond and Burst across config
	// updates. Nil when rate limiting is off.
	limiter atomic.Pointer[rate.Limiter]

	// Beta is the chat-completions compatibility facade
	Beta *Beta
}

// New creates a client for a registered provider. Supported names are
// "openai", "openai-sdk", and "gemini"; providerConfig is passed to the
// provider factory ("api_key", "base_url").
func New(providerName string, providerConfig map[string]any, cfg config.Config) (*Client, error) {
	p, err := provider.New(providerName, providerConfig)
	if err != nil {
		return nil, fmt.Errorf("quorum: creating provider: %w", err)
	}
	return newClient(p, cfg)
}

// NewOpenAI creates a client backed by the OpenAI chat completions API
func NewOpenAI(apiKey string, cfg config.Config) (*Client, error) {
	return New("openai", map[string]any{"api_key": apiKey}, cfg)
}

func newClient(p provider.Provider, cfg config.Config) (*Client, error) {
	manager, err := config.NewManager(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		provider: p,
		manager:  manager,
	}
	c.setLimiter(cfg)
	c.Beta = newBeta(c)
	pubobs.InitMetrics()
	return c, nil
}

func (c *Client) setLimiter(cfg config.Config) {
	if cfg.RequestsPerSecond <= 0 {
		c.limiter.Store(nil)
		return
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	c.limiter.Store(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst))
}

// UpdateConfig applies fn to the client configuration. Validation
// failures leave the previous configuration in effect. Calls already
// running keep the snapshot they started with; the rate limiter is
// rebuilt so new calls see the updated pacing.
func (c *Client) UpdateConfig(fn func(*config.Config)) error {
	if err := c.manager.Update(fn); err != nil {
		return err
	}
	c.setLimiter(c.manager.Snapshot())
	return nil
}

// Config returns a snapshot of the current configuration
func (c *Client) Config() config.Config {
	return c.manager.Snapshot()
}

// ConfigSummary returns a readable view of the current configuration
func (c *Client) ConfigSummary() map[string]any {
	return c.manager.Summary()
}

// Parse runs the parallel pipeline and returns the final payload
func (c *Client) Parse(ctx context.Context, req Request, opts ...CallOption) (json.RawMessage, error) {
	outcome, err := c.ParseWithOutcome(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	return outcome.Value, nil
}

// ParseWithOutcome runs the parallel pipeline and returns the final
// payload together with per-attempt detail and the terminal state
func (c *Client) ParseWithOutcome(ctx context.Context, req Request, opts ...CallOption) (*Outcome, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	cfg, err := resolve(c.manager.Snapshot(), opts)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "quorum.Parse",
		observability.Attr("quorum.model", req.Model),
		observability.Attr("quorum.processors", cfg.Processors),
		observability.Attr("quorum.strategy", cfg.DecisionStrategy),
	)
	defer span.End()

	outcome := &Outcome{State: StateIdle}

	outcome.State = StateDispatching
	c.logf(cfg, "debug", "[Quorum] dispatching %d attempts, model=%s", cfg.Processors, req.Model)

	dispatchResult, err := dispatch.Run(ctx, dispatch.Request{
		Provider:      c.provider,
		Model:         req.Model,
		Messages:      toProviderMessages(req.Messages),
		Schema:        req.Schema,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		PassReasoning: req.PassReasoning,
	}, dispatch.Options{
		Processors: cfg.Processors,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Limiter:    c.limiter.Load(),
		Logf:       c.logfFunc(cfg, "debug"),
	})
	if err != nil {
		outcome.State = StateFailed
		pubobs.RecordParse(string(StateFailed), time.Since(start))
		return nil, err
	}

	outcome.State = StateAggregating
	survivors := dispatchResult.Survivors()
	outcome.Successes = len(survivors)
	outcome.Failures = cfg.Processors - len(survivors)
	outcome.FailureCauses = dispatchResult.FailureCauses()
	for _, a := range dispatchResult.Attempts {
		outcome.Attempts = append(outcome.Attempts, AttemptReport{
			Index:     a.Index,
			Err:       a.Err,
			Retries:   a.Retries,
			Duration:  a.Duration,
			Reasoning: a.Reasoning,
		})
	}

	if len(survivors) == 0 {
		outcome.State = StateFailed
		pubobs.RecordParse(string(StateFailed), time.Since(start))
		perr := &ProcessingError{Attempts: cfg.Processors, Causes: outcome.FailureCauses}
		c.logf(cfg, "error", "[Quorum] %v", perr)
		return nil, perr
	}
	c.logf(cfg, "info", "[Quorum] aggregated %d/%d successful attempts", len(survivors), cfg.Processors)

	outcome.State = StateDeciding
	judge := &decision.Judge{
		Provider:    c.provider,
		Model:       cfg.DecisionModel,
		Temperature: cfg.DecisionTemperature,
		Prompt:      cfg.DecisionPrompt,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		Logf:        c.logfFunc(cfg, "warn"),
	}
	dec, err := judge.Decide(ctx, cfg.DecisionStrategy, survivors, toProviderMessages(req.Messages), req.Schema)
	if err != nil {
		outcome.State = StateFailed
		pubobs.RecordParse(string(StateFailed), time.Since(start))
		return nil, &DecisionError{Err: err}
	}

	outcome.Value = dec.Value
	outcome.FallbackUsed = dec.FallbackUsed
	outcome.DecisionErr = dec.JudgeErr
	if dec.FallbackUsed {
		outcome.State = StateFallbackSucceeded
		c.logf(cfg, "warn", "[Quorum] decision maker failed, returned first successful attempt: %v", dec.JudgeErr)
	} else {
		outcome.State = StateSucceeded
	}
	pubobs.RecordParse(string(outcome.State), time.Since(start))
	return outcome, nil
}

// SchemaOf derives a JSON Schema from T's exported fields, honoring
// json and description struct tags
func SchemaOf[T any]() (json.RawMessage, error) {
	return schema.FromStructOf[T]().Marshal()
}

// ParseAs runs the pipeline with a schema derived from T and decodes
// the final payload into a T
func ParseAs[T any](ctx context.Context, c *Client, req Request, opts ...CallOption) (*T, error) {
	if len(req.Schema) == 0 {
		raw, err := SchemaOf[T]()
		if err != nil {
			return nil, fmt.Errorf("quorum: deriving schema: %w", err)
		}
		req.Schema = raw
	}

	value, err := c.Parse(ctx, req, opts...)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return nil, fmt.Errorf("quorum: decoding final payload: %w", err)
	}
	return &out, nil
}

func validateRequest(req Request) error {
	if req.Model == "" {
		return ErrNoModel
	}
	if len(req.Messages) == 0 {
		return ErrNoMessages
	}
	if len(req.Schema) == 0 {
		return ErrNoSchema
	}
	if !json.Valid(req.Schema) {
		return fmt.Errorf("quorum: response schema is not valid JSON")
	}
	return nil
}

func toProviderMessages(msgs []Message) []provider.Message {
	out := make([]provider.Message, len(msgs))
	for i, m := range msgs {
		out[i] = provider.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

func (c *Client) logf(cfg config.Config, level, format string, args ...any) {
	if !cfg.EnableLogging {
		return
	}
	if levelRank[level] < levelRank[cfg.LogLevel] {
		return
	}
	log.Printf(format, args...)
}

// logfFunc adapts logf to the plain printf signature the internal
// packages take
func (c *Client) logfFunc(cfg config.Config, level string) func(string, ...any) {
	return func(format string, args ...any) {
		c.logf(cfg, level, format, args...)
	}
}
