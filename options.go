package quorum

import (
	"time"

	"github.com/quorumllm/quorum/pkg/config"
)

// callSettings holds per-call overrides of the client configuration
type callSettings struct {
	processors          *int
	timeout             *time.Duration
	maxRetries          *int
	decisionModel       *string
	decisionTemperature *float64
	decisionStrategy    *string
}

// CallOption overrides one configuration value for a single parse call.
// Per-call options win over the client configuration, which wins over
// the defaults.
type CallOption func(*callSettings)

// WithProcessors sets the number of concurrent attempts for this call
func WithProcessors(n int) CallOption {
	return func(s *callSettings) {
		s.processors = &n
	}
}

// WithTimeout sets the per-attempt timeout for this call
func WithTimeout(d time.Duration) CallOption {
	return func(s *callSettings) {
		s.timeout = &d
	}
}

// WithMaxRetries sets the per-attempt retry budget for this call
func WithMaxRetries(n int) CallOption {
	return func(s *callSettings) {
		s.maxRetries = &n
	}
}

// WithDecisionModel sets the decision-maker model for this call
func WithDecisionModel(model string) CallOption {
	return func(s *callSettings) {
		s.decisionModel = &model
	}
}

// WithDecisionTemperature sets the decision-maker temperature for this call
func WithDecisionTemperature(t float64) CallOption {
	return func(s *callSettings) {
		s.decisionTemperature = &t
	}
}

// WithDecisionStrategy sets the decision strategy for this call
func WithDecisionStrategy(strategy string) CallOption {
	return func(s *callSettings) {
		s.decisionStrategy = &strategy
	}
}

// resolve applies per-call overrides on top of a configuration snapshot
// and validates the result
func resolve(cfg config.Config, opts []CallOption) (config.Config, error) {
	var s callSettings
	for _, opt := range opts {
		opt(&s)
	}

	if s.processors != nil {
		cfg.Processors = *s.processors
	}
	if s.timeout != nil {
		cfg.Timeout = *s.timeout
	}
	if s.maxRetries != nil {
		cfg.MaxRetries = *s.maxRetries
	}
	if s.decisionModel != nil {
		cfg.DecisionModel = *s.decisionModel
	}
	if s.decisionTemperature != nil {
		cfg.DecisionTemperature = *s.decisionTemperature
	}
	if s.decisionStrategy != nil {
		cfg.DecisionStrategy = *s.decisionStrategy
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
