// Package config holds the process-wide defaults for the consensus
// pipeline, from fan-out width and per-attempt failure policy to the
// decision-maker settings. A Manager guards runtime updates; every call
// reads a snapshot at start, so updates never alter calls in flight.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quorumllm/quorum/internal/decision"
)

// Config represents the pipeline configuration
type Config struct {
	// Processors is the number of concurrent dispatch attempts per call
	Processors int

	// Timeout is the per-attempt timeout
	Timeout time.Duration

	// MaxRetries is the number of extra tries per attempt on transient failure
	MaxRetries int

	// DecisionModel is the model used for the decision-maker call
	DecisionModel string

	// DecisionTemperature is the sampling temperature for the decision maker
	DecisionTemperature float64

	// DecisionPrompt is the decision-maker system prompt
	DecisionPrompt string

	// DecisionStrategy selects how a final result is chosen:
	// "judge" (LLM call, default), "first", or "majority"
	DecisionStrategy string

	// EnableLogging toggles pipeline log output
	EnableLogging bool

	// LogLevel is one of "debug", "info", "warn", "error"
	LogLevel string

	// RequestsPerSecond paces outbound calls across attempts (0 = unlimited)
	RequestsPerSecond float64

	// Burst is the rate limiter burst size
	Burst int
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Processors:          3,
		Timeout:             30 * time.Second,
		MaxRetries:          2,
		DecisionModel:       "gpt-4o",
		DecisionTemperature: 0.1,
		DecisionPrompt:      decision.DefaultPrompt,
		DecisionStrategy:    decision.StrategyJudge,
		EnableLogging:       true,
		LogLevel:            "info",
	}
}

// Performance returns a configuration tuned for latency
func Performance() Config {
	cfg := Default()
	cfg.Processors = 5
	cfg.Timeout = 20 * time.Second
	cfg.MaxRetries = 1
	cfg.DecisionTemperature = 0.0
	return cfg
}

// Robust returns a configuration tuned for reliability
func Robust() Config {
	cfg := Default()
	cfg.Timeout = 60 * time.Second
	cfg.MaxRetries = 3
	return cfg
}

// Development returns a configuration suitable for development
func Development() Config {
	cfg := Default()
	cfg.Processors = 2
	cfg.Timeout = 15 * time.Second
	cfg.MaxRetries = 1
	cfg.LogLevel = "debug"
	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Processors < 1 {
		return &Error{Option: "processors", Reason: "must be at least 1"}
	}
	if c.Timeout <= 0 {
		return &Error{Option: "timeout", Reason: "must be positive"}
	}
	if c.MaxRetries < 0 {
		return &Error{Option: "max_retries", Reason: "must be non-negative"}
	}
	if c.DecisionTemperature < 0 || c.DecisionTemperature > 2 {
		return &Error{Option: "decision_temperature", Reason: "must be between 0 and 2"}
	}
	switch c.DecisionStrategy {
	case decision.StrategyJudge, decision.StrategyFirst, decision.StrategyMajority:
	default:
		return &Error{Option: "decision_strategy", Reason: fmt.Sprintf("unknown strategy %q", c.DecisionStrategy)}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &Error{Option: "log_level", Reason: "must be one of: debug, info, warn, error"}
	}
	if c.RequestsPerSecond < 0 {
		return &Error{Option: "requests_per_second", Reason: "must be non-negative"}
	}
	return nil
}

// Error reports an invalid configuration option. Never retried.
type Error struct {
	Option string
	Reason string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("invalid config option %q: %s", e.Option, e.Reason)
}

// fileConfig is the YAML shape of a config file. Durations are expressed
// in seconds to match the public configuration surface.
type fileConfig struct {
	Processors          *int     `yaml:"processors"`
	TimeoutSeconds      *float64 `yaml:"timeout_seconds"`
	MaxRetries          *int     `yaml:"max_retries"`
	DecisionModel       string   `yaml:"decision_model"`
	DecisionTemperature *float64 `yaml:"decision_temperature"`
	DecisionPrompt      string   `yaml:"decision_prompt"`
	DecisionStrategy    string   `yaml:"decision_strategy"`
	EnableLogging       *bool    `yaml:"enable_logging"`
	LogLevel            string   `yaml:"log_level"`
	RequestsPerSecond   *float64 `yaml:"requests_per_second"`
	Burst               *int     `yaml:"burst"`
}

// Load loads configuration from a YAML file, applying defaults for
// anything the file leaves unset
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := Default()
	if fc.Processors != nil {
		cfg.Processors = *fc.Processors
	}
	if fc.TimeoutSeconds != nil {
		cfg.Timeout = time.Duration(*fc.TimeoutSeconds * float64(time.Second))
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.DecisionModel != "" {
		cfg.DecisionModel = fc.DecisionModel
	}
	if fc.DecisionTemperature != nil {
		cfg.DecisionTemperature = *fc.DecisionTemperature
	}
	if fc.DecisionPrompt != "" {
		cfg.DecisionPrompt = fc.DecisionPrompt
	}
	if fc.DecisionStrategy != "" {
		cfg.DecisionStrategy = fc.DecisionStrategy
	}
	if fc.EnableLogging != nil {
		cfg.EnableLogging = *fc.EnableLogging
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *fc.RequestsPerSecond
	}
	if fc.Burst != nil {
		cfg.Burst = *fc.Burst
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
