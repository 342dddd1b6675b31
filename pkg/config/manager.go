package config

import (
	"fmt"
	"sync"
)

// Manager provides concurrency-safe access to a live configuration.
// Readers take a snapshot; writers replace fields under the lock.
type Manager struct {
	mu  sync.RWMutex
	cfg Config
}

// NewManager creates a manager seeded with the given configuration
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

// Snapshot returns a copy of the current configuration
func (m *Manager) Snapshot() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update applies fn to a copy of the current configuration and installs
// the result if it validates. On validation failure the previous
// configuration stays in effect.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	m.cfg = next
	return nil
}

// Summary returns a human-readable view of the current configuration.
// The decision prompt is truncated to keep the output scannable.
func (m *Manager) Summary() map[string]any {
	cfg := m.Snapshot()

	prompt := cfg.DecisionPrompt
	if len(prompt) > 100 {
		prompt = prompt[:100] + "..."
	}

	return map[string]any{
		"processors":           cfg.Processors,
		"timeout":              cfg.Timeout.String(),
		"max_retries":          cfg.MaxRetries,
		"decision_model":       cfg.DecisionModel,
		"decision_temperature": fmt.Sprintf("%.2f", cfg.DecisionTemperature),
		"decision_prompt":      prompt,
		"decision_strategy":    cfg.DecisionStrategy,
		"enable_logging":       cfg.EnableLogging,
		"log_level":            cfg.LogLevel,
		"requests_per_second":  cfg.RequestsPerSecond,
		"burst":                cfg.Burst,
	}
}
