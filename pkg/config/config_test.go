package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3, cfg.Processors)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, "gpt-4o", cfg.DecisionModel)
	assert.InDelta(t, 0.1, cfg.DecisionTemperature, 1e-9)
	assert.Equal(t, "judge", cfg.DecisionStrategy)
	assert.True(t, cfg.EnableLogging)
	assert.NotEmpty(t, cfg.DecisionPrompt)
	require.NoError(t, cfg.Validate())
}

func TestPresetsValidate(t *testing.T) {
	for name, cfg := range map[string]Config{
		"performance": Performance(),
		"robust":      Robust(),
		"development": Development(),
	} {
		assert.NoError(t, cfg.Validate(), name)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		option string
	}{
		{"zero processors", func(c *Config) { c.Processors = 0 }, "processors"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"temperature too high", func(c *Config) { c.DecisionTemperature = 2.5 }, "decision_temperature"},
		{"negative temperature", func(c *Config) { c.DecisionTemperature = -0.1 }, "decision_temperature"},
		{"unknown strategy", func(c *Config) { c.DecisionStrategy = "dice" }, "decision_strategy"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, "requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.option, cerr.Option)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quorum.yaml")
	content := `
processors: 5
timeout_seconds: 12.5
max_retries: 1
decision_model: gpt-4o-mini
decision_temperature: 0.0
decision_strategy: majority
log_level: debug
requests_per_second: 4
burst: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Processors)
	assert.Equal(t, 12500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, "gpt-4o-mini", cfg.DecisionModel)
	assert.Zero(t, cfg.DecisionTemperature)
	assert.Equal(t, "majority", cfg.DecisionStrategy)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4.0, cfg.RequestsPerSecond)
	assert.Equal(t, 2, cfg.Burst)

	// unset keys keep their defaults
	assert.True(t, cfg.EnableLogging)
	assert.NotEmpty(t, cfg.DecisionPrompt)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quorum.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processors: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestManagerUpdate(t *testing.T) {
	m, err := NewManager(Default())
	require.NoError(t, err)

	require.NoError(t, m.Update(func(c *Config) {
		c.Processors = 7
	}))
	assert.Equal(t, 7, m.Snapshot().Processors)
}

func TestManagerUpdateRejectsInvalid(t *testing.T) {
	m, err := NewManager(Default())
	require.NoError(t, err)

	err = m.Update(func(c *Config) {
		c.Processors = 0
	})
	require.Error(t, err)
	assert.Equal(t, 3, m.Snapshot().Processors, "failed update must leave config untouched")
}

func TestManagerSnapshotIsolation(t *testing.T) {
	m, err := NewManager(Default())
	require.NoError(t, err)

	snap := m.Snapshot()
	require.NoError(t, m.Update(func(c *Config) { c.Processors = 9 }))
	assert.Equal(t, 3, snap.Processors, "snapshot must not observe later updates")
}

func TestManagerSummaryTruncatesPrompt(t *testing.T) {
	cfg := Default()
	cfg.DecisionPrompt = strings.Repeat("x", 500)
	m, err := NewManager(cfg)
	require.NoError(t, err)

	summary := m.Summary()
	prompt, ok := summary["decision_prompt"].(string)
	require.True(t, ok)
	assert.Len(t, prompt, 103)
	assert.True(t, strings.HasSuffix(prompt, "..."))
	assert.Equal(t, 3, summary["processors"])
}

func TestNewManagerRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Processors = -1
	_, err := NewManager(cfg)
	require.Error(t, err)
}
