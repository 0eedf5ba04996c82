package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hindsightdev/hindsight/internal/errors"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
	assert.True(t, cfg.Review.SelfReflection)
	assert.Equal(t, 7, cfg.Review.ReflectionThreshold)
	assert.Equal(t, 5, cfg.Review.MaxFindings)
	assert.InDelta(t, 90.0, cfg.Review.MinConfidence, 0.001)
	assert.Equal(t, 180, cfg.History.WindowDays)
	assert.Equal(t, 25, cfg.History.MaxFilesPerCommit)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
provider:
  name: gemini
  model: gemini-2.0-flash
review:
  max_findings: 8
history:
  window_days: 90
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider.Name)
	assert.Equal(t, "gemini-2.0-flash", cfg.Provider.Model)
	assert.Equal(t, 8, cfg.Review.MaxFindings)
	assert.Equal(t, 90, cfg.History.WindowDays)
	// untouched sections keep defaults
	assert.Equal(t, 7, cfg.Review.ReflectionThreshold)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HINDSIGHT_PROVIDER", "compat")
	t.Setenv("HINDSIGHT_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("HINDSIGHT_API_KEY", "test-key")
	t.Setenv("HINDSIGHT_WINDOW_DAYS", "30")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err) // explicit missing file is an error

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "compat", cfg.Provider.Name)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Provider.BaseURL)
	assert.Equal(t, "test-key", cfg.Provider.APIKey)
	assert.Equal(t, 30, cfg.History.WindowDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing key", func(c *Config) { c.Provider.APIKey = "" }, "provider.api_key"},
		{"bad provider", func(c *Config) { c.Provider.Name = "anthropic" }, "provider.name"},
		{"missing model", func(c *Config) { c.Provider.Model = "" }, "provider.model"},
		{"compat without url", func(c *Config) { c.Provider.Name = "compat" }, "provider.base_url"},
		{"threshold range", func(c *Config) { c.Review.ReflectionThreshold = 11 }, "reflection_threshold"},
		{"confidence range", func(c *Config) { c.Review.MinConfidence = 120 }, "min_confidence"},
		{"window days", func(c *Config) { c.History.WindowDays = 0 }, "window_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Provider.APIKey = "k"
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.KindConfig, errors.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	cfg := Default()
	cfg.Provider.APIKey = "k"
	assert.NoError(t, cfg.Validate())
}
