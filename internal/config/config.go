// Package config loads engine configuration from defaults, an optional
// YAML file, and environment overrides, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/hindsightdev/hindsight/internal/errors"
	"github.com/hindsightdev/hindsight/internal/logging"
)

// Config holds all engine settings.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Review   ReviewConfig   `yaml:"review"`
	History  HistoryConfig  `yaml:"history"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Logging  logging.Config `yaml:"logging"`
}

// ProviderConfig selects and authenticates the completion backend.
type ProviderConfig struct {
	Name        string        `yaml:"name"` // "openai", "gemini", "compat"
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"` // required for "compat"
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	RatePerMin  int           `yaml:"rate_per_min"` // proactive pacing, 0 disables
}

// ReviewConfig tunes the review pipeline.
type ReviewConfig struct {
	SelfReflection      bool     `yaml:"self_reflection"`
	ReflectionThreshold int      `yaml:"reflection_threshold"` // keep findings scored >= this (1-10)
	MaxFindings         int      `yaml:"max_findings"`
	MinConfidence       float64  `yaml:"min_confidence"` // 0-100
	AllowedSeverities   []string `yaml:"allowed_severities"`
	Summarize           bool     `yaml:"summarize"`
}

// HistoryConfig tunes commit mining and the analyzers.
type HistoryConfig struct {
	WindowDays        int     `yaml:"window_days"`
	MaxFilesPerCommit int     `yaml:"max_files_per_commit"` // skips giant merge commits
	MinCouplingRatio  float64 `yaml:"min_coupling_ratio"`
	MinCoChanges      int     `yaml:"min_co_changes"`
	MaxHotspots       int     `yaml:"max_hotspots"`
}

// FeedbackConfig locates the local feedback store.
type FeedbackConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Provider: ProviderConfig{
			Name:        "openai",
			Model:       "gpt-4o-mini",
			Timeout:     60 * time.Second,
			MaxRetries:  3,
			BaseBackoff: time.Second,
		},
		Review: ReviewConfig{
			SelfReflection:      true,
			ReflectionThreshold: 7,
			MaxFindings:         5,
			MinConfidence:       90.0,
			Summarize:           true,
		},
		History: HistoryConfig{
			WindowDays:        180,
			MaxFilesPerCommit: 25,
			MinCouplingRatio:  0.3,
			MinCoChanges:      3,
			MaxHotspots:       10,
		},
		Feedback: FeedbackConfig{
			Path: filepath.Join(homeDir, ".hindsight", "feedback.db"),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from path (or the standard search locations
// when path is empty), applying .env files and environment overrides.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("provider", cfg.Provider)
	v.SetDefault("review", cfg.Review)
	v.SetDefault("history", cfg.History)
	v.SetDefault("feedback", cfg.Feedback)
	v.SetDefault("logging", cfg.Logging)

	v.SetEnvPrefix("HINDSIGHT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".hindsight")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".hindsight"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// no config file is fine, defaults apply
	}

	// decode against the same yaml tags Save writes
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnv := filepath.Join(homeDir, ".hindsight", ".env")
	if _, err := os.Stat(homeEnv); err == nil {
		godotenv.Load(homeEnv)
	}
}

func applyEnvOverrides(cfg *Config) {
	if name := os.Getenv("HINDSIGHT_PROVIDER"); name != "" {
		cfg.Provider.Name = name
	}
	if model := os.Getenv("HINDSIGHT_MODEL"); model != "" {
		cfg.Provider.Model = model
	}
	if url := os.Getenv("HINDSIGHT_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Name {
		case "gemini":
			cfg.Provider.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if key := os.Getenv("HINDSIGHT_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if retries := os.Getenv("HINDSIGHT_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			cfg.Provider.MaxRetries = n
		}
	}
	if days := os.Getenv("HINDSIGHT_WINDOW_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			cfg.History.WindowDays = n
		}
	}
	if path := os.Getenv("HINDSIGHT_FEEDBACK_PATH"); path != "" {
		cfg.Feedback.Path = expandPath(path)
	}
	if level := os.Getenv("HINDSIGHT_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

var validProviders = map[string]bool{
	"openai": true,
	"gemini": true,
	"compat": true,
}

// Validate checks that the configuration can drive a review run. Every
// failure names the offending setting.
func (c *Config) Validate() error {
	if !validProviders[c.Provider.Name] {
		return errors.ConfigErrorf("provider.name %q is not supported (openai, gemini, compat)", c.Provider.Name)
	}
	if c.Provider.APIKey == "" {
		return errors.ConfigErrorf("provider.api_key is required (set HINDSIGHT_API_KEY, OPENAI_API_KEY, or GEMINI_API_KEY)")
	}
	if c.Provider.Model == "" {
		return errors.ConfigErrorf("provider.model is required")
	}
	if c.Provider.Name == "compat" && c.Provider.BaseURL == "" {
		return errors.ConfigErrorf("provider.base_url is required when provider.name is compat")
	}
	if c.Review.ReflectionThreshold < 1 || c.Review.ReflectionThreshold > 10 {
		return errors.ConfigErrorf("review.reflection_threshold must be between 1 and 10, got %d", c.Review.ReflectionThreshold)
	}
	if c.Review.MinConfidence < 0 || c.Review.MinConfidence > 100 {
		return errors.ConfigErrorf("review.min_confidence must be between 0 and 100, got %g", c.Review.MinConfidence)
	}
	if c.History.WindowDays <= 0 {
		return errors.ConfigErrorf("history.window_days must be positive, got %d", c.History.WindowDays)
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("provider", c.Provider)
	v.Set("review", c.Review)
	v.Set("history", c.History)
	v.Set("feedback", c.Feedback)
	v.Set("logging", c.Logging)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
