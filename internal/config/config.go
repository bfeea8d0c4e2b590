package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/foreman/internal/models"
)

// Default loop budgets. The functional fix loop gives up after five
// attempts; the structural split loop allows ten measurement passes.
const (
	DefaultMaxFixRetries  = 5
	DefaultMaxSplitPasses = 10
	DefaultSizeThreshold  = 400
)

// HistoryConfig configures the optional run history store.
type HistoryConfig struct {
	// Path is the SQLite database path. Empty disables history entirely,
	// keeping the run summary the only persisted artifact.
	Path string `yaml:"path"`
}

// Config represents foreman configuration options
type Config struct {
	// Timeout is the bounded wait applied to each work-unit invocation
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// ClaudePath is the worker CLI binary to invoke
	ClaudePath string `yaml:"claude_path"`

	// MaxFixRetries caps the functional-correctness fix loop
	MaxFixRetries int `yaml:"max_fix_retries"`

	// MaxSplitPasses caps the structural size loop
	MaxSplitPasses int `yaml:"max_split_passes"`

	// SizeThreshold is the per-file line bound enforced by the split loop
	SizeThreshold int `yaml:"size_threshold"`

	// SizeExtensions limits size measurement to these file extensions
	// (empty measures every file)
	SizeExtensions []string `yaml:"size_extensions"`

	// TestHardBlocking makes functional-test exhaustion abort the run.
	// Default false: the run continues and reports the open issue.
	TestHardBlocking bool `yaml:"test_hard_blocking"`

	// GateAgents overrides the delegated agent per quality gate check,
	// keyed by check name (lint-normalize, security-review, ...)
	GateAgents map[string]string `yaml:"gate_agents"`

	// Phases optionally replaces the standard phase list entirely
	Phases []models.PhaseSpec `yaml:"phases"`

	// History contains run history store configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:        10 * time.Minute,
		LogLevel:       "info",
		ClaudePath:     "claude",
		MaxFixRetries:  DefaultMaxFixRetries,
		MaxSplitPasses: DefaultMaxSplitPasses,
		SizeThreshold:  DefaultSizeThreshold,
		SizeExtensions: []string{".go"},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct to handle duration parsing
	type yamlConfig struct {
		Timeout          string             `yaml:"timeout"`
		LogLevel         string             `yaml:"log_level"`
		ClaudePath       string             `yaml:"claude_path"`
		MaxFixRetries    *int               `yaml:"max_fix_retries"`
		MaxSplitPasses   *int               `yaml:"max_split_passes"`
		SizeThreshold    *int               `yaml:"size_threshold"`
		SizeExtensions   []string           `yaml:"size_extensions"`
		TestHardBlocking *bool              `yaml:"test_hard_blocking"`
		GateAgents       map[string]string  `yaml:"gate_agents"`
		Phases           []models.PhaseSpec `yaml:"phases"`
		History          HistoryConfig      `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.ClaudePath != "" {
		cfg.ClaudePath = yamlCfg.ClaudePath
	}
	if yamlCfg.MaxFixRetries != nil {
		cfg.MaxFixRetries = *yamlCfg.MaxFixRetries
	}
	if yamlCfg.MaxSplitPasses != nil {
		cfg.MaxSplitPasses = *yamlCfg.MaxSplitPasses
	}
	if yamlCfg.SizeThreshold != nil {
		cfg.SizeThreshold = *yamlCfg.SizeThreshold
	}
	if len(yamlCfg.SizeExtensions) > 0 {
		cfg.SizeExtensions = yamlCfg.SizeExtensions
	}
	if yamlCfg.TestHardBlocking != nil {
		cfg.TestHardBlocking = *yamlCfg.TestHardBlocking
	}
	if len(yamlCfg.GateAgents) > 0 {
		cfg.GateAgents = yamlCfg.GateAgents
	}
	if len(yamlCfg.Phases) > 0 {
		cfg.Phases = yamlCfg.Phases
	}
	if yamlCfg.History.Path != "" {
		cfg.History.Path = yamlCfg.History.Path
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .foreman/config.yaml in the
// specified directory, falling back to defaults when absent.
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".foreman", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(timeout *time.Duration, logLevel *string, maxFixRetries, maxSplitPasses *int) {
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if maxFixRetries != nil {
		c.MaxFixRetries = *maxFixRetries
	}
	if maxSplitPasses != nil {
		c.MaxSplitPasses = *maxSplitPasses
	}
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.MaxFixRetries <= 0 {
		return fmt.Errorf("max_fix_retries must be > 0, got %d", c.MaxFixRetries)
	}
	if c.MaxSplitPasses <= 0 {
		return fmt.Errorf("max_split_passes must be > 0, got %d", c.MaxSplitPasses)
	}
	if c.SizeThreshold <= 0 {
		return fmt.Errorf("size_threshold must be > 0, got %d", c.SizeThreshold)
	}

	for i := range c.Phases {
		if err := c.Phases[i].Validate(); err != nil {
			return fmt.Errorf("phases[%d]: %w", i, err)
		}
	}

	return nil
}
