// Package config loads and validates tether configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tether-analysis/tether/pkg/coupling"
)

// Config holds all configuration for an analysis run.
type Config struct {
	Volatility VolatilityConfig `koanf:"volatility"`
	Thresholds ThresholdConfig  `koanf:"thresholds"`
	Analysis   AnalysisConfig   `koanf:"analysis"`
	Cache      CacheConfig      `koanf:"cache"`

	// Warnings collects unknown configuration keys found while loading.
	Warnings []string `koanf:"-"`
}

// VolatilityConfig overrides volatility classification per glob pattern and
// names ignore globs for the workspace walk. Overrides take precedence over
// git history.
type VolatilityConfig struct {
	High   []string `koanf:"high"`
	Low    []string `koanf:"low"`
	Ignore []string `koanf:"ignore"`
}

// ThresholdConfig bounds the per-module degree issues.
type ThresholdConfig struct {
	MaxDependencies int `koanf:"max_dependencies"`
	MaxDependents   int `koanf:"max_dependents"`
}

// AnalysisConfig controls the history window and parallelism.
type AnalysisConfig struct {
	GitMonths int  `koanf:"git_months"`
	NoGit     bool `koanf:"no_git"`
	Jobs      int  `koanf:"jobs"`
}

// CacheConfig controls the per-file extraction cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	TTL     int    `koanf:"ttl"` // hours
}

// knownKeys are the recognized configuration keys. Anything else is reported
// as a warning and ignored.
var knownKeys = map[string]bool{
	"volatility.high":             true,
	"volatility.low":              true,
	"volatility.ignore":           true,
	"thresholds.max_dependencies": true,
	"thresholds.max_dependents":   true,
	"analysis.git_months":         true,
	"analysis.no_git":             true,
	"analysis.jobs":               true,
	"cache.enabled":               true,
	"cache.dir":                   true,
	"cache.ttl":                   true,
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			MaxDependencies: 15,
			MaxDependents:   20,
		},
		Analysis: AnalysisConfig{
			GitMonths: 6,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".tether/cache",
			TTL:     24,
		},
	}
}

// Load reads a configuration file, layered over the defaults. The parser is
// chosen by extension; a failure is a ConfigError.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, &coupling.ConfigError{Path: path, Err: err}
	}

	for _, key := range k.Keys() {
		if !knownKeys[key] {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown configuration key %q", key))
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &coupling.ConfigError{Path: path, Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, &coupling.ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

// LoadOrDefault loads tether.toml (or .tether.toml) from the root when
// present, otherwise returns the defaults.
func LoadOrDefault(root string) (*Config, error) {
	for _, name := range []string{"tether.toml", ".tether.toml"} {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

func (c *Config) validate() error {
	if c.Thresholds.MaxDependencies <= 0 {
		return fmt.Errorf("thresholds.max_dependencies must be positive, got %d", c.Thresholds.MaxDependencies)
	}
	if c.Thresholds.MaxDependents <= 0 {
		return fmt.Errorf("thresholds.max_dependents must be positive, got %d", c.Thresholds.MaxDependents)
	}
	if c.Analysis.GitMonths <= 0 {
		return fmt.Errorf("analysis.git_months must be positive, got %d", c.Analysis.GitMonths)
	}
	return nil
}

// CouplingThresholds converts the configured limits for the issue engine.
func (c *Config) CouplingThresholds() coupling.Thresholds {
	return coupling.Thresholds{
		MaxDependencies: c.Thresholds.MaxDependencies,
		MaxDependents:   c.Thresholds.MaxDependents,
	}
}
