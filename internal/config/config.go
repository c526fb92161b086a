// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"phi-guard/internal/ensemble"
	"phi-guard/internal/evaluation"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Ensemble     EnsembleConfig     `yaml:"ensemble"`
	Evaluation   EvaluationConfig   `yaml:"evaluation"`
	Redaction    RedactionConfig    `yaml:"redaction"`
	Detectors    DetectorsConfig    `yaml:"detectors"`
	Logging      LoggingConfig      `yaml:"logging"`

	// Profiles for different review scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// OrchestratorConfig controls detector execution
type OrchestratorConfig struct {
	DetectorTimeout time.Duration `yaml:"detector_timeout"`
	Concurrency     int           `yaml:"concurrency"`
	MaxRetries      int           `yaml:"max_retries"`
}

// EnsembleConfig controls voting. The voter settings are inlined so the file
// reads ensemble.strategy rather than ensemble.voter.strategy.
type EnsembleConfig struct {
	ensemble.Config `yaml:",inline"`

	// Spans at or above this confidence are redacted without a vote
	PassthroughConfidence float64 `yaml:"passthrough_confidence"`

	Weights              ensemble.SignalWeights `yaml:"weights"`
	DisambiguationWindow int                    `yaml:"disambiguation_window"`
	ChaosCacheSize       int                    `yaml:"chaos_cache_size"`

	// Drop known false positives (headings, labels, clinical phrases) before voting
	Postfilter bool `yaml:"postfilter"`
}

// EvaluationConfig controls benchmark scoring
type EvaluationConfig struct {
	PartialThreshold float64           `yaml:"partial_threshold"`
	TrueNegatives    int               `yaml:"true_negatives"`
	TypeAliases      map[string]string `yaml:"type_aliases"`
	Concurrency      int               `yaml:"concurrency"`
}

// RedactionConfig selects replacement styles by name
type RedactionConfig struct {
	Style   string            `yaml:"style"`
	PerType map[string]string `yaml:"per_type"`
}

// DetectorsConfig selects detectors; an empty list enables all of them
type DetectorsConfig struct {
	Enabled []string `yaml:"enabled"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Profile overrides a subset of settings. Unset fields leave the base
// configuration alone.
type Profile struct {
	Description     string   `yaml:"description"`
	RedactThreshold *float64 `yaml:"redact_threshold,omitempty"`
	SkipThreshold   *float64 `yaml:"skip_threshold,omitempty"`
	Strategy        string   `yaml:"strategy,omitempty"`
	Style           string   `yaml:"style,omitempty"`
	Detectors       []string `yaml:"detectors,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	strict := 0.5
	strictSkip := 0.2
	return &Config{
		Orchestrator: OrchestratorConfig{
			DetectorTimeout: 5 * time.Second,
			Concurrency:     0,
			MaxRetries:      2,
		},
		Ensemble: EnsembleConfig{
			Config:                ensemble.DefaultConfig(),
			PassthroughConfidence: 0.95,
			Weights:               ensemble.DefaultSignalWeights(),
			DisambiguationWindow:  60,
			ChaosCacheSize:        128,
			Postfilter:            true,
		},
		Evaluation: EvaluationConfig{
			PartialThreshold: evaluation.DefaultPartialThreshold,
			TypeAliases:      map[string]string{},
			Concurrency:      4,
		},
		Redaction: RedactionConfig{
			Style:   "brackets",
			PerType: map[string]string{},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Profiles: map[string]Profile{
			"strict": {
				Description:     "Redacts on weaker evidence; more false positives, fewer misses",
				RedactThreshold: &strict,
				SkipThreshold:   &strictSkip,
			},
		},
	}
}

// LoadConfig loads configuration from the specified file path. An empty path
// yields the defaults. A .env file in the working directory is loaded first and
// PHI_GUARD_* environment variables override file values.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(filepath.Clean(configPath))
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := applyEnv(config, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads configuration from configFile, or from the first
// standard location that exists when configFile is empty. If loading fails it
// returns the defaults together with the error, so callers can warn and go on.
func LoadConfigOrDefault(configFile string) (*Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"phi-guard.yaml", "phi-guard.yml", ".phi-guard.yaml", ".phi-guard.yml"} {
		if fileExists(name) {
			return name
		}
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	path := filepath.Join(configHome, "phi-guard", "config.yaml")
	if fileExists(path) {
		return path
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the available profile names, sorted
func (c *Config) ListProfiles() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if p, ok := c.Profiles[name]; ok {
		return &p
	}
	return nil
}

// ApplyProfile folds the named profile into the configuration and validates
// the result.
func (c *Config) ApplyProfile(name string) error {
	p := c.GetProfile(name)
	if p == nil {
		return fmt.Errorf("%w: unknown profile %q", ErrInvalidConfig, name)
	}
	if p.RedactThreshold != nil {
		c.Ensemble.RedactThreshold = *p.RedactThreshold
	}
	if p.SkipThreshold != nil {
		c.Ensemble.SkipThreshold = *p.SkipThreshold
	}
	if p.Strategy != "" {
		c.Ensemble.Strategy = ensemble.Strategy(p.Strategy)
	}
	if p.Style != "" {
		c.Redaction.Style = p.Style
	}
	if len(p.Detectors) > 0 {
		c.Detectors.Enabled = p.Detectors
	}
	return ValidateConfig(c)
}
