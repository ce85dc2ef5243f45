// Package config loads the two configuration files the CLI consumes: the
// run config (YAML) describing one benchmark run, and the providers file
// (TOML) listing the providers of a comparison.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig describes one benchmark run.
type RunConfig struct {
	Provider     string         `yaml:"provider"`
	ProviderKind string         `yaml:"provider_kind"`
	Config       map[string]any `yaml:"config"`
	DatasetPath  string         `yaml:"dataset_path"`
	TopK         int            `yaml:"top_k"`
	OutputDir    string         `yaml:"output_dir"`
	SkipIngest   bool           `yaml:"skip_ingest"`
	PreindexOnce bool           `yaml:"preindex_once"`
	FailFast     bool           `yaml:"fail_fast"`
	Limit        *int           `yaml:"limit"`
	SampleSize   *int           `yaml:"sample_size"`
	SampleSeed   *int64         `yaml:"sample_seed"`
}

// DefaultRunConfig returns a RunConfig with default values.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ProviderKind: "subprocess",
		TopK:         10,
		OutputDir:    "artifacts",
	}
}

// LoadRunConfig loads and parses a run config YAML file.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading run config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing run config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.ProviderKind == "" {
		cfg.ProviderKind = "subprocess"
	}
	if cfg.TopK == 0 {
		cfg.TopK = 10
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "artifacts"
	}
	if cfg.Provider == "" {
		cfg.Provider = cfg.ProviderKind
	}

	if cfg.DatasetPath == "" {
		return cfg, fmt.Errorf("run config: 'dataset_path' is required")
	}
	if cfg.TopK < 0 {
		return cfg, fmt.Errorf("run config: 'top_k' must be > 0, got %d", cfg.TopK)
	}

	return cfg, nil
}
