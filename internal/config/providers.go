package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ProviderEntry is one provider in a comparison. The config table is passed
// to the adapter verbatim; the core never interprets it.
type ProviderEntry struct {
	Name       string         `toml:"name"`
	Kind       string         `toml:"kind"`
	TimeoutSec float64        `toml:"timeout_sec"`
	Config     map[string]any `toml:"config"`
}

// ProvidersConfig is the providers TOML file for multi-provider comparisons.
type ProvidersConfig struct {
	Providers []ProviderEntry `toml:"provider"`
}

// LoadProviders loads and parses a providers TOML file.
func LoadProviders(path string) (ProvidersConfig, error) {
	var cfg ProvidersConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading providers config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing providers config: %w", err)
	}

	if len(cfg.Providers) == 0 {
		return cfg, fmt.Errorf("providers config: at least one [[provider]] entry is required")
	}

	seen := make(map[string]bool, len(cfg.Providers))
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Kind == "" {
			return cfg, fmt.Errorf("provider[%d]: 'kind' is required", i)
		}
		if p.Name == "" {
			p.Name = p.Kind
		}
		if p.TimeoutSec < 0 {
			return cfg, fmt.Errorf("provider[%d] (%s): 'timeout_sec' must be >= 0", i, p.Name)
		}
		if seen[p.Name] {
			return cfg, fmt.Errorf("provider[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = true
	}

	return cfg, nil
}
