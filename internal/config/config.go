// Package config loads the engine's run settings from YAML. Every field
// has a working default so a missing file or an empty document is a valid
// configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"speclens/internal/synth"
)

// DefaultStepBudget bounds interpreter steps per trial.
const DefaultStepBudget = 10000

// Config is the engine's run configuration.
type Config struct {
	// Trials per unit.
	Trials int `yaml:"trials"`
	// Seed derives per-unit sequences; 0 means nondeterministic.
	Seed int64 `yaml:"seed"`
	// StepBudget bounds interpreter steps per trial; 0 means unlimited.
	StepBudget int `yaml:"step_budget"`
	// Parallel bounds concurrent file workers.
	Parallel int `yaml:"parallel"`
	// Store is the SQLite path for run history; empty disables the store.
	Store string `yaml:"store"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Trials:     synth.DefaultTrials,
		StepBudget: DefaultStepBudget,
		Parallel:   1,
	}
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings that would make a run meaningless.
func (c Config) Validate() error {
	if c.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", c.Trials)
	}
	if c.StepBudget < 0 {
		return fmt.Errorf("step_budget must not be negative, got %d", c.StepBudget)
	}
	if c.Parallel <= 0 {
		return fmt.Errorf("parallel must be positive, got %d", c.Parallel)
	}
	return nil
}
