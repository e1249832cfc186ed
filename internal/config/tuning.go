package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TuningConfig holds the knobs of the pattern trie's convergence and
// description algorithms. anomaly.New applies ConvergeThreshold and the
// extra calendar words; the Descript* fields are loaded but not applied,
// since Describe always uses the pattern trie's built-in budgets (the same
// values as DefaultTuningConfig). Zero values are not safe defaults for
// every field, so callers that load a partial file should start from
// DefaultTuningConfig and override.
type TuningConfig struct {
	ConvergeThreshold               int      `yaml:"converge_threshold"`
	DescriptTimeBudgetSeconds       int      `yaml:"descript_time_budget_seconds"`
	DescriptNestingMatchesThreshold int      `yaml:"descript_nesting_matches_threshold"`
	DescriptLimitRedundants         int      `yaml:"descript_limit_redundants"`
	DescriptLimitMisses             int      `yaml:"descript_limit_misses"`
	ExtraCalendarWeekdays           []string `yaml:"extra_calendar_weekdays"`
	ExtraCalendarMonths             []string `yaml:"extra_calendar_months"`
}

// DescriptTimeBudget returns the configured description time budget as a
// time.Duration.
func (c TuningConfig) DescriptTimeBudget() time.Duration {
	return time.Duration(c.DescriptTimeBudgetSeconds) * time.Second
}

// DefaultTuningConfig returns the tuning defaults used when no config file
// is present, matching the pattern trie's own internal defaults.
func DefaultTuningConfig() TuningConfig {
	return TuningConfig{
		ConvergeThreshold:               2,
		DescriptTimeBudgetSeconds:       5,
		DescriptNestingMatchesThreshold: 2,
		DescriptLimitRedundants:         8,
		DescriptLimitMisses:             8,
	}
}

// LoadTuningConfig loads a TuningConfig from a YAML file, starting from
// DefaultTuningConfig so that a file which only overrides a few fields still
// ends up with sane values for the rest.
func LoadTuningConfig(filepath string) (TuningConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return TuningConfig{}, fmt.Errorf("reading tuning config file: %w", err)
	}

	cfg := DefaultTuningConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return TuningConfig{}, fmt.Errorf("parsing tuning config YAML: %w", err)
	}

	return cfg, nil
}
