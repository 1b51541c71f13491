package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Override holds per-task-type tuning loaded from the worker file. Zero
// values (nil for LeaseExtend) leave the registered spec's value unchanged.
type Override struct {
	Concurrency         int
	PollInterval        time.Duration
	PollTimeout         time.Duration
	LeaseExtend         *bool
	LeaseExtendInterval time.Duration
}

type workerFile struct {
	Workers map[string]workerEntry `yaml:"workers"`
}

type workerEntry struct {
	Concurrency         int    `yaml:"concurrency"`
	PollInterval        string `yaml:"poll_interval"`
	PollTimeout         string `yaml:"poll_timeout"`
	LeaseExtend         *bool  `yaml:"lease_extend"`
	LeaseExtendInterval string `yaml:"lease_extend_interval"`
}

// LoadOverrides parses a YAML worker file mapping task types to tuning
// overrides. Durations use Go duration syntax ("250ms", "30s"). Malformed
// entries fail the whole load so misconfiguration surfaces at startup, not
// at poll time.
func LoadOverrides(path string) (map[string]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worker file: %w", err)
	}

	var f workerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse worker file: %w", err)
	}

	overrides := make(map[string]Override, len(f.Workers))
	for taskType, entry := range f.Workers {
		o := Override{
			Concurrency: entry.Concurrency,
			LeaseExtend: entry.LeaseExtend,
		}
		if o.PollInterval, err = parseOptionalDuration(entry.PollInterval); err != nil {
			return nil, fmt.Errorf("worker %q: poll_interval: %w", taskType, err)
		}
		if o.PollTimeout, err = parseOptionalDuration(entry.PollTimeout); err != nil {
			return nil, fmt.Errorf("worker %q: poll_timeout: %w", taskType, err)
		}
		if o.LeaseExtendInterval, err = parseOptionalDuration(entry.LeaseExtendInterval); err != nil {
			return nil, fmt.Errorf("worker %q: lease_extend_interval: %w", taskType, err)
		}
		if entry.Concurrency < 0 {
			return nil, fmt.Errorf("worker %q: concurrency must not be negative", taskType)
		}
		overrides[taskType] = o
	}
	return overrides, nil
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
