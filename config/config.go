// Package config provides tailrun's application configuration.
// Configuration is read from config.yaml in the tailrun config directory
// and controls run supervision timing and per-backend binary overrides.
package config

import (
	"fmt"
	"time"
)

// Default supervision timing values. These match the behavior the detached
// runs were tuned for: a CLI may take a long time to produce its first line
// (startup), exits are detected quickly once output stops (dead process),
// and an alive-but-silent process is treated as blocked on stdin (stall).
const (
	DefaultStartupTimeout          = 120 * time.Second
	DefaultDeadProcessTimeout      = 2 * time.Second
	DefaultInteractiveStallTimeout = 30 * time.Second
	DefaultPollInterval            = 100 * time.Millisecond
)

// Config is the top-level tailrun configuration.
type Config struct {
	Timing   TimingConfig             `yaml:"timing,omitempty"`
	Backends map[string]BackendConfig `yaml:"backends,omitempty"`

	Debug       bool `yaml:"debug,omitempty"`        // Debug-level logging
	StreamDebug bool `yaml:"stream_debug,omitempty"` // Mirror raw stream lines to per-session logs
}

// TimingConfig holds the run supervision timeouts and polling cadence.
// Zero values mean "use the default".
type TimingConfig struct {
	StartupTimeout          *Duration `yaml:"startup_timeout,omitempty"`
	DeadProcessTimeout      *Duration `yaml:"dead_process_timeout,omitempty"`
	InteractiveStallTimeout *Duration `yaml:"interactive_stall_timeout,omitempty"`
	PollInterval            *Duration `yaml:"poll_interval,omitempty"`
}

// BackendConfig holds per-backend overrides.
type BackendConfig struct {
	Binary string `yaml:"binary,omitempty"` // Resolved CLI binary path override
}

// Duration is a wrapper around time.Duration that implements YAML unmarshaling
// from human-readable strings like "30s", "2m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// StartupTimeout returns the configured startup timeout or the default.
func (c *Config) StartupTimeout() time.Duration {
	if c != nil && c.Timing.StartupTimeout != nil {
		return c.Timing.StartupTimeout.Duration
	}
	return DefaultStartupTimeout
}

// DeadProcessTimeout returns the configured dead-process timeout or the default.
func (c *Config) DeadProcessTimeout() time.Duration {
	if c != nil && c.Timing.DeadProcessTimeout != nil {
		return c.Timing.DeadProcessTimeout.Duration
	}
	return DefaultDeadProcessTimeout
}

// InteractiveStallTimeout returns the configured stall timeout or the default.
func (c *Config) InteractiveStallTimeout() time.Duration {
	if c != nil && c.Timing.InteractiveStallTimeout != nil {
		return c.Timing.InteractiveStallTimeout.Duration
	}
	return DefaultInteractiveStallTimeout
}

// PollInterval returns the configured poll interval or the default.
func (c *Config) PollInterval() time.Duration {
	if c != nil && c.Timing.PollInterval != nil {
		return c.Timing.PollInterval.Duration
	}
	return DefaultPollInterval
}

// BackendBinary returns the configured binary override for a backend kind,
// or "" when the caller should resolve the binary itself.
func (c *Config) BackendBinary(kind string) string {
	if c == nil {
		return ""
	}
	return c.Backends[kind].Binary
}

// Validate checks the configuration for values that would break supervision.
func (c *Config) Validate() error {
	for name, d := range map[string]*Duration{
		"timing.startup_timeout":           c.Timing.StartupTimeout,
		"timing.dead_process_timeout":      c.Timing.DeadProcessTimeout,
		"timing.interactive_stall_timeout": c.Timing.InteractiveStallTimeout,
		"timing.poll_interval":             c.Timing.PollInterval,
	} {
		if d != nil && d.Duration <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d.Duration)
		}
	}
	return nil
}
