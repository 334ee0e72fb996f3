package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	assert.Equal(t, DefaultStartupTimeout, cfg.StartupTimeout())
	assert.Equal(t, DefaultDeadProcessTimeout, cfg.DeadProcessTimeout())
	assert.Equal(t, DefaultInteractiveStallTimeout, cfg.InteractiveStallTimeout())
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval())
	assert.Equal(t, "", cfg.BackendBinary("claude"))
}

func TestDefaults_NilConfig(t *testing.T) {
	var cfg *Config

	assert.Equal(t, DefaultStartupTimeout, cfg.StartupTimeout())
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval())
	assert.Equal(t, "", cfg.BackendBinary("claude"))
}

func TestUnmarshalYAML(t *testing.T) {
	raw := `
timing:
  startup_timeout: 60s
  dead_process_timeout: 5s
  interactive_stall_timeout: 1m
  poll_interval: 250ms
backends:
  claude:
    binary: /usr/local/bin/claude
  opencode:
    binary: /home/u/.opencode/bin/opencode
debug: true
stream_debug: true
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, 60*time.Second, cfg.StartupTimeout())
	assert.Equal(t, 5*time.Second, cfg.DeadProcessTimeout())
	assert.Equal(t, time.Minute, cfg.InteractiveStallTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, "/usr/local/bin/claude", cfg.BackendBinary("claude"))
	assert.Equal(t, "/home/u/.opencode/bin/opencode", cfg.BackendBinary("opencode"))
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.StreamDebug)
	require.NoError(t, cfg.Validate())
}

func TestUnmarshalYAML_PartialTiming(t *testing.T) {
	raw := `
timing:
  poll_interval: 50ms
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval())
	// Unset timings fall back to defaults.
	assert.Equal(t, DefaultStartupTimeout, cfg.StartupTimeout())
}

func TestUnmarshalYAML_InvalidDuration(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte("timing:\n  poll_interval: banana\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banana")
}

func TestValidate_RejectsNonPositive(t *testing.T) {
	cfg := &Config{
		Timing: TimingConfig{
			PollInterval: &Duration{Duration: -time.Second},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestDurationMarshalRoundTrip(t *testing.T) {
	d := Duration{Duration: 90 * time.Second}
	data, err := yaml.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", string(data))

	var back Duration
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, d.Duration, back.Duration)
}
