package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultStartupTimeout, cfg.StartupTimeout())
}

func TestLoadFile_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "timing:\n  startup_timeout: 30s\nbackends:\n  claude:\n    binary: /opt/claude\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.StartupTimeout())
	assert.Equal(t, "/opt/claude", cfg.BackendBinary("claude"))
}

func TestLoadFile_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timing: [broken"), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadFile_InvalidTiming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timing:\n  poll_interval: 0s\n"), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}
