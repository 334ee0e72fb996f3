package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	Reset()
	t.Cleanup(Reset)
	return home
}

func TestFreshInstall_DefaultsToLegacy(t *testing.T) {
	home := setupHome(t)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tailrun"), dir)
	assert.True(t, IsLegacyLayout())

	dataDir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, dataDir)
}

func TestLegacyDirWins(t *testing.T) {
	home := setupHome(t)
	legacy := filepath.Join(home, ".tailrun")
	require.NoError(t, os.MkdirAll(legacy, 0755))

	// Legacy layout is used even when XDG vars are set.
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg-config"))
	Reset()

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, legacy, dir)
	assert.True(t, IsLegacyLayout())
}

func TestXDGLayout(t *testing.T) {
	home := setupHome(t)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	Reset()

	configDir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cfg", "tailrun"), configDir)

	dataDir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "tailrun"), dataDir)

	stateDir, err := StateDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "state", "tailrun"), stateDir)

	assert.False(t, IsLegacyLayout())
}

func TestXDGPartial_FillsDefaults(t *testing.T) {
	home := setupHome(t)
	// One XDG var set selects the XDG layout; unset vars get the standard
	// XDG default locations.
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "cfg"))
	Reset()

	dataDir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "tailrun"), dataDir)

	stateDir, err := StateDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "state", "tailrun"), stateDir)
}

func TestDerivedPaths(t *testing.T) {
	home := setupHome(t)

	configFile, err := ConfigFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tailrun", "config.yaml"), configFile)

	runsDir, err := RunsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tailrun", "runs"), runsDir)

	logsDir, err := LogsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tailrun", "logs"), logsDir)
}

func TestResolutionIsCached(t *testing.T) {
	home := setupHome(t)

	first, err := ConfigDir()
	require.NoError(t, err)

	// Changing the environment without Reset does not change resolution.
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "other"))
	second, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
