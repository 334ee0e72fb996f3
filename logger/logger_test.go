package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhubert/tailrun/paths"
)

func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	paths.Reset()
	Reset()
	t.Cleanup(func() {
		Reset()
		paths.Reset()
	})
	return home
}

func TestInitAndWrite(t *testing.T) {
	home := setup(t)
	logPath := filepath.Join(home, "logs", "tailrun.log")

	require.NoError(t, Init(logPath))
	Get().Info("run started", "backend", "claude")
	Close()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run started")
	assert.Contains(t, string(data), "backend=claude")
}

func TestInit_Idempotent(t *testing.T) {
	home := setup(t)
	first := filepath.Join(home, "a.log")
	second := filepath.Join(home, "b.log")

	require.NoError(t, Init(first))
	require.NoError(t, Init(second))
	Get().Info("only in first")
	Close()

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(data), "only in first")

	_, err = os.Stat(second)
	assert.True(t, os.IsNotExist(err))
}

func TestWithSessionAttachesField(t *testing.T) {
	home := setup(t)
	logPath := filepath.Join(home, "session.log")
	require.NoError(t, Init(logPath))

	WithSession("sess-42").Info("polled")
	WithComponent("launch").Info("spawned")
	Close()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sessionID=sess-42")
	assert.Contains(t, string(data), "component=launch")
}

func TestSetDebug(t *testing.T) {
	home := setup(t)
	logPath := filepath.Join(home, "debug.log")
	require.NoError(t, Init(logPath))

	Get().Debug("hidden")
	SetDebug(true)
	Get().Debug("visible")
	SetDebug(false)
	Close()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestStreamLogPath(t *testing.T) {
	setup(t)

	path, err := StreamLogPath("sess-9")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, filepath.Join("logs", "stream-sess-9.log")), path)
}

func TestClearLogs(t *testing.T) {
	setup(t)

	logsDir, err := paths.LogsDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(logsDir, 0755))

	mainLog, err := DefaultLogPath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mainLog, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, "stream-a.log"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, "stream-b.log"), []byte("x"), 0644))

	count, err := ClearLogs()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = os.Stat(mainLog)
	assert.True(t, os.IsNotExist(err))
}
