package registry

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhubert/tailrun/logger"
	"github.com/zhubert/tailrun/paths"
)

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "tailrun-registry-test-*")
	if err != nil {
		os.Exit(1)
	}
	os.Setenv("HOME", tmp)
	os.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	paths.Reset()
	logger.Reset()

	code := m.Run()

	logger.Close()
	os.RemoveAll(tmp)
	os.Exit(code)
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()

	assert.False(t, r.IsRunning("s1"))

	r.Register("s1", 100)
	assert.True(t, r.IsRunning("s1"))

	pid, ok := r.PID("s1")
	assert.True(t, ok)
	assert.Equal(t, 100, pid)

	_, ok = r.PID("unknown")
	assert.False(t, ok)
}

func TestRegister_ReplacesExisting(t *testing.T) {
	r := New()
	r.Register("s1", 100)
	r.Register("s1", 200)

	pid, ok := r.PID("s1")
	assert.True(t, ok)
	assert.Equal(t, 200, pid)
}

func TestUnregister_Idempotent(t *testing.T) {
	r := New()
	r.Register("s1", 100)

	r.Unregister("s1")
	assert.False(t, r.IsRunning("s1"))

	// Second call is a no-op, as is unregistering a never-registered session.
	r.Unregister("s1")
	r.Unregister("never-registered")
	assert.False(t, r.IsRunning("s1"))
}

func TestSessions(t *testing.T) {
	r := New()
	r.Register("s1", 100)
	r.Register("s2", 200)

	sessions := r.Sessions()
	assert.Equal(t, map[string]bool{"s1": true, "s2": true}, sessions)

	// The snapshot is a copy; mutating it does not touch the registry.
	delete(sessions, "s1")
	assert.True(t, r.IsRunning("s1"))
}

func TestKill_UntrackablePID(t *testing.T) {
	r := New()
	r.Register("s1", 0)

	// PID 0 is the untrackable sentinel; Kill only unregisters.
	r.Kill("s1")
	assert.False(t, r.IsRunning("s1"))
}

func TestKill_UnknownSession(t *testing.T) {
	r := New()
	r.Kill("never-registered")
	assert.False(t, r.IsRunning("never-registered"))
}

func TestConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := string(rune('a' + i%26))
		go func(id string) {
			defer wg.Done()
			r.Register(id, 1)
			r.IsRunning(id)
		}(id)
		go func(id string) {
			defer wg.Done()
			r.Unregister(id)
			r.Sessions()
		}(id)
	}
	wg.Wait()
}
