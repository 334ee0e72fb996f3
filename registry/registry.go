// Package registry tracks launched detached processes by session.
//
// The registry is the cancellation contract between supervision loops and
// the rest of the application: a supervision loop treats the absence of its
// session's entry as "someone asked this run to stop" and winds down on its
// next poll. There is no forced signal path through the registry itself;
// killing the process is a separate, explicit step using the stored PID.
package registry

import (
	"sync"

	"github.com/zhubert/tailrun/logger"
	"github.com/zhubert/tailrun/process"
)

// Registry is a mutex-guarded session→PID map shared by all supervision
// loops. Construct one per application and inject it into every Runner.
type Registry struct {
	mu   sync.Mutex
	pids map[string]int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{pids: make(map[string]int)}
}

// Register records the PID for a session. Registering an already-registered
// session replaces its mapping.
func (r *Registry) Register(sessionID string, pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pids[sessionID] = pid
	logger.WithSession(sessionID).Debug("process registered", "pid", pid)
}

// Unregister removes the session's entry. Calling it for an unknown session
// is a no-op. Supervision loops interpret the absence as external
// cancellation.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pids[sessionID]; ok {
		delete(r.pids, sessionID)
		logger.WithSession(sessionID).Debug("process unregistered")
	}
}

// IsRunning reports whether the session still holds a registry entry. This
// expresses "has anyone asked to cancel", not OS-level liveness; use
// process.Alive for that.
func (r *Registry) IsRunning(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pids[sessionID]
	return ok
}

// PID returns the registered PID for a session, or false when absent.
func (r *Registry) PID(sessionID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid, ok := r.pids[sessionID]
	return pid, ok
}

// Sessions returns the set of currently registered session IDs. Used by
// orphan cleanup to decide which discovered processes are still owned.
func (r *Registry) Sessions() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.pids))
	for id := range r.pids {
		out[id] = true
	}
	return out
}

// Kill cancels a session and force-terminates its process when the PID is
// trackable. The supervision loop observes the unregister within one poll
// interval; the kill is best-effort and not waited on.
func (r *Registry) Kill(sessionID string) {
	r.mu.Lock()
	pid, ok := r.pids[sessionID]
	delete(r.pids, sessionID)
	r.mu.Unlock()

	if !ok {
		return
	}

	log := logger.WithSession(sessionID)
	log.Info("cancelling session", "pid", pid)
	if pid > 0 {
		if err := process.Kill(pid); err != nil {
			log.Warn("failed to kill process", "pid", pid, "error", err)
		}
	}
}
