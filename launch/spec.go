// Package launch builds and spawns fully detached agent CLI processes.
//
// A detached run survives the parent exiting: the CLI reads its prompt from
// an input file over a pipe, appends its stream output to a JSONL file, and
// is immune to hangup signals. The caller tails the output file for progress
// and uses the returned PID (when trackable) for liveness checks.
package launch

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvVar is one environment variable override for the launched binary.
// Overrides are ordered so the built shell command is deterministic.
type EnvVar struct {
	Key   string
	Value string
}

// Spec describes one detached subprocess invocation. It is immutable after
// construction; the launcher never mutates it.
type Spec struct {
	// BinaryPath is the resolved CLI binary. Resolution (install, version,
	// auth) happens upstream; the launcher only runs what it is given.
	BinaryPath string
	// Args is the ordered CLI argument list.
	Args []string
	// Env holds environment overrides scoped to the binary only, not to
	// upstream pipe stages.
	Env []EnvVar
	// WorkingDir is the process working directory.
	WorkingDir string
	// InputFile holds the prompt payload, piped to stdin. The streaming modes
	// of these CLIs only accept piped stdin, not file redirection.
	InputFile string
	// OutputFile receives stdout and stderr, appended. The tailer reads it.
	OutputFile string
}

// Handle identifies a launched detached process.
type Handle struct {
	// PID is the platform-native process id, or UntrackablePID when process
	// identity is not observable from the host (WSL bridge). In that case
	// liveness must be inferred from output file activity.
	PID int
	// StartedAt is the launch timestamp.
	StartedAt time.Time
}

// UntrackablePID is the sentinel PID for processes whose identity cannot be
// observed from the host.
const UntrackablePID = 0

// Trackable reports whether the handle carries a real PID.
func (h Handle) Trackable() bool {
	return h.PID != UntrackablePID
}

// validate rejects specs whose paths or arguments cannot be represented in a
// shell command. NUL bytes are the one thing no quoting can carry.
func (s *Spec) validate() error {
	fields := map[string]string{
		"binary path":       s.BinaryPath,
		"working directory": s.WorkingDir,
		"input file":        s.InputFile,
		"output file":       s.OutputFile,
	}
	for name, v := range fields {
		if v == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
		if strings.ContainsRune(v, 0) {
			return fmt.Errorf("%s contains a NUL byte", name)
		}
	}
	for _, arg := range s.Args {
		if strings.ContainsRune(arg, 0) {
			return fmt.Errorf("argument contains a NUL byte")
		}
	}
	for _, ev := range s.Env {
		if strings.ContainsRune(ev.Key, 0) || strings.ContainsRune(ev.Value, 0) {
			return fmt.Errorf("environment variable contains a NUL byte")
		}
	}
	return nil
}

// WriteInputFile writes the prompt payload for a run with a trailing newline.
// The file is user-only: prompts routinely contain private context.
func WriteInputFile(path, payload string) error {
	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}
	if err := os.WriteFile(path, []byte(payload), 0600); err != nil {
		return fmt.Errorf("failed to write input file: %w", err)
	}
	return nil
}
