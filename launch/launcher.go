package launch

import (
	"bufio"
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zhubert/tailrun/exec"
	"github.com/zhubert/tailrun/logger"
)

// Launcher spawns a detached agent process for a spec. Two implementations
// exist: UnixLauncher runs the built shell command natively, WSLLauncher
// bridges into WSL on hosts where the CLIs only run inside it. Selection
// happens once at startup via Detect, not per call site.
type Launcher interface {
	Launch(ctx context.Context, spec *Spec) (Handle, error)
}

// Detect returns the launcher for the current platform.
func Detect() Launcher {
	if runtime.GOOS == "windows" {
		return NewWSLLauncher()
	}
	return NewUnixLauncher(exec.GetDefaultExecutor())
}

// UnixLauncher spawns detached processes through sh on the native OS.
type UnixLauncher struct {
	executor exec.CommandExecutor
}

// NewUnixLauncher creates a UnixLauncher using the given executor.
func NewUnixLauncher(executor exec.CommandExecutor) *UnixLauncher {
	return &UnixLauncher{executor: executor}
}

// Launch runs the built shell command. The shell backgrounds the agent and
// echoes its PID as the sole line of output; the shell itself returns
// immediately. Reading zero lines or a non-numeric token is a launch
// failure, as is a non-zero shell status; in that case the shell's stderr
// is folded into the error.
func (l *UnixLauncher) Launch(ctx context.Context, spec *Spec) (Handle, error) {
	if err := spec.validate(); err != nil {
		return Handle{}, err
	}

	log := logger.WithComponent("launch")
	shellCmd := BuildShellCommand(spec)
	log.Debug("spawning detached agent", "command", shellCmd, "workingDir", spec.WorkingDir)

	stdout, stderr, err := l.executor.Run(ctx, spec.WorkingDir, "sh", "-c", shellCmd)
	if err != nil {
		return Handle{}, fmt.Errorf("shell command failed: %w (stderr: %s)", err, strings.TrimSpace(string(stderr)))
	}

	pid, err := parsePIDLine(stdout)
	if err != nil {
		return Handle{}, err
	}

	log.Info("detached agent spawned", "pid", pid)
	return Handle{PID: pid, StartedAt: time.Now()}, nil
}

// parsePIDLine reads exactly one line of shell output as the background PID.
func parsePIDLine(stdout []byte) (int, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(stdout)))
	if !scanner.Scan() {
		return 0, fmt.Errorf("shell produced no PID line")
	}
	pidStr := strings.TrimSpace(scanner.Text())
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse PID %q: %w", pidStr, err)
	}
	return pid, nil
}
