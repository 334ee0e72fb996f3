// Package process provides OS-level utilities for detached agent CLI
// processes: PID liveness, kill, and orphan discovery/cleanup.
package process

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	tailrunexec "github.com/zhubert/tailrun/exec"
	"github.com/zhubert/tailrun/logger"
)

// Kill force-terminates a process by PID. Best-effort: the caller does not
// wait for the kill to be observed, and a rejected signal is not retried.
func Kill(pid int) error {
	switch runtime.GOOS {
	case "darwin", "linux":
		cmd := exec.Command("kill", "-9", strconv.Itoa(pid))
		return cmd.Run()
	case "windows":
		cmd := exec.Command("taskkill", "/F", "/PID", strconv.Itoa(pid))
		return cmd.Run()
	}
	return nil
}

// AgentProcess represents a running detached agent CLI process found on the
// system.
type AgentProcess struct {
	PID     int    // Process ID
	Command string // Full command line
}

// agentPgrepPattern matches the detached agent CLIs tailrun launches. Both
// backends carry a session flag on their command line (--session-id for
// claude, --session for opencode resumption), which is also how orphans are
// attributed to sessions.
const agentPgrepPattern = `(claude|opencode).*--(session-id|session|print|format)`

// FindAgentProcesses finds running detached agent CLI processes. Useful for
// detecting orphans left behind after a crash of the embedding application.
func FindAgentProcesses(ctx context.Context, executor tailrunexec.CommandExecutor) ([]AgentProcess, error) {
	var processes []AgentProcess
	log := logger.WithComponent("process")

	switch runtime.GOOS {
	case "darwin", "linux":
		output, err := executor.Output(ctx, "", "pgrep", "-f", agentPgrepPattern)
		if err != nil {
			// pgrep returns exit code 1 if no processes found
			if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
				return processes, nil
			}
			return nil, err
		}

		pids := strings.Fields(string(output))
		for _, pidStr := range pids {
			pid, err := strconv.Atoi(strings.TrimSpace(pidStr))
			if err != nil {
				continue
			}

			// Get the full command line for this PID
			psOutput, err := executor.Output(ctx, "", "ps", "-p", pidStr, "-o", "args=")
			if err != nil {
				continue
			}

			processes = append(processes, AgentProcess{
				PID:     pid,
				Command: strings.TrimSpace(string(psOutput)),
			})
		}

	case "windows":
		// Agents run inside WSL on Windows; their PIDs are not observable
		// from the host, so there is nothing to discover here.
		return processes, nil
	}

	log.Debug("found agent processes", "count", len(processes))
	return processes, nil
}

// extractSessionID extracts the session ID from an agent CLI command line.
func extractSessionID(cmdLine string) string {
	// Look for the session flag followed by the ID
	patterns := []string{"--session-id", "--session", "--resume"}
	for _, pattern := range patterns {
		_, after, ok := strings.Cut(cmdLine, pattern)
		if !ok {
			continue
		}

		rest := strings.TrimLeft(after, " =")

		// Extract the session ID (first space-separated token). A token
		// starting with "-" is the next flag, not a value.
		fields := strings.Fields(rest)
		if len(fields) > 0 && !strings.HasPrefix(fields[0], "-") {
			return fields[0]
		}
	}
	return ""
}

// FindOrphanedAgentProcesses finds agent processes whose session IDs aren't
// in the provided set of known session IDs.
func FindOrphanedAgentProcesses(ctx context.Context, executor tailrunexec.CommandExecutor, knownSessionIDs map[string]bool) ([]AgentProcess, error) {
	allProcesses, err := FindAgentProcesses(ctx, executor)
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("process")
	var orphans []AgentProcess
	for _, proc := range allProcesses {
		sessionID := extractSessionID(proc.Command)
		if sessionID != "" && !knownSessionIDs[sessionID] {
			orphans = append(orphans, proc)
			log.Info("found orphaned agent process", "pid", proc.PID, "sessionID", sessionID)
		}
	}

	return orphans, nil
}

// CleanupOrphanedProcesses kills all agent processes that don't match known
// session IDs. Returns the number of processes killed.
func CleanupOrphanedProcesses(ctx context.Context, executor tailrunexec.CommandExecutor, knownSessionIDs map[string]bool) (int, error) {
	orphans, err := FindOrphanedAgentProcesses(ctx, executor, knownSessionIDs)
	if err != nil {
		return 0, err
	}

	log := logger.WithComponent("process")
	killed := 0
	for _, proc := range orphans {
		log.Info("killing orphaned agent process", "pid", proc.PID)
		if err := Kill(proc.PID); err != nil {
			log.Error("failed to kill process", "pid", proc.PID, "error", err)
			continue
		}
		killed++
	}

	return killed, nil
}
