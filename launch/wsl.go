package launch

import (
	"context"
	"fmt"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/zhubert/tailrun/logger"
)

// WSLLauncher spawns detached processes inside WSL from a Windows host.
// It is used when the agent CLI is installed in WSL's native filesystem and
// cannot run on the host directly.
//
// The spec's BinaryPath must already be a WSL path (the CLI lives inside
// WSL); input, output, and working directory are host paths and get
// translated. Process identity inside WSL is not observable from the host,
// so Launch returns UntrackablePID and liveness must be inferred from output
// file activity.
type WSLLauncher struct {
	// lookPath is swappable for tests; defaults to exec.LookPath.
	lookPath func(file string) (string, error)
}

// NewWSLLauncher creates a WSLLauncher.
func NewWSLLauncher() *WSLLauncher {
	return &WSLLauncher{lookPath: osexec.LookPath}
}

// Available reports whether the WSL environment can be reached.
func (l *WSLLauncher) Available() bool {
	_, err := l.lookPath("wsl")
	return err == nil
}

// Launch spawns the agent inside WSL:
//
//	wsl -e nohup bash -c "cd <wd> && cat <in> | [env] <cli> <args> >> <out> 2>&1"
//
// nohup sits in front of bash so the agent survives wsl.exe exiting.
func (l *WSLLauncher) Launch(ctx context.Context, spec *Spec) (Handle, error) {
	if err := spec.validate(); err != nil {
		return Handle{}, err
	}

	if !l.Available() {
		return Handle{}, fmt.Errorf("WSL is required on Windows to run agent CLIs. Install with: wsl --install")
	}

	inner := buildWSLCommand(spec)

	log := logger.WithComponent("launch")
	log.Debug("spawning detached agent via WSL", "command", inner)

	cmd := osexec.CommandContext(ctx, "wsl", "-e", "nohup", "bash", "-c", inner)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setNoWindow(cmd)

	if err := cmd.Start(); err != nil {
		return Handle{}, fmt.Errorf("failed to spawn WSL: %w", err)
	}

	// wsl.exe exits once nohup has detached the agent; reap it so it doesn't
	// linger as a zombie. The agent keeps running inside WSL.
	go func() { _ = cmd.Wait() }()

	log.Info("detached agent spawned via WSL", "hostPID", cmd.Process.Pid)
	return Handle{PID: UntrackablePID, StartedAt: time.Now()}, nil
}

// buildWSLCommand builds the command string run by bash inside WSL. The
// working directory is entered with cd because wsl.exe does not forward a
// host working directory into the distro.
func buildWSLCommand(spec *Spec) string {
	var b strings.Builder

	b.WriteString("cd ")
	b.WriteString(Escape(WindowsToWSLPath(spec.WorkingDir)))
	b.WriteString(" && cat ")
	b.WriteString(Escape(WindowsToWSLPath(spec.InputFile)))
	b.WriteString(" | ")

	for _, ev := range spec.Env {
		b.WriteString(ev.Key)
		b.WriteString("=")
		b.WriteString(Escape(ev.Value))
		b.WriteString(" ")
	}

	// BinaryPath is already WSL-native, no translation.
	b.WriteString(Escape(spec.BinaryPath))
	for _, arg := range spec.Args {
		b.WriteString(" ")
		b.WriteString(Escape(arg))
	}

	b.WriteString(" >> ")
	b.WriteString(Escape(WindowsToWSLPath(spec.OutputFile)))
	b.WriteString(" 2>&1")

	return b.String()
}

// WindowsToWSLPath translates a Windows host path to its WSL mount point:
// C:\Users\me becomes /mnt/c/Users/me. Paths without a drive prefix only get
// their separators normalized.
func WindowsToWSLPath(path string) string {
	normalized := strings.ReplaceAll(path, `\`, "/")
	if len(normalized) >= 2 && normalized[1] == ':' {
		drive := strings.ToLower(normalized[:1])
		rest := normalized[2:]
		if !strings.HasPrefix(rest, "/") {
			rest = "/" + rest
		}
		return "/mnt/" + drive + rest
	}
	return normalized
}
