// tailrun launches a detached AI agent CLI run, tails its JSONL output,
// and prints the normalized event stream as JSON lines on stdout.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zhubert/tailrun/chat"
	"github.com/zhubert/tailrun/claude"
	"github.com/zhubert/tailrun/config"
	"github.com/zhubert/tailrun/launch"
	"github.com/zhubert/tailrun/logger"
	"github.com/zhubert/tailrun/opencode"
	"github.com/zhubert/tailrun/paths"
	"github.com/zhubert/tailrun/process"
	"github.com/zhubert/tailrun/registry"
	"github.com/zhubert/tailrun/runner"

	tailrunexec "github.com/zhubert/tailrun/exec"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "tailrun",
	Short: "Run AI agent CLIs detached and stream their output as events",
	Long: `tailrun spawns an agent CLI (claude, opencode) as a detached process,
tails the JSONL file it appends to, and normalizes each backend's output
into a canonical event stream printed as JSON lines.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetDebug(debugFlag)
	},
}

var (
	runBackend  string
	runBinary   string
	runDir      string
	runPrompt   string
	runInput    string
	runOutput   string
	runSession  string
	runWorktree string
	runEnv      []string
)

var runCmd = &cobra.Command{
	Use:   "run [-- backend args...]",
	Short: "Launch one detached agent run and stream its events",
	Long: `Launch one detached agent run and supervise it to completion.

The prompt is piped to the CLI on stdin via an input file. Arguments after
-- are passed to the backend binary unchanged. Events are printed to stdout
as JSON lines of the form {"channel": ..., "payload": ...}.`,
	RunE: runRun,
}

var (
	cleanupKill bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Find (and optionally kill) orphaned agent processes",
	RunE:  runCleanup,
}

var logsClearCmd = &cobra.Command{
	Use:   "clear-logs",
	Short: "Remove tailrun log files, including per-session stream logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := logger.ClearLogs()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d log file(s)\n", count)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	runCmd.Flags().StringVar(&runBackend, "backend", "claude", "backend kind (claude, opencode)")
	runCmd.Flags().StringVar(&runBinary, "bin", "", "backend binary path (default: config override, else the backend name)")
	runCmd.Flags().StringVar(&runDir, "dir", ".", "working directory for the agent")
	runCmd.Flags().StringVar(&runPrompt, "prompt", "", "prompt text piped to the agent's stdin")
	runCmd.Flags().StringVar(&runInput, "input", "", "existing input file piped to the agent's stdin (overrides --prompt)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output file the agent appends to (default: runs dir)")
	runCmd.Flags().StringVar(&runSession, "session", "", "session id (default: generated)")
	runCmd.Flags().StringVar(&runWorktree, "worktree", "", "worktree id attached to emitted events")
	runCmd.Flags().StringArrayVar(&runEnv, "env", nil, "environment pair KEY=VALUE for the agent (repeatable)")

	cleanupCmd.Flags().BoolVar(&cleanupKill, "kill", false, "kill the discovered processes instead of listing them")

	rootCmd.AddCommand(runCmd, cleanupCmd, logsClearCmd)
}

func main() {
	defer logger.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Debug {
		logger.SetDebug(true)
	}

	normalizer, err := normalizerFor(runBackend)
	if err != nil {
		return err
	}

	sessionID := runSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	binary := runBinary
	if binary == "" {
		binary = cfg.BackendBinary(runBackend)
	}
	if binary == "" {
		binary = runBackend
	}

	workingDir, err := filepath.Abs(runDir)
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	runsDir, err := paths.RunsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	inputFile := runInput
	if inputFile == "" {
		inputFile = filepath.Join(runsDir, sessionID+".in")
		if err := launch.WriteInputFile(inputFile, runPrompt); err != nil {
			return err
		}
	}

	outputFile := runOutput
	if outputFile == "" {
		outputFile = filepath.Join(runsDir, sessionID+".jsonl")
	}

	env, err := parseEnvPairs(runEnv)
	if err != nil {
		return err
	}

	spec := &launch.Spec{
		BinaryPath: binary,
		Args:       args,
		Env:        env,
		WorkingDir: workingDir,
		InputFile:  inputFile,
		OutputFile: outputFile,
	}

	handle, err := launch.Detect().Launch(cmd.Context(), spec)
	if err != nil {
		return err
	}

	r := runner.New(cfg, registry.New(), &lineEmitter{out: cmd.OutOrStdout()})
	result, err := r.Run(cmd.Context(), runner.Request{
		SessionID:  sessionID,
		WorktreeID: runWorktree,
		Handle:     handle,
		OutputPath: outputFile,
		Normalizer: normalizer,
	})
	if err != nil {
		return err
	}

	return printResult(cmd, result)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	executor := tailrunexec.GetDefaultExecutor()

	if cleanupKill {
		count, err := process.CleanupOrphanedProcesses(cmd.Context(), executor, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "killed %d orphaned agent process(es)\n", count)
		return nil
	}

	procs, err := process.FindOrphanedAgentProcesses(cmd.Context(), executor, nil)
	if err != nil {
		return err
	}
	if len(procs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no orphaned agent processes found")
		return nil
	}
	for _, p := range procs {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", p.PID, p.Command)
	}
	return nil
}

func normalizerFor(kind string) (chat.Normalizer, error) {
	switch kind {
	case claude.Kind:
		return claude.New(), nil
	case opencode.Kind:
		return opencode.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want claude or opencode)", kind)
	}
}

func parseEnvPairs(pairs []string) ([]launch.EnvVar, error) {
	var env []launch.EnvVar
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid env pair %q (want KEY=VALUE)", pair)
		}
		env = append(env, launch.EnvVar{Key: key, Value: value})
	}
	return env, nil
}

func printResult(cmd *cobra.Command, result *chat.RunResult) error {
	data, err := json.Marshal(map[string]any{"channel": "result", "payload": result})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// lineEmitter prints each emitted event as one JSON line.
type lineEmitter struct {
	out io.Writer
}

func (e *lineEmitter) Emit(channel string, payload any) error {
	data, err := json.Marshal(map[string]any{"channel": channel, "payload": payload})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out, string(data))
	return err
}
