// Package runner supervises one detached agent run from launch to a
// terminal outcome.
//
// A Runner binds the output-file tailer, the process registry, the
// OS-level liveness check, and a backend normalizer into a single-threaded
// polling loop: each iteration drains newly appended lines, feeds them to
// the normalizer, emits the resulting canonical events in line order, then
// evaluates exit conditions in a fixed priority order (completion, external
// cancellation, dead process, interactive stall, startup timeout) before
// sleeping a fixed interval. Multiple runs may execute concurrently, one
// loop each, sharing only the registry.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/zhubert/tailrun/chat"
	"github.com/zhubert/tailrun/config"
	"github.com/zhubert/tailrun/launch"
	"github.com/zhubert/tailrun/logger"
	"github.com/zhubert/tailrun/process"
	"github.com/zhubert/tailrun/registry"
	"github.com/zhubert/tailrun/tail"
)

// fallbackQuestion is used when a stall is detected before any text arrived
// that could serve as the question.
const fallbackQuestion = "The agent appears to be waiting for input."

// startupProgressInterval controls how often the loop logs while still
// waiting for first output.
const startupProgressInterval = 10 * time.Second

// Request describes one run to supervise. The process has already been
// launched; the caller hands over its handle and the output file it appends
// to.
type Request struct {
	SessionID  string
	WorktreeID string
	Handle     launch.Handle
	OutputPath string
	Normalizer chat.Normalizer
}

// Runner supervises detached agent runs. Construct one per application and
// reuse it across runs; it holds no per-run state.
type Runner struct {
	cfg      *config.Config
	registry *registry.Registry
	emitter  chat.Emitter

	// alive and kill are injectable for tests; they default to the
	// OS-backed implementations.
	alive func(pid int) bool
	kill  func(pid int) error
}

// New creates a Runner using OS-backed liveness and kill.
func New(cfg *config.Config, reg *registry.Registry, emitter chat.Emitter) *Runner {
	return &Runner{
		cfg:      cfg,
		registry: reg,
		emitter:  emitter,
		alive:    process.Alive,
		kill:     process.Kill,
	}
}

// Run supervises the launched process until a terminal state and returns the
// accumulated result. The session is registered on entry; every terminal
// state except a stall unregisters it. The returned result is non-nil for
// every terminal state; the error is non-nil only for invalid requests and
// unrecoverable tail failures.
func (r *Runner) Run(ctx context.Context, req Request) (*chat.RunResult, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if req.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if req.Normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}

	log := logger.WithSession(req.SessionID)
	kind := req.Normalizer.Kind()
	log.Info("supervising run", "backend", kind, "pid", req.Handle.PID, "output", req.OutputPath)

	r.registry.Register(req.SessionID, req.Handle.PID)

	streamLog := r.openStreamLog(req.SessionID)
	if streamLog != nil {
		defer streamLog.Close()
	}

	tailer := tail.New(req.OutputPath)
	st := &chat.State{}

	start := time.Now()
	lastOutput := start
	lastProgress := start
	receivedOutput := false

	for {
		lines, err := tailer.Poll()
		if err != nil {
			log.Error("failed to read output file", "error", err)
			r.emit(req, chat.Event{}, chat.ChannelError, chat.ErrorEvent{
				SessionID:  req.SessionID,
				WorktreeID: req.WorktreeID,
				Error:      err.Error(),
			})
			r.emitDone(req)
			r.registry.Unregister(req.SessionID)
			return st.Result(false), fmt.Errorf("failed to read output file: %w", err)
		}

		if len(lines) > 0 {
			receivedOutput = true
			lastOutput = time.Now()
		}

		for _, line := range lines {
			if streamLog != nil {
				fmt.Fprintln(streamLog, line)
			}
			for _, ev := range req.Normalizer.ParseLine(line, st) {
				r.emitEvent(req, ev)
			}
		}

		// Exit conditions, checked in priority order. Ties break toward
		// the earliest check.
		if st.Completed {
			log.Info("run completed", "toolCalls", len(st.ToolCalls))
			r.registry.Unregister(req.SessionID)
			r.emitDone(req)
			return st.Result(false), nil
		}

		if !r.registry.IsRunning(req.SessionID) {
			log.Info("run cancelled externally")
			return st.Result(true), nil
		}

		alive := r.isAlive(req.Handle)
		silence := time.Since(lastOutput)

		if receivedOutput && !alive && silence > r.cfg.DeadProcessTimeout() {
			r.registry.Unregister(req.SessionID)
			if st.HasOutput() {
				// An exit after real output is a completed run, even
				// without an explicit completion event.
				log.Info("process exited after producing output, treating as completed")
				r.emitDone(req)
				return st.Result(false), nil
			}
			log.Warn("process died without producing output")
			return st.Result(true), nil
		}

		if receivedOutput && alive && silence > r.cfg.InteractiveStallTimeout() && chat.IsContentEvent(st.LastEventType) {
			return r.handleStall(req, st, log), nil
		}

		if !receivedOutput {
			if time.Since(start) > r.cfg.StartupTimeout() {
				log.Warn("no output before startup timeout, treating as cancelled")
				r.registry.Unregister(req.SessionID)
				return st.Result(true), nil
			}
			if time.Since(lastProgress) > startupProgressInterval {
				log.Debug("waiting for first output", "elapsed", time.Since(start).Round(time.Second))
				lastProgress = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			log.Info("run context cancelled")
			r.registry.Unregister(req.SessionID)
			return st.Result(true), nil
		case <-time.After(r.cfg.PollInterval()):
		}
	}
}

// handleStall converts an alive-but-silent backend into a question for the
// user: the backend is blocking on stdin that will never arrive in detached
// mode, so the last text it printed is surfaced as a synthesized
// AskUserQuestion tool call and the process is terminated.
func (r *Runner) handleStall(req Request, st *chat.State, log *slog.Logger) *chat.RunResult {
	question := st.LastText
	if question == "" {
		question = fallbackQuestion
	}

	tc := chat.ToolCall{
		ID:    fmt.Sprintf("%s_ask_%s", req.Normalizer.Kind(), uuid.NewString()),
		Name:  chat.AskUserQuestionTool,
		Input: chat.AskQuestionInput(question),
	}
	st.AddToolCall(tc)
	log.Info("interactive stall detected, asking user", "toolCallID", tc.ID)

	r.emitEvent(req, chat.Event{Type: chat.EventToolUse, Tool: &tc})
	r.emitEvent(req, chat.Event{Type: chat.EventToolBlock, ToolUseID: tc.ID})

	if req.Handle.Trackable() {
		if err := r.kill(req.Handle.PID); err != nil {
			log.Warn("failed to kill stalled process", "pid", req.Handle.PID, "error", err)
		}
	}

	r.emitDone(req)
	return st.Result(false)
}

// isAlive reports process liveness. An untrackable handle (WSL bridge)
// cannot be checked and is assumed alive, so only the stall rule can end
// such a run early.
func (r *Runner) isAlive(h launch.Handle) bool {
	if !h.Trackable() {
		return true
	}
	return r.alive(h.PID)
}

// openStreamLog opens the per-session raw line mirror when stream debugging
// is enabled. Failures are logged and the mirror is skipped.
func (r *Runner) openStreamLog(sessionID string) *os.File {
	if r.cfg == nil || !r.cfg.StreamDebug {
		return nil
	}
	path, err := logger.StreamLogPath(sessionID)
	if err != nil {
		logger.WithSession(sessionID).Warn("failed to resolve stream log path", "error", err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.WithSession(sessionID).Warn("failed to open stream log", "path", path, "error", err)
		return nil
	}
	return f
}

// emitEvent maps a canonical event to its channel payload and emits it.
func (r *Runner) emitEvent(req Request, ev chat.Event) {
	switch ev.Type {
	case chat.EventChunk:
		r.emit(req, ev, chat.ChannelChunk, chat.ChunkEvent{
			SessionID:  req.SessionID,
			WorktreeID: req.WorktreeID,
			Content:    ev.Text,
		})
	case chat.EventToolUse:
		r.emit(req, ev, chat.ChannelToolUse, chat.ToolUseEvent{
			SessionID:       req.SessionID,
			WorktreeID:      req.WorktreeID,
			ID:              ev.Tool.ID,
			Name:            ev.Tool.Name,
			Input:           ev.Tool.Input,
			ParentToolUseID: ev.Tool.ParentToolUseID,
		})
	case chat.EventToolBlock:
		r.emit(req, ev, chat.ChannelToolBlock, chat.ToolBlockEvent{
			SessionID:  req.SessionID,
			WorktreeID: req.WorktreeID,
			ToolCallID: ev.ToolUseID,
		})
	case chat.EventToolResult:
		r.emit(req, ev, chat.ChannelToolResult, chat.ToolResultEvent{
			SessionID:  req.SessionID,
			WorktreeID: req.WorktreeID,
			ToolUseID:  ev.ToolUseID,
			Output:     ev.Output,
		})
	case chat.EventThinking:
		r.emit(req, ev, chat.ChannelThinking, chat.ThinkingEvent{
			SessionID:  req.SessionID,
			WorktreeID: req.WorktreeID,
			Content:    ev.Text,
		})
	}
}

// emitDone signals stream completion on the done channel.
func (r *Runner) emitDone(req Request) {
	r.emit(req, chat.Event{}, chat.ChannelDone, chat.DoneEvent{
		SessionID:  req.SessionID,
		WorktreeID: req.WorktreeID,
	})
}

// emit forwards one payload to the emitter. Emission failures are logged and
// ignored; losing one update is preferable to losing the run.
func (r *Runner) emit(req Request, ev chat.Event, channel string, payload any) {
	if r.emitter == nil {
		return
	}
	if err := r.emitter.Emit(channel, payload); err != nil {
		logger.WithSession(req.SessionID).Warn("failed to emit event", "channel", channel, "error", err)
	}
}
