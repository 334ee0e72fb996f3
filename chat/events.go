package chat

import "encoding/json"

// Channel names for emitted events. This is the full event vocabulary the
// external transport depends on.
const (
	ChannelChunk      = "chat:chunk"
	ChannelToolUse    = "chat:tool_use"
	ChannelToolBlock  = "chat:tool_block"
	ChannelToolResult = "chat:tool_result"
	ChannelThinking   = "chat:thinking"
	ChannelDone       = "chat:done"
	ChannelError      = "chat:error"
)

// Emitter forwards canonical events to the external transport (UI, WebSocket
// broadcaster, test recorder). Implementations must be safe for use from a
// single supervision loop; emission failures are logged and ignored by the
// runner, never fatal to a run.
type Emitter interface {
	Emit(channel string, payload any) error
}

// ChunkEvent is the payload for text chunk events.
type ChunkEvent struct {
	SessionID  string `json:"session_id"`
	WorktreeID string `json:"worktree_id"`
	Content    string `json:"content"`
}

// ToolUseEvent is the payload for tool invocation events.
type ToolUseEvent struct {
	SessionID       string          `json:"session_id"`
	WorktreeID      string          `json:"worktree_id"`
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Input           json.RawMessage `json:"input,omitempty"`
	ParentToolUseID *string         `json:"parent_tool_use_id,omitempty"`
}

// ToolBlockEvent is the payload for tool block position events. It tells the
// UI where in the content flow the tool call sits.
type ToolBlockEvent struct {
	SessionID  string `json:"session_id"`
	WorktreeID string `json:"worktree_id"`
	ToolCallID string `json:"tool_call_id"`
}

// ToolResultEvent is the payload for tool result events.
type ToolResultEvent struct {
	SessionID  string `json:"session_id"`
	WorktreeID string `json:"worktree_id"`
	ToolUseID  string `json:"tool_use_id"`
	Output     string `json:"output"`
}

// ThinkingEvent is the payload for thinking content events.
type ThinkingEvent struct {
	SessionID  string `json:"session_id"`
	WorktreeID string `json:"worktree_id"`
	Content    string `json:"content"`
}

// DoneEvent is the payload for stream completion events.
type DoneEvent struct {
	SessionID  string `json:"session_id"`
	WorktreeID string `json:"worktree_id"`
}

// ErrorEvent is the payload for error events.
type ErrorEvent struct {
	SessionID  string `json:"session_id"`
	WorktreeID string `json:"worktree_id"`
	Error      string `json:"error"`
}

// EmittedEvent is one recorded emission: the channel plus its payload.
type EmittedEvent struct {
	Channel string
	Payload any
}

// Recorder is an Emitter that captures events in order. Intended for tests
// and for callers that post-process a run's full event stream.
type Recorder struct {
	Events []EmittedEvent
}

// Emit records the event. It never fails.
func (r *Recorder) Emit(channel string, payload any) error {
	r.Events = append(r.Events, EmittedEvent{Channel: channel, Payload: payload})
	return nil
}

// Channels returns the recorded channel names in emission order.
func (r *Recorder) Channels() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Channel
	}
	return out
}

var _ Emitter = (*Recorder)(nil)
