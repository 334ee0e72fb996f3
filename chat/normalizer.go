package chat

import (
	"encoding/json"
	"strings"
)

// NoContentSentinel is a placeholder some backends emit instead of real text.
// It is suppressed, not appended to the transcript.
const NoContentSentinel = "(no content)"

// RunMetaMarker identifies the optional run-metadata header line written at
// the top of an output file. Lines containing it carry no backend content.
const RunMetaMarker = `"_run_meta"`

// EventType identifies the kind of a canonical Event.
type EventType string

const (
	EventChunk      EventType = "chunk"
	EventToolUse    EventType = "tool_use"
	EventToolBlock  EventType = "tool_block"
	EventToolResult EventType = "tool_result"
	EventThinking   EventType = "thinking"
)

// Event is one canonical event produced by a Normalizer from a raw JSONL line.
// Session and worktree identity are attached at emission time by the runner.
type Event struct {
	Type EventType

	// Text carries chunk and thinking content.
	Text string

	// Tool carries the invocation for tool_use events.
	Tool *ToolCall

	// ToolUseID and Output carry tool_result events; ToolUseID alone carries
	// tool_block events.
	ToolUseID string
	Output    string
}

// Normalizer interprets one raw output line from a specific backend into zero
// or more canonical Events, recording accumulation side effects on the State.
// Implementations are stateless; all per-run state lives in the State.
type Normalizer interface {
	// Kind returns the backend identifier ("claude", "opencode"). It prefixes
	// synthesized tool-call ids and selects binaries and arguments upstream.
	Kind() string

	// ParseLine parses one line. Empty lines, metadata headers, and
	// unparsable JSON are skipped by returning no events; noise is never an
	// error.
	ParseLine(line string, st *State) []Event
}

// State accumulates a run's transcript, tool calls, content blocks, and
// completion signal across ParseLine calls. Owned by a single supervision
// loop; not safe for concurrent use.
type State struct {
	content   strings.Builder
	sessionID string

	ToolCalls []ToolCall
	Blocks    []ContentBlock

	Completed bool
	Usage     *Usage

	// LastEventType is the backend-native type tag of the most recent
	// recognized line, consulted by stall detection.
	LastEventType string
	// LastText is the most recent appended text, used as the question when a
	// stall is converted into an AskUserQuestion.
	LastText string
}

// Content returns the accumulated transcript.
func (s *State) Content() string {
	return s.content.String()
}

// SessionID returns the captured backend-native session id, or "".
func (s *State) SessionID() string {
	return s.sessionID
}

// CaptureSessionID records the backend-native session id. The first non-empty
// value wins; later values never overwrite it.
func (s *State) CaptureSessionID(id string) {
	if s.sessionID == "" && id != "" {
		s.sessionID = id
	}
}

// AppendText appends transcript text and pushes a text content block.
// The no-content sentinel is suppressed. Returns false when nothing was added.
func (s *State) AppendText(text string) bool {
	if text == "" || text == NoContentSentinel {
		return false
	}
	s.content.WriteString(text)
	s.LastText = text
	s.Blocks = append(s.Blocks, ContentBlock{Type: ContentText, Text: text})
	return true
}

// SetContent replaces an empty transcript with result text. Used when a
// completion event carries the only copy of the response.
func (s *State) SetContent(text string) {
	if s.content.Len() == 0 && text != "" {
		s.content.WriteString(text)
	}
}

// AddToolCall records a tool invocation and its content block position.
func (s *State) AddToolCall(tc ToolCall) {
	s.ToolCalls = append(s.ToolCalls, tc)
	s.Blocks = append(s.Blocks, ContentBlock{Type: ContentToolUse, ToolCallID: tc.ID})
}

// SetToolOutput fills the output of the tool call with the given id.
// Returns false when no prior record exists; the result still gets emitted,
// it just cannot be joined.
func (s *State) SetToolOutput(id, output string) bool {
	for i := range s.ToolCalls {
		if s.ToolCalls[i].ID == id {
			s.ToolCalls[i].Output = &output
			return true
		}
	}
	return false
}

// AddThinking records a thinking content block without touching the transcript.
func (s *State) AddThinking(thinking string) {
	s.Blocks = append(s.Blocks, ContentBlock{Type: ContentThinking, Thinking: thinking})
}

// Complete marks the run completed, recording usage totals when present.
func (s *State) Complete(usage *Usage) {
	s.Completed = true
	if usage != nil {
		s.Usage = usage
	}
}

// HasOutput reports whether the run produced any real content, meaning
// transcript text or tool calls. A process that exits after producing real output is a
// completed run, not a failed one.
func (s *State) HasOutput() bool {
	return s.content.Len() > 0 || len(s.ToolCalls) > 0
}

// Result builds the final RunResult from the accumulated state.
func (s *State) Result(cancelled bool) *RunResult {
	return &RunResult{
		Content:          s.content.String(),
		BackendSessionID: s.sessionID,
		ToolCalls:        s.ToolCalls,
		ContentBlocks:    s.Blocks,
		Cancelled:        cancelled,
		Usage:            s.Usage,
	}
}

// contentEventTypes are the backend-native event types that indicate the
// backend was mid-content when it went silent. A stalled process is only
// treated as waiting on user input when the last event was one of these.
var contentEventTypes = map[string]bool{
	"text":       true,
	"content":    true,
	"assistant":  true,
	"step_start": true,
}

// IsContentEvent reports whether a backend-native event type belongs to the
// content-producing category used by interactive stall detection.
func IsContentEvent(eventType string) bool {
	return contentEventTypes[eventType]
}

// AskUserQuestionTool is the reserved tool name synthesized when a detached
// backend stalls waiting for input that will never arrive.
const AskUserQuestionTool = "AskUserQuestion"

// AskQuestionInput builds the synthesized AskUserQuestion input payload.
func AskQuestionInput(question string) json.RawMessage {
	input := map[string]any{
		"questions": []map[string]any{{
			"question":    question,
			"options":     []string{},
			"allowCustom": true,
		}},
	}
	data, _ := json.Marshal(input)
	return data
}
