package chat

import "encoding/json"

// ToolCall represents a single tool invocation made by the backend during a run.
// Output is filled in when a later result event references the same ID.
type ToolCall struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Input           json.RawMessage `json:"input,omitempty"`
	Output          *string         `json:"output,omitempty"`
	ParentToolUseID *string         `json:"parent_tool_use_id,omitempty"`
}

// ContentBlock is one entry in the ordered content sequence of a response.
// Exactly one of the payload fields is meaningful, selected by Type.
type ContentBlock struct {
	Type       ContentBlockType `json:"type"`
	Text       string           `json:"text,omitempty"`        // ContentText
	ToolCallID string           `json:"tool_call_id,omitempty"` // ContentToolUse
	Thinking   string           `json:"thinking,omitempty"`    // ContentThinking
}

// ContentBlockType identifies the kind of a ContentBlock.
type ContentBlockType string

const (
	ContentText     ContentBlockType = "text"
	ContentToolUse  ContentBlockType = "tool_use"
	ContentThinking ContentBlockType = "thinking"
)

// Usage holds normalized token counts for a run.
type Usage struct {
	InputTokens              uint64 `json:"input_tokens"`
	OutputTokens             uint64 `json:"output_tokens"`
	CacheReadInputTokens     uint64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens uint64 `json:"cache_creation_input_tokens"`
}

// RunResult is the final accumulated value of one supervised run.
// Constructed once when the run reaches a terminal state, immutable thereafter.
type RunResult struct {
	// Content is the full text transcript.
	Content string `json:"content"`
	// BackendSessionID is the backend-native conversation id, used for resumption.
	BackendSessionID string `json:"backend_session_id"`
	// ToolCalls lists tool invocations in emission order, unique by ID.
	ToolCalls []ToolCall `json:"tool_calls"`
	// ContentBlocks preserves the interleaving of text, tool, and thinking blocks.
	ContentBlocks []ContentBlock `json:"content_blocks"`
	// Cancelled is true when the run ended by external cancellation or timeout
	// rather than backend completion.
	Cancelled bool `json:"cancelled"`
	// Usage holds token totals when the backend reported them.
	Usage *Usage `json:"usage,omitempty"`
}

// MaxToolOutputLen is the display limit for tool outputs. Longer outputs are
// truncated on a UTF-8 boundary with a trailing marker.
const MaxToolOutputLen = 2000

// truncationMarker is appended to truncated tool outputs.
const truncationMarker = "...(truncated)"

// TruncateOutput shortens a tool output for display, cutting at MaxToolOutputLen
// bytes without splitting a UTF-8 sequence.
func TruncateOutput(s string) string {
	if len(s) <= MaxToolOutputLen {
		return s
	}
	cut := MaxToolOutputLen
	// Back up to a rune boundary.
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + truncationMarker
}
