package claude

import (
	"encoding/json"
	"strings"

	"github.com/zhubert/tailrun/chat"
	"github.com/zhubert/tailrun/internal/jsonutil"
	"github.com/zhubert/tailrun/logger"
)

// Kind is the backend identifier for the Claude CLI.
const Kind = "claude"

// terminalStopReasons are the stop_reason values that end a response.
var terminalStopReasons = map[string]bool{
	"end_turn":      true,
	"stop_sequence": true,
	"max_tokens":    true,
}

// Normalizer parses Claude stream-json lines. It is stateless; all per-run
// accumulation happens on the chat.State.
type Normalizer struct{}

// New creates a Claude normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Kind returns the backend identifier.
func (n *Normalizer) Kind() string {
	return Kind
}

// ParseLine interprets one stream-json line. Blank lines, the run-metadata
// header, non-JSON output (the CLI prints informational lines under
// --verbose), and unparsable JSON are all skipped silently; backend noise
// is never a failure.
func (n *Normalizer) ParseLine(line string, st *chat.State) []chat.Event {
	log := logger.WithComponent(Kind)

	line = strings.TrimSpace(line)
	if line == "" || strings.Contains(line, chat.RunMetaMarker) {
		return nil
	}
	if !strings.HasPrefix(line, "{") {
		log.Debug("skipping non-JSON line", "line", truncateForLog(line))
		return nil
	}

	var msg map[string]any
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		log.Debug("failed to parse stream message", "error", err, "line", truncateForLog(line))
		return nil
	}

	// Capture the backend conversation id from any message that carries one,
	// top-level or nested one level inside the message envelope.
	sid := jsonutil.FirstString(msg, "session_id", "sessionId")
	if sid == "" {
		sid = jsonutil.FirstString(jsonutil.GetMap(msg, "message"), "session_id", "sessionId")
	}
	st.CaptureSessionID(sid)

	msgType := jsonutil.GetString(msg, "type")

	var events []chat.Event

	switch msgType {
	case "system":
		// Init envelope carries nothing to surface.
		if jsonutil.GetString(msg, "subtype") == "init" {
			log.Debug("session initialized")
		}
		st.LastEventType = msgType

	case "assistant":
		st.LastEventType = msgType
		parentID := optionalString(msg, "parent_tool_use_id", "parentToolUseId")
		message := jsonutil.GetMap(msg, "message")
		for _, raw := range jsonutil.GetArray(message, "content") {
			block, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			events = append(events, parseContentBlock(block, parentID, st)...)
		}
		if usage := jsonutil.GetMap(message, "usage"); usage != nil {
			st.Usage = chat.ParseUsage(usage)
		}

	case "user":
		// User messages in stream-json carry tool results.
		st.LastEventType = msgType
		message := jsonutil.GetMap(msg, "message")
		for _, raw := range jsonutil.GetArray(message, "content") {
			block, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			toolUseID := jsonutil.FirstString(block, "tool_use_id", "toolUseId")
			if jsonutil.GetString(block, "type") != "tool_result" && toolUseID == "" {
				continue
			}
			output := chat.TruncateOutput(extractResultContent(block))
			if !st.SetToolOutput(toolUseID, output) {
				log.Debug("tool result without prior tool call", "toolUseID", toolUseID)
			}
			events = append(events, chat.Event{
				Type:      chat.EventToolResult,
				ToolUseID: toolUseID,
				Output:    output,
			})
		}

	case "result":
		// Final envelope: the result text is the only copy of the response
		// when no assistant text streamed before it.
		st.SetContent(jsonutil.GetString(msg, "result"))
		st.Complete(chat.ParseUsage(jsonutil.GetMap(msg, "usage")))
		log.Debug("result received", "subtype", jsonutil.GetString(msg, "subtype"))

	case "stream_event":
		event := jsonutil.GetMap(msg, "event")
		if delta := jsonutil.GetMap(event, "delta"); delta != nil {
			if reason := jsonutil.GetString(delta, "stop_reason"); terminalStopReasons[reason] {
				usage := jsonutil.GetMap(event, "usage")
				if usage == nil {
					usage = jsonutil.GetMap(msg, "usage")
				}
				st.Complete(chat.ParseUsage(usage))
			}
		}

	default:
		log.Debug("unknown message type", "type", msgType)
	}

	return events
}

// parseContentBlock handles one block of an assistant message's content
// array: text, tool_use, or thinking.
func parseContentBlock(block map[string]any, parentID *string, st *chat.State) []chat.Event {
	switch jsonutil.GetString(block, "type") {
	case "text":
		text := jsonutil.GetString(block, "text")
		if !st.AppendText(text) {
			return nil
		}
		return []chat.Event{{Type: chat.EventChunk, Text: text}}

	case "tool_use":
		tc := chat.ToolCall{
			ID:              jsonutil.GetString(block, "id"),
			Name:            jsonutil.GetString(block, "name"),
			Input:           jsonutil.Marshal(block["input"]),
			ParentToolUseID: parentID,
		}
		st.AddToolCall(tc)
		return []chat.Event{
			{Type: chat.EventToolUse, Tool: &tc},
			{Type: chat.EventToolBlock, ToolUseID: tc.ID},
		}

	case "thinking":
		thinking := jsonutil.GetString(block, "thinking")
		if thinking == "" {
			return nil
		}
		st.AddThinking(thinking)
		return []chat.Event{{Type: chat.EventThinking, Text: thinking}}
	}
	return nil
}

// extractResultContent renders a tool_result block's content as display
// text. Content is a plain string, or an array of text blocks joined with
// newlines.
func extractResultContent(block map[string]any) string {
	content, ok := block["content"]
	if !ok {
		return ""
	}
	if s, isStr := content.(string); isStr {
		return s
	}
	if arr, isArr := content.([]any); isArr {
		var parts []string
		for _, raw := range arr {
			item, isMap := raw.(map[string]any)
			if !isMap {
				continue
			}
			if jsonutil.GetString(item, "type") == "text" {
				parts = append(parts, jsonutil.GetString(item, "text"))
			}
		}
		return strings.Join(parts, "\n")
	}
	return jsonutil.Stringify(content)
}

// optionalString returns a pointer to the first non-empty string among keys,
// or nil.
func optionalString(m map[string]any, keys ...string) *string {
	if s := jsonutil.FirstString(m, keys...); s != "" {
		return &s
	}
	return nil
}

// truncateForLog truncates long strings for log messages
func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
