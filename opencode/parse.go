package opencode

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/zhubert/tailrun/chat"
	"github.com/zhubert/tailrun/internal/jsonutil"
	"github.com/zhubert/tailrun/logger"
)

// Kind is the backend identifier for the OpenCode CLI.
const Kind = "opencode"

// sessionIDKeys are the naming variants OpenCode uses for its session id,
// in priority order. The capital-D form is what current releases emit.
var sessionIDKeys = []string{"sessionID", "sessionId", "session_id"}

// terminalStepReasons are the step_finish reasons that end a response.
var terminalStepReasons = map[string]bool{
	"stop":     true,
	"end_turn": true,
}

// Normalizer parses OpenCode JSON event lines. It is stateless; all per-run
// accumulation happens on the chat.State.
type Normalizer struct{}

// New creates an OpenCode normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Kind returns the backend identifier.
func (n *Normalizer) Kind() string {
	return Kind
}

// ParseLine interprets one output line. Blank lines, the run-metadata
// header, and unparsable JSON are skipped silently.
func (n *Normalizer) ParseLine(line string, st *chat.State) []chat.Event {
	log := logger.WithComponent(Kind)

	line = strings.TrimSpace(line)
	if line == "" || strings.Contains(line, chat.RunMetaMarker) {
		return nil
	}

	var msg map[string]any
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		log.Debug("failed to parse line", "error", err)
		return nil
	}

	// Capture the session id from any message that carries one, top-level
	// or inside the part wrapper.
	part := jsonutil.GetMap(msg, "part")
	sid := jsonutil.FirstString(msg, sessionIDKeys...)
	if sid == "" {
		sid = jsonutil.FirstString(part, sessionIDKeys...)
	}
	st.CaptureSessionID(sid)

	msgType := jsonutil.GetString(msg, "type")

	switch msgType {
	case "assistant", "text", "content":
		st.LastEventType = msgType
		return n.parseText(msg, st)

	case "tool_use", "tool_call":
		st.LastEventType = msgType
		return n.parseToolUse(msg, part, st)

	case "tool_result":
		st.LastEventType = msgType
		return n.parseToolResult(msg, st, log)

	case "user":
		st.LastEventType = msgType
		return n.parseUser(msg, st, log)

	case "thinking":
		st.LastEventType = msgType
		thinking := jsonutil.FirstString(msg, "thinking", "content")
		if thinking == "" {
			return nil
		}
		st.AddThinking(thinking)
		return []chat.Event{{Type: chat.EventThinking, Text: thinking}}

	case "result", "done", "end":
		st.SetContent(jsonutil.GetString(msg, "result"))
		st.Complete(chat.ParseUsage(jsonutil.GetMap(msg, "usage")))
		log.Debug("completion event received", "type", msgType)

	case "step_finish":
		st.LastEventType = msgType
		reason := jsonutil.GetString(part, "reason")
		if reason == "" {
			reason = jsonutil.GetString(msg, "stop_reason")
		}
		if terminalStepReasons[reason] {
			usage := jsonutil.GetMap(part, "tokens")
			if usage == nil {
				usage = jsonutil.GetMap(msg, "usage")
			}
			st.Complete(chat.ParseUsage(usage))
		}

	case "step_start":
		// No payload; tracked for stall detection only.
		st.LastEventType = msgType

	default:
		log.Debug("unknown message type", "type", msgType)
	}

	return nil
}

// parseText handles text-bearing events, plus any tool_use or thinking
// blocks embedded in an assistant message's content array.
func (n *Normalizer) parseText(msg map[string]any, st *chat.State) []chat.Event {
	var events []chat.Event

	if text, ok := extractText(msg); ok {
		if st.AppendText(text) {
			events = append(events, chat.Event{Type: chat.EventChunk, Text: text})
		}
	}

	message := jsonutil.GetMap(msg, "message")
	for _, raw := range jsonutil.GetArray(message, "content") {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch jsonutil.GetString(block, "type") {
		case "tool_use":
			tc := chat.ToolCall{
				ID:    jsonutil.GetString(block, "id"),
				Name:  jsonutil.GetString(block, "name"),
				Input: jsonutil.Marshal(block["input"]),
			}
			st.AddToolCall(tc)
			events = append(events,
				chat.Event{Type: chat.EventToolUse, Tool: &tc},
				chat.Event{Type: chat.EventToolBlock, ToolUseID: tc.ID},
			)
		case "thinking":
			if thinking := jsonutil.GetString(block, "thinking"); thinking != "" {
				st.AddThinking(thinking)
				events = append(events, chat.Event{Type: chat.EventThinking, Text: thinking})
			}
		}
	}

	return events
}

// parseToolUse handles tool invocation events. OpenCode nests the call in
// part (callID, tool, state.input); older shapes put id/name/input at the
// top level. When state.status is "completed" the event already includes
// the result, and the tool_result is synthesized in the same step.
func (n *Normalizer) parseToolUse(msg, part map[string]any, st *chat.State) []chat.Event {
	state := jsonutil.GetMap(part, "state")

	id := jsonutil.GetString(part, "callID")
	if id == "" {
		id = jsonutil.FirstString(msg, "id", "tool_use_id")
	}
	name := jsonutil.GetString(part, "tool")
	if name == "" {
		name = jsonutil.FirstString(msg, "name", "tool_name")
	}

	input, ok := state["input"]
	if !ok {
		input, _ = jsonutil.FirstValue(msg, "input", "arguments")
	}

	var output *string
	if jsonutil.GetString(state, "status") == "completed" {
		if raw, ok := state["output"]; ok {
			text := chat.TruncateOutput(jsonutil.Stringify(raw))
			output = &text
		}
	}

	tc := chat.ToolCall{
		ID:     id,
		Name:   name,
		Input:  jsonutil.Marshal(input),
		Output: output,
	}
	st.AddToolCall(tc)

	events := []chat.Event{
		{Type: chat.EventToolUse, Tool: &tc},
		{Type: chat.EventToolBlock, ToolUseID: id},
	}
	if output != nil {
		events = append(events, chat.Event{
			Type:      chat.EventToolResult,
			ToolUseID: id,
			Output:    *output,
		})
	}
	return events
}

// parseToolResult handles standalone tool result events.
func (n *Normalizer) parseToolResult(msg map[string]any, st *chat.State, log *slog.Logger) []chat.Event {
	toolUseID := jsonutil.GetString(msg, "tool_use_id")
	raw, _ := jsonutil.FirstValue(msg, "content", "output")
	output := jsonutil.Stringify(raw)

	if !st.SetToolOutput(toolUseID, output) {
		log.Debug("tool result without prior tool call", "toolUseID", toolUseID)
	}
	return []chat.Event{{
		Type:      chat.EventToolResult,
		ToolUseID: toolUseID,
		Output:    output,
	}}
}

// parseUser handles user messages, which may carry tool results in their
// content array.
func (n *Normalizer) parseUser(msg map[string]any, st *chat.State, log *slog.Logger) []chat.Event {
	var events []chat.Event
	message := jsonutil.GetMap(msg, "message")
	for _, raw := range jsonutil.GetArray(message, "content") {
		block, ok := raw.(map[string]any)
		if !ok || jsonutil.GetString(block, "type") != "tool_result" {
			continue
		}
		toolUseID := jsonutil.GetString(block, "tool_use_id")
		output := extractResultContent(block)
		if !st.SetToolOutput(toolUseID, output) {
			log.Debug("tool result without prior tool call", "toolUseID", toolUseID)
		}
		events = append(events, chat.Event{
			Type:      chat.EventToolResult,
			ToolUseID: toolUseID,
			Output:    output,
		})
	}
	return events
}

// extractText pulls display text out of the several shapes OpenCode uses:
// part.text, a direct text field, message.content as a string or an array
// of text blocks, or a direct content string. Checked in that order; the
// first hit wins.
func extractText(msg map[string]any) (string, bool) {
	if part := jsonutil.GetMap(msg, "part"); part != nil {
		if text := jsonutil.GetString(part, "text"); text != "" {
			return text, true
		}
	}

	if text := jsonutil.GetString(msg, "text"); text != "" {
		return text, true
	}

	if message := jsonutil.GetMap(msg, "message"); message != nil {
		if content, ok := message["content"]; ok {
			if s, isStr := content.(string); isStr {
				return s, true
			}
			if arr, isArr := content.([]any); isArr {
				var parts []string
				for _, raw := range arr {
					block, isMap := raw.(map[string]any)
					if !isMap {
						continue
					}
					if jsonutil.GetString(block, "type") == "text" {
						parts = append(parts, jsonutil.GetString(block, "text"))
					}
				}
				if len(parts) > 0 {
					return strings.Join(parts, ""), true
				}
			}
		}
	}

	if content := jsonutil.GetString(msg, "content"); content != "" {
		return content, true
	}

	return "", false
}

// extractResultContent renders a tool_result block's content as display
// text: a plain string, or an array of text blocks joined with newlines.
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
	return ""
}
