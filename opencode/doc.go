// Package opencode normalizes OpenCode CLI JSON output lines into canonical
// chat events.
//
// The CLI (run with `run --format json`) writes one JSON event per line,
// wrapping most payloads in a `part` object: text in part.text, tool calls
// in part.callID/part.tool/part.state, stop reasons in part.reason. When a
// tool has already finished, its event carries both the call and the result
// (part.state.status == "completed"), and the corresponding tool_result is
// synthesized in the same step.
package opencode
