// Package claude normalizes Claude CLI stream-json output lines into
// canonical chat events.
//
// The CLI (run with --print --output-format stream-json --verbose) writes
// one JSON message per line: system, assistant, user, result, and
// stream_event envelopes. Field naming drifts between CLI versions
// (tool_use_id vs toolUseId), so lookups go through ordered fallback lists
// rather than fixed struct tags.
package claude
