// Package chat defines the canonical event stream and run accumulation model
// shared by all CLI backends.
//
// Backends (claude, opencode) parse their native JSONL output into canonical
// Events against a shared State accumulator. The runner forwards Events to an
// Emitter, the only contract the external transport depends on, and builds
// the final RunResult from the State.
package chat
