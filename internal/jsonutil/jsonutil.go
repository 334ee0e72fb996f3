// Package jsonutil provides safe JSON extraction helpers for CLI backend
// parsers. These functions extract typed values from map[string]any produced
// by encoding/json.Unmarshal. No transformation logic, no validation.
//
// Exported within internal/: visible to sibling packages (claude/, opencode/)
// but not to library consumers.
package jsonutil

import "encoding/json"

// GetString safely extracts a string field from a map.
func GetString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// GetMap safely extracts a nested map from a map.
func GetMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

// GetArray safely extracts a nested array from a map.
func GetArray(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

// FirstString returns the first non-empty string among the given keys,
// checked in order. Backends drift between snake_case, camelCase, and vendor
// naming for the same semantic field; callers list the candidates in
// priority order.
func FirstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := GetString(m, key); s != "" {
			return s
		}
	}
	return ""
}

// FirstValue returns the first present value among the given keys, in order.
func FirstValue(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Stringify renders a value as display text: strings pass through, anything
// else is JSON-encoded.
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// Marshal encodes a value as a raw JSON message, returning nil on failure or
// nil input.
func Marshal(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
