package chat

// Usage field fallback tables. Backends disagree on naming: snake_case,
// camelCase, and the OpenAI prompt/completion vocabulary all appear in the
// wild. Each counter is read from its list in priority order; absent fields
// default to zero. The tables are exercised directly by tests, so a naming
// drift fix is a one-line change here.
var (
	inputTokenKeys         = []string{"input_tokens", "inputTokens", "prompt_tokens"}
	outputTokenKeys        = []string{"output_tokens", "outputTokens", "completion_tokens"}
	cacheReadTokenKeys     = []string{"cache_read_input_tokens", "cacheReadInputTokens"}
	cacheCreationTokenKeys = []string{"cache_creation_input_tokens", "cacheCreationInputTokens"}
)

// ParseUsage normalizes a backend usage object into the four canonical
// counters. Unrecognized or missing fields are zero, never an error.
func ParseUsage(obj map[string]any) *Usage {
	if obj == nil {
		return nil
	}
	return &Usage{
		InputTokens:              firstCount(obj, inputTokenKeys),
		OutputTokens:             firstCount(obj, outputTokenKeys),
		CacheReadInputTokens:     firstCount(obj, cacheReadTokenKeys),
		CacheCreationInputTokens: firstCount(obj, cacheCreationTokenKeys),
	}
}

// firstCount returns the first present numeric field from keys, in order.
func firstCount(obj map[string]any, keys []string) uint64 {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			if f, ok := v.(float64); ok && f > 0 {
				return uint64(f)
			}
		}
	}
	return 0
}
