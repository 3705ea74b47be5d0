// Package jsonfix recovers a typed analysis result from unreliable model
// output. The pipeline is: extract the widest brace-delimited span, try a
// direct parse, apply deterministic repair passes and re-parse, and finally
// fall back to a mode-specific default. It never fails past its own
// boundary: callers always get a validly-shaped result.
package jsonfix

import "strings"

// ExtractObject returns the widest candidate JSON object span in text: from
// the first '{' through the last '}'. The greedy match deliberately spans
// prose between multiple brace groups; the parse and repair stages decide
// whether the span is usable. ok is false when no such span exists.
func ExtractObject(text string) (span string, ok bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}
