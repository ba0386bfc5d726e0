// Package extract isolates a single JSON object from noisy rater
// output: markdown fences, conversational preamble, and trailing prose.
// It never fails; text without structural markers passes through
// unchanged and simply fails the later JSON decode.
package extract

import "strings"

// JSONObject returns the substring of text most likely to be a single
// JSON object. Empty or whitespace-only input yields "".
func JSONObject(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = stripFence(text)

	// Discard commentary before the first brace.
	if !strings.HasPrefix(text, "{") {
		if idx := strings.IndexByte(text, '{'); idx >= 0 {
			text = text[idx:]
		}
	}

	// Discard trailing content after the matching close brace.
	if strings.HasPrefix(text, "{") {
		if end := matchingBrace(text); end >= 0 {
			text = text[:end+1]
		}
	}

	return text
}

// stripFence unwraps one level of ```/```json fencing. The language
// tag is dropped only when it is exactly "json"; a longer tag such as
// "jsonp" stays in place for the brace scan to skip past.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	inner := strings.TrimPrefix(text, "```")
	if rest, ok := strings.CutPrefix(inner, "json"); ok {
		if rest == "" || rest[0] == '\n' || rest[0] == '\r' || rest[0] == ' ' || rest[0] == '\t' {
			inner = rest
		}
	}
	if !strings.HasSuffix(inner, "```") {
		return text
	}
	inner = strings.TrimSuffix(inner, "```")
	return strings.TrimSpace(inner)
}

// matchingBrace returns the index of the close brace matching the
// object opened at position 0, or -1. The scan is string-aware: braces
// inside quoted literals do not perturb depth, and backslash escapes
// are honored so an escaped quote does not terminate a string.
func matchingBrace(text string) int {
	depth := 0
	inString := false
	escape := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escape {
			escape = false
			continue
		}
		switch {
		case ch == '\\':
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
			// Skip structural characters inside string literals.
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
