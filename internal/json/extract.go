// Package json extracts JSON objects from model replies.
//
// Models often wrap the requested JSON in prose or markdown fences. The
// helpers here find the first complete object that parses.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the first parseable JSON object in response.
//
// Handled shapes:
// 1. Pure JSON
// 2. JSON inside a ```json fence
// 3. JSON embedded in prose, possibly followed by more braces
func ExtractJSON(response string) (string, error) {
	response = stripMarkdownCodeBlocks(response)

	if strings.HasPrefix(response, "{") && json.Valid([]byte(response)) {
		return response, nil
	}

	for start := strings.IndexByte(response, '{'); start != -1; {
		if end := matchBrace(response, start); end != -1 {
			candidate := response[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(response[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// ExtractJSONFromResponse extracts and decodes the first JSON object in
// response into T.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// Braces inside string literals are ignored.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripMarkdownCodeBlocks removes a surrounding ```json or ``` fence.
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}
