package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers a JSON object from free-form model output. Markdown
// code fences are stripped first; if the remainder does not parse, the first
// balanced {...} substring is tried.
func ExtractJSON(text string) (map[string]any, error) {
	clean := stripFences(text)
	if clean == "" {
		return nil, &Error{Kind: KindParseEmpty, Message: "empty output text"}
	}

	var out map[string]any
	directErr := json.Unmarshal([]byte(clean), &out)
	if directErr == nil && out != nil {
		return out, nil
	}

	obj, ok := firstBalancedObject(clean)
	if !ok {
		return nil, &Error{Kind: KindParseMalformed, Message: "no JSON object found in response", Err: directErr}
	}
	out = nil
	if err := json.Unmarshal([]byte(obj), &out); err != nil || out == nil {
		return nil, &Error{Kind: KindParseMalformed, Message: "failed to parse JSON from response", Err: err}
	}
	return out, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject scans for the first '{' and returns the substring up to
// its matching '}', ignoring braces inside string literals.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
