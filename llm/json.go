package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON returns the JSON object embedded in model output. Markdown
// code fences are stripped and the text between the first '{' and its
// matching '}' is returned. Braces inside JSON strings are ignored.
func ExtractJSON(content string) (string, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return "", ErrNoJSON
	}

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
				obj := s[start : i+1]
				if !json.Valid([]byte(obj)) {
					return "", ErrNoJSON
				}
				return obj, nil
			}
		}
	}
	return "", ErrNoJSON
}
