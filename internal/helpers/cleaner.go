package helpers

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no balanced JSON value can be located in a
// model response.
var ErrNoJSON = errors.New("no balanced JSON object/array found")

// DecodeLLMJSON locates the first JSON object or array inside a raw model
// response and unmarshals it into out. Markdown code fences around the
// payload are tolerated, as is prose before or after it.
func DecodeLLMJSON(raw string, out any) error {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(payload), out)
}

// ExtractJSON finds and returns the first JSON object or array in s. It
// unwraps a leading Markdown code fence if present, then scans for a
// balanced {...} or [...] while ignoring braces inside strings.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "\uFEFF")

	if inner, ok := stripCodeFence(s); ok {
		s = strings.TrimSpace(inner)
	}

	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			if out, ok := balancedFrom(s, i); ok {
				return out, nil
			}
		}
	}
	return "", ErrNoJSON
}

// stripCodeFence removes the first fenced code block when s starts with
// ``` or ~~~, accepting an optional language tag (e.g. ```json).
func stripCodeFence(s string) (string, bool) {
	fence := ""
	switch {
	case strings.HasPrefix(s, "```"):
		fence = "```"
	case strings.HasPrefix(s, "~~~"):
		fence = "~~~"
	default:
		return "", false
	}
	rest := s[len(fence):]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	rest = rest[nl+1:]
	if end := strings.Index(rest, fence); end != -1 {
		return rest[:end], true
	}
	// Unterminated fence: the model was likely cut off mid-payload, hand
	// back the remainder and let the balanced scan decide.
	return rest, true
}

// balancedFrom extracts a balanced JSON value starting at startIdx,
// handling strings and escape sequences.
func balancedFrom(s string, startIdx int) (string, bool) {
	open := s[startIdx]
	if open != '{' && open != '[' {
		return "", false
	}

	var stack []byte
	stack = append(stack, open)
	inString, escape := false, false

	for i := startIdx + 1; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[startIdx : i+1], true
			}
		}
	}
	return "", false
}
