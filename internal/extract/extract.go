// Package extract pulls a JSON object out of free-form model output.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject is returned when the text holds no well-formed JSON object.
var ErrNoObject = errors.New("extract: no JSON object found")

const fence = "```"

// Object returns the first JSON object in text. A fenced block is preferred;
// otherwise the first balanced {...} span that parses is used.
func Object(text string) (string, error) {
	if obj, ok := fenced(text); ok {
		return obj, nil
	}
	if obj, ok := bare(text); ok {
		return obj, nil
	}
	return "", ErrNoObject
}

// Decode extracts the first JSON object in text and unmarshals it into T.
func Decode[T any](text string) (T, error) {
	var v T
	obj, err := Object(text)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return v, fmt.Errorf("extract: decode %T: %w", v, err)
	}
	return v, nil
}

func fenced(text string) (string, bool) {
	rest := text
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			return "", false
		}
		body := rest[open+len(fence):]
		// Drop the info string, e.g. "json".
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.Contains(body[:nl], "{") {
			body = body[nl+1:]
		}
		end := strings.Index(body, fence)
		if end < 0 {
			return "", false
		}
		if candidate := strings.TrimSpace(body[:end]); isObject(candidate) {
			return candidate, true
		}
		rest = body[end+len(fence):]
	}
}

func bare(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text, start); ok {
			if candidate := text[start : end+1]; json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return i, true
			}
		}
	}
	return 0, false
}

func isObject(s string) bool {
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}
