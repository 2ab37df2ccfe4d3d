// Package sanitize strips the database-incompatible byte sequences
// from a JSON document before it is handed to the persister: escaped
// or raw NUL removal, then invalid UTF-8 repair.
package sanitize

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// String removes the PostgreSQL-incompatible byte sequences from s:
// the NUL codepoint (raw and its common escaped spellings), then
// repairs ill-formed UTF-8 by substituting the replacement character.
func String(s string) string {
	s = strings.ReplaceAll(s, "\\u0000", "")
	s = strings.ReplaceAll(s, "\\U0000", "")
	if strings.ContainsRune(s, 0) {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return s
}

// JSON walks an arbitrary decoded JSON value recursively and returns a
// new value with every string leaf and object key sanitized; the input
// is not modified. Numbers, bools, and null pass through unchanged.
func JSON(v any) any {
	switch val := v.(type) {
	case string:
		return String(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = JSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[String(k)] = JSON(e)
		}
		return out
	default:
		return val
	}
}

// Document sanitizes a raw JSON document by decoding it, sanitizing
// every string leaf, and re-encoding. It returns an error if raw is
// not valid JSON, since a corrupt payload should be treated as a
// canonicalization failure, not silently dropped.
func Document(raw json.RawMessage) (json.RawMessage, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	cleaned := JSON(v)
	out, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	return out, nil
}
