// Package jsonextract recovers JSON values from free-form generation output.
//
// Model responses wrap JSON in prose or markdown fences, double-escape
// quotes, and are sometimes cut off mid-array. Extract pulls out the whole
// embedded value when it decodes; RecoverObjects salvages every complete
// top-level object when it does not.
package jsonextract

import (
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
)

var escapeReplacer = strings.NewReplacer(`\'`, `'`, `\"`, `"`)

// Parse runs both extraction paths over text.
func Parse(text string) (any, []map[string]any) {
	return Extract(text), RecoverObjects(text)
}

// Extract returns the decoded JSON array or object embedded in text, or nil
// when nothing decodes. A fenced code block is searched before the rest of
// the text. Within a region the candidate that opens first wins: the span
// from the first '[' to the last ']' or from the first '{' to the last '}'.
func Extract(text string) any {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, region := range regions(text) {
		for _, candidate := range spans(region) {
			if v, ok := decodeLenient(candidate); ok {
				return v
			}
		}
	}
	return nil
}

// RecoverObjects scans text for balanced top-level {...} spans and returns
// every one that decodes as a JSON object, in order of appearance.
// Fragments that fail to decode are dropped.
func RecoverObjects(text string) []map[string]any {
	var (
		out      []map[string]any
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		// quotes only matter inside an object; prose may contain stray ones
		if depth > 0 && inString {
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
		case '\\':
			// double-escaped output: \" outside a string is not a quote
			if depth > 0 {
				i++
			}
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				if obj, ok := decodeObject(text[start : i+1]); ok {
					out = append(out, obj)
				}
				start = -1
			}
		}
	}
	return out
}

// regions returns the contents of the first fenced code block (if any)
// followed by the full text.
func regions(text string) []string {
	out := make([]string, 0, 2)
	if body, ok := fencedBlock(text); ok {
		out = append(out, body)
	}
	return append(out, text)
}

func fencedBlock(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	rest := text[open+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return "", false
	}
	rest = rest[nl+1:]
	end := strings.Index(rest, "```")
	if end < 0 {
		// unterminated fence: the response was cut off
		return rest, true
	}
	return rest[:end], true
}

type span struct {
	start int
	body  string
}

func spans(text string) []string {
	var found []span
	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		first := strings.IndexByte(text, pair[0])
		last := strings.LastIndexByte(text, pair[1])
		if first >= 0 && last > first {
			found = append(found, span{start: first, body: text[first : last+1]})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })

	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.body
	}
	return out
}

// decodeLenient tries the text as-is and then with \' and \" unescaped.
func decodeLenient(s string) (any, bool) {
	if v, err := decode(s); err == nil {
		return v, true
	}
	unescaped := escapeReplacer.Replace(s)
	if unescaped == s {
		return nil, false
	}
	v, err := decode(unescaped)
	return v, err == nil
}

func decodeObject(s string) (map[string]any, bool) {
	v, ok := decodeLenient(s)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

var errTrailingData = errors.New("trailing data after JSON value")

func decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	if v == nil {
		return nil, errors.New("null JSON value")
	}
	return v, nil
}
