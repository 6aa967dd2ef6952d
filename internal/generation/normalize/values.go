package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// itemDelimiters splits a single delimited string into list items: newline,
// carriage return, tab, semicolon, bullet and hyphen.
var itemDelimiters = regexp.MustCompile(`[\r\n\t;•\-]+`)

// SplitItems splits s on item delimiters and returns the non-empty trimmed
// pieces in order.
func SplitItems(s string) []string {
	parts := itemDelimiters.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// asList applies the input tolerance rules: a single mapping becomes a
// singleton list and anything falsy becomes empty.
func asList(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case map[string]any:
		return []any{v}
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}

// field returns the first non-empty text value among keys.
func field(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := text(item[k]); s != "" {
			return s
		}
	}
	return ""
}

// list returns the first non-empty list value among keys. A string value is
// split with SplitItems.
func list(item map[string]any, keys ...string) []string {
	for _, k := range keys {
		if items := toList(item[k]); len(items) > 0 {
			return items
		}
	}
	return []string{}
}

func toList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return SplitItems(val)
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s := text(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := text(val); s != "" {
			return []string{s}
		}
		return nil
	}
}

// text renders a decoded JSON value as display text. Strings come back as
// given; a blank string counts as empty.
func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if strings.TrimSpace(val) == "" {
			return ""
		}
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		if !val {
			return ""
		}
		return "true"
	case []any:
		parts := make([]string, 0, len(val))
		for _, e := range val {
			if s := text(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// yesNo renders end-to-end style flags, accepting booleans from the model.
func yesNo(v any) string {
	if b, ok := v.(bool); ok {
		if b {
			return "Yes"
		}
		return "No"
	}
	return text(v)
}
