package jsonextract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Extract
// ==========================

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{
			name:     "bare array",
			input:    `[{"title":"a"},{"title":"b"}]`,
			expected: []any{map[string]any{"title": "a"}, map[string]any{"title": "b"}},
		},
		{
			name:     "array wrapped in prose",
			input:    "Sure! Here are the stories:\n[{\"title\":\"a\"}]\nLet me know if you need more.",
			expected: []any{map[string]any{"title": "a"}},
		},
		{
			name:     "array in markdown fence",
			input:    "Here is the result: ```json\n[{\"module\":\"Login\"}]\n```",
			expected: []any{map[string]any{"module": "Login"}},
		},
		{
			name:     "fence preferred over braces in surrounding prose",
			input:    "Format {like this}.\n```json\n[{\"title\":\"x\"}]\n```\nDone {ok}",
			expected: []any{map[string]any{"title": "x"}},
		},
		{
			name:     "single object",
			input:    `Result: {"module":"Cart","features":["add","remove"]}`,
			expected: map[string]any{"module": "Cart", "features": []any{"add", "remove"}},
		},
		{
			name:     "double escaped quotes",
			input:    `[{\"title\": \"Reset password\"}]`,
			expected: []any{map[string]any{"title": "Reset password"}},
		},
		{
			name:     "escaped quotes inside a valid string are kept",
			input:    `[{"title": "Say \"hi\""}]`,
			expected: []any{map[string]any{"title": `Say "hi"`}},
		},
		{
			name:     "numbers keep their text form",
			input:    `[{"priority": 1}]`,
			expected: []any{map[string]any{"priority": json.Number("1")}},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "whitespace input",
			input:    "   \n\t",
			expected: nil,
		},
		{
			name:     "no json at all",
			input:    "I cannot help with that.",
			expected: nil,
		},
		{
			name:     "truncated array",
			input:    `[{"title":"a"},{"title":"b"},{"title":"c`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Extract(tt.input))
		})
	}
}

// ==========================
// RecoverObjects
// ==========================

func TestRecoverObjects(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []map[string]any
	}{
		{
			name:  "truncated stream keeps complete objects",
			input: `[{"title":"a"},{"title":"b"},{"title":"c","steps":"1`,
			expected: []map[string]any{
				{"title": "a"},
				{"title": "b"},
			},
		},
		{
			name:  "nested objects stay inside their parent",
			input: `[{"title":"a","meta":{"k":"v"}},{"title":"b"}`,
			expected: []map[string]any{
				{"title": "a", "meta": map[string]any{"k": "v"}},
				{"title": "b"},
			},
		},
		{
			name:  "braces inside strings do not end the object",
			input: `[{"title":"use {curly} braces"},{"title":"b"`,
			expected: []map[string]any{
				{"title": "use {curly} braces"},
			},
		},
		{
			name:  "malformed fragment is dropped",
			input: `{"title":"a"} {"title": oops} {"title":"c"}`,
			expected: []map[string]any{
				{"title": "a"},
				{"title": "c"},
			},
		},
		{
			name:  "stray quote in prose",
			input: `The model said "here: [{"title":"a"}`,
			expected: []map[string]any{
				{"title": "a"},
			},
		},
		{
			name:  "double escaped object",
			input: `{\"title\": \"a\"}`,
			expected: []map[string]any{
				{"title": "a"},
			},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "unmatched closing braces",
			input:    "}} nothing here",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RecoverObjects(tt.input))
		})
	}
}

func TestParse_ReturnsBothPaths(t *testing.T) {
	value, objects := Parse("```json\n[{\"title\":\"a\"},{\"title\":\"b\"}]\n```")

	list, ok := value.([]any)
	require.True(t, ok)
	assert.Len(t, list, 2)
	assert.Len(t, objects, 2)
}

func TestParse_TruncatedFallsBackToObjects(t *testing.T) {
	value, objects := Parse("```json\n[{\"title\":\"a\"},{\"title\":\"b\"},{\"tit")

	assert.Nil(t, value)
	require.Len(t, objects, 2)
	assert.Equal(t, "b", objects[1]["title"])
}
