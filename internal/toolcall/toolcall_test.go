package toolcall

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		wantKind Kind
		wantName string
		wantArgs any
		shape    Shape
	}{
		{
			name:     "canonical",
			in:       `{"name": "get_weather", "arguments": {"location": "London"}}`,
			wantKind: ToolCall, wantName: "get_weather",
			wantArgs: map[string]any{"location": "London"}, shape: ShapeNamed,
		},
		{
			name:     "openai tool_calls with string arguments",
			in:       `{"tool_calls": [{"type": "function", "function": {"name": "calculator", "arguments": "{\"expression\": \"15 * 7\"}"}}]}`,
			wantKind: ToolCall, wantName: "calculator",
			wantArgs: map[string]any{"expression": "15 * 7"}, shape: ShapeToolCalls,
		},
		{
			name:     "function params",
			in:       `{"function": "find_user", "params": {"email": "john@example.com"}}`,
			wantKind: ToolCall, wantName: "find_user",
			wantArgs: map[string]any{"email": "john@example.com"}, shape: ShapeFunction,
		},
		{
			name:     "nested function object",
			in:       `{"function": {"name": "get_user", "arguments": {"user_id": 42}}}`,
			wantKind: ToolCall, wantName: "get_user",
			wantArgs: map[string]any{"user_id": float64(42)}, shape: ShapeFunction,
		},
		{
			name:     "tool parameters",
			in:       `{"tool": "hash_text", "parameters": {"text": "x"}}`,
			wantKind: ToolCall, wantName: "hash_text",
			wantArgs: map[string]any{"text": "x"}, shape: ShapeTool,
		},
		{
			name:     "single key fallback",
			in:       `{"create_directory": {"path": "/tmp/x"}}`,
			wantKind: ToolCall, wantName: "create_directory",
			wantArgs: map[string]any{"path": "/tmp/x"}, shape: ShapeSingleKey,
		},
		{
			name:     "fenced",
			in:       "```json\n{\"name\": \"current_time\"}\n```",
			wantKind: ToolCall, wantName: "current_time",
			wantArgs: map[string]any{}, shape: ShapeNamed,
		},
		{
			name:     "undecodable string arguments kept raw",
			in:       `{"name": "calculator", "arguments": "15 * 7"}`,
			wantKind: ToolCall, wantName: "calculator",
			wantArgs: "15 * 7", shape: ShapeNamed,
		},
		{
			name:     "list arguments kept",
			in:       `{"name": "mkdir", "arguments": ["/tmp/a"]}`,
			wantKind: ToolCall, wantName: "mkdir",
			wantArgs: []any{"/tmp/a"}, shape: ShapeNamed,
		},
		{name: "empty tool_calls", in: `{"tool_calls": []}`, wantKind: Malformed},
		{name: "numeric name", in: `{"name": 7, "arguments": {}}`, wantKind: Malformed},
		{name: "plain answer", in: "Paris", wantKind: PlainText},
		{name: "quoted answer", in: `"Paris"`, wantKind: PlainText},
		{name: "json answer object", in: `{"answer": "Paris"}`, wantKind: PlainText},
		{name: "json list", in: `["a", "b"]`, wantKind: PlainText},
		{name: "broken json", in: `{"name": "get_weather", "arguments": {`, wantKind: PlainText},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := Detect(tc.in)
			require.Equal(t, tc.wantKind, res.Kind, "reason: %s", res.Reason)
			if tc.wantKind != ToolCall {
				assert.Empty(t, res.Call.Name)
				return
			}
			assert.Equal(t, tc.wantName, res.Call.Name)
			assert.Equal(t, tc.wantArgs, res.Call.Arguments)
			assert.Equal(t, tc.shape, res.Shape)
		})
	}
}

func TestCanonicalRoundTripIsDetected(t *testing.T) {
	t.Parallel()

	calls := []Call{
		{Name: "calculator", Arguments: map[string]any{"expression": "2+2"}},
		{Name: "send_email", Arguments: map[string]any{"to": "a@b.c", "subject": "s", "body": "b"}},
		{Name: "generate_confirmation_code", Arguments: map[string]any{}},
	}
	for _, call := range calls {
		raw, err := json.Marshal(call)
		require.NoError(t, err)
		assert.True(t, IsToolCall(string(raw)), "%s", raw)
		parsed, ok := Parse(string(raw))
		require.True(t, ok)
		assert.Equal(t, call, parsed)
	}
}

func TestPlainLanguageIsNeverACall(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"Paris", "The capital of France is Paris.", "", "42", "I can help with that!"} {
		assert.False(t, IsToolCall(text), "%q", text)
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	got, ok := ExtractJSON(`Sure! Here is the plan: ["find_user", "send_email"] done`)
	require.True(t, ok)
	assert.Equal(t, `["find_user", "send_email"]`, got)

	got, ok = ExtractJSON(`noise {"a": "}"} tail`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "}"}`, got)

	_, ok = ExtractJSON("not json")
	assert.False(t, ok)

	_, ok = ExtractJSON("[unclosed")
	assert.False(t, ok)
}
