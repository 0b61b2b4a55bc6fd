package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		mapping PlanMapping
		want    []Step
	}{
		{name: "list", raw: `["find_user", "send_email"]`, want: []Step{{Name: "find_user"}, {Name: "send_email"}}},
		{name: "empty list", raw: `[]`, want: []Step{}},
		{name: "fenced", raw: "```json\n[\"calculator\"]\n```", want: []Step{{Name: "calculator"}}},
		{name: "prose", raw: `The plan is ["get_weather"] as requested.`, want: []Step{{Name: "get_weather"}}},
		{name: "think block", raw: `<think>hmm</think>["calculator"]`, want: []Step{{Name: "calculator"}}},
		{name: "scalar string", raw: `"calculator"`, want: []Step{{Name: "calculator"}}},
		{name: "garbage", raw: "I would call some tools", want: nil},
		{name: "bare words", raw: "not json", want: nil},
		{name: "quoted words are one step", raw: `"not json"`, want: []Step{{Name: "not json"}}},
		{name: "null", raw: "null", want: nil},
		{
			name: "keys keep order",
			raw:  `{"send_email": {"to": "a@b.c"}, "find_user": null}`,
			want: []Step{{Name: "send_email", Hint: map[string]any{"to": "a@b.c"}}, {Name: "find_user"}},
		},
		{
			name:    "values",
			raw:     `{"step1": "get_weather", "step2": "convert_units"}`,
			mapping: MapValues,
			want:    []Step{{Name: "get_weather", Hint: "step1"}, {Name: "convert_units", Hint: "step2"}},
		},
		{
			name: "steps wrapper",
			raw:  `{"steps": ["get_user", "generate_password"]}`,
			want: []Step{{Name: "get_user"}, {Name: "generate_password"}},
		},
		{
			name: "object items",
			raw:  `[{"tool": "get_weather", "location": "London"}, {"name": "convert_units"}]`,
			want: []Step{
				{Name: "get_weather", Hint: map[string]any{"location": "London"}},
				{Name: "convert_units"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParsePlan(tt.raw, tt.mapping))
		})
	}
}

func TestContextJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[]", Context(nil).JSON())
	ctx := Context{
		{Step: 1, Tool: "calculator", Result: map[string]any{"result": 105}},
		{Step: 2, Tool: "send_email", Error: "boom"},
	}
	assert.JSONEq(t, `[
		{"step":1,"tool":"calculator","result":{"result":105}},
		{"step":2,"tool":"send_email","error":"boom"}
	]`, ctx.JSON())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "PLANNING", StatePlanning.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
