package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinSuitesAreValid(t *testing.T) {
	t.Parallel()

	sizes := map[Mode]int{ModeInstruct: 25, ModeTool: 25, ModeAgent: 3}
	for _, mode := range Modes {
		s, err := Builtin(mode)
		require.NoError(t, err)
		require.NoError(t, s.Validate())
		assert.Len(t, s.Cases, sizes[mode], mode)
		assert.Equal(t, mode, s.Mode)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	modes, err := ParseMode("all")
	require.NoError(t, err)
	assert.Equal(t, Modes, modes)

	modes, err = ParseMode("tool")
	require.NoError(t, err)
	assert.Equal(t, []Mode{ModeTool}, modes)

	_, err = ParseMode("chat")
	assert.Error(t, err)
}

func caseByName(t *testing.T, mode Mode, name string) Case {
	t.Helper()
	s, err := Builtin(mode)
	require.NoError(t, err)
	for _, c := range s.Cases {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("case %q not found in %s suite", name, mode)
	return Case{}
}

func TestBuiltinValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode Mode
		name string
		text string
		want bool
	}{
		{ModeInstruct, "S1: List Hidden", "ls -la", true},
		{ModeInstruct, "S1: List Hidden", "dir /a", false},
		{ModeInstruct, "L1: Reverse Word", " n-a-i-b-e-d ", true},
		{ModeInstruct, "L2: Math Step", "The answer is 30.", true},
		{ModeInstruct, "L2: Math Step", "300", false},
		{ModeInstruct, "F3: CSV Extract", "101", true},
		{ModeInstruct, "F3: CSV Extract", "VTSTech,101", false},
		{ModeInstruct, "C1: No Letter E", "Navy", true},
		{ModeInstruct, "C1: No Letter E", "Green", false},
		{ModeInstruct, "C3: No Numbers", "five", true},
		{ModeInstruct, "C3: No Numbers", "five (5)", false},
		{ModeInstruct, "F7: Hex Color", "#FFFFFF", true},
		{ModeTool, "TC3: Basic Math", "15 * 7 = 105", true},
		{ModeTool, "TC9: No Tool Needed", "Paris", true},
		{ModeTool, "TC9: No Tool Needed", `{"name": "lookup", "arguments": {"q": "Paris"}}`, false},
		{ModeTool, "TC23: Generate Password", "Your password: aB3$xyzw", true},
		{ModeTool, "TC23: Generate Password", "abc", false},
		{ModeAgent, "A1: Weather Conversion", "It is 59°F in London.", true},
		{ModeAgent, "A2: User Email", "I sent John Doe an email saying Hello.", true},
		{ModeAgent, "A3: Secure User Email", "A new password was generated and emailed to John.", true},
		{ModeAgent, "A3: Secure User Email", "I could not find the user.", false},
	}
	for _, tt := range tests {
		c := caseByName(t, tt.mode, tt.name)
		assert.Equal(t, tt.want, c.Validator(tt.text), "%s on %q", tt.name, tt.text)
	}
}

func TestCombinators(t *testing.T) {
	t.Parallel()

	v := All(ContainsFold("OK"), Not(Contains("error")), Any(Regex(`^\{`), HasPrefix("[")))
	assert.True(t, v(`{"status":"ok"}`))
	assert.True(t, v(`["ok"]`))
	assert.False(t, v(`{"status":"ok","error":1}`))
	assert.False(t, v(`status ok`))
	assert.True(t, Word("4")("2+2 = 4"))
	assert.False(t, Word("4")("42"))
}

const customSuite = `
name: smoke
mode: tool
cases:
  - name: "M1: Multiply"
    prompt: "Calculate 6 * 7"
    expects_tool: true
    validator:
      any:
        - word: "42"
        - contains: ["forty-two", "forty two"]
          ignore_case: true
  - name: "M2: Plain"
    prompt: "Capital of Italy?"
    validator:
      contains: Rome
      not_tool_call: true
`

func TestParseYAML(t *testing.T) {
	t.Parallel()

	s, err := Parse([]byte(customSuite), ModeInstruct)
	require.NoError(t, err)
	assert.Equal(t, "smoke", s.Name)
	assert.Equal(t, ModeTool, s.Mode)
	require.Len(t, s.Cases, 2)

	m1 := s.Cases[0]
	assert.True(t, m1.ExpectsTool)
	assert.True(t, m1.Validator("6*7 is 42"))
	assert.True(t, m1.Validator("Forty-Two"))
	assert.False(t, m1.Validator("420"))

	m2 := s.Cases[1]
	assert.True(t, m2.Validator("Rome"))
	assert.False(t, m2.Validator(`{"name":"capital","arguments":{"country":"Rome"}}`))
}

func TestParseYAMLErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown field":   "cases:\n  - name: x\n    prompt: y\n    validator: {contains: a}\n    color: red\n",
		"empty validator": "cases:\n  - name: x\n    prompt: y\n    validator: {}\n",
		"bad regex":       "cases:\n  - name: x\n    prompt: y\n    validator: {regex: '('}\n",
		"no cases":        "name: empty\n",
		"bad mode":        "mode: chat\ncases:\n  - name: x\n    prompt: y\n    validator: {contains: a}\n",
		"duplicate":       "cases:\n  - {name: x, prompt: y, validator: {contains: a}}\n  - {name: x, prompt: z, validator: {contains: a}}\n",
	}
	for name, doc := range tests {
		_, err := Parse([]byte(doc), ModeInstruct)
		assert.Error(t, err, name)
	}
}

func TestLoadFileUsesFallbackMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "agent.yaml")
	doc := "cases:\n  - name: A9\n    prompt: do it\n    steps: [calculator]\n    validator: {word: '105'}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := LoadFile(path, ModeAgent)
	require.NoError(t, err)
	assert.Equal(t, ModeAgent, s.Mode)
	assert.Equal(t, "agent", s.Name)
	assert.Equal(t, []string{"calculator"}, s.Cases[0].Steps)
}

func TestCheckRecoversPanics(t *testing.T) {
	t.Parallel()

	pass, err := Check(func(string) bool { panic("boom") }, "x")
	assert.False(t, pass)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	pass, err = Check(Contains("x"), "x")
	assert.True(t, pass)
	assert.NoError(t, err)
}
