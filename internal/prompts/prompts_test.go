package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/gptbench/internal/backend"
)

func TestConversationsFrameThePrompt(t *testing.T) {
	t.Parallel()

	for name, msgs := range map[string][]backend.Message{
		"planner":  PlannerMessages("task"),
		"instruct": InstructMessages("task"),
		"tool":     ToolMessages([]string{"calculator(expression: string)"}, "task"),
	} {
		require.GreaterOrEqual(t, len(msgs), 3, name)
		assert.Equal(t, backend.RoleSystem, msgs[0].Role, name)
		last := msgs[len(msgs)-1]
		assert.Equal(t, backend.RoleUser, last.Role, name)
		assert.Equal(t, "task", last.Content, name)
	}
}

func TestConversationDoesNotAliasFewShot(t *testing.T) {
	t.Parallel()

	msgs := InstructMessages("a")
	msgs[1].Content = "mutated"
	assert.Equal(t, "list hidden files", InstructMessages("b")[1].Content)
}

func TestToolListsSignatures(t *testing.T) {
	t.Parallel()

	prompt := Tool([]string{"get_weather(location: string)", "calculator(expression: string)"})
	assert.Contains(t, prompt, "- get_weather(location: string)\n")
	assert.Contains(t, prompt, "- calculator(expression: string)\n")
	assert.Contains(t, prompt, `{"name": "tool_name"`)
}

func TestExecutorCarriesPlanData(t *testing.T) {
	t.Parallel()

	user := Executor("send it", "send_email", `{"to":"x"}`, `[{"step":1}]`)
	assert.Contains(t, user, "TASK: send it\n")
	assert.Contains(t, user, `PLAN DATA: {"to":"x"}`)
	assert.Contains(t, user, "'send_email'")
	assert.NotContains(t, Executor("t", "s", "", "[]"), "PLAN DATA")

	system := ExecutorSystem("", `{"type":"object"}`)
	assert.NotContains(t, system, "TOOL:")
	assert.Contains(t, system, `{"type":"object"}`)
}
