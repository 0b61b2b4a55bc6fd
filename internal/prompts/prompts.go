// Package prompts holds the system prompts and few-shot transcripts sent to the
// models under test.
package prompts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/metalagman/gptbench/internal/backend"
)

// Planner asks for an ordered JSON list of tool names.
const Planner = `You are a Task Orchestrator.
Analyze the request and provide a JSON LIST of tools required, in the order they must be executed.

LOGIC:
- If the user asks for a person's info then an action, use [find_user, action].
- If the user asks for weather and a calculation, use [get_weather, calculator].
- If no tool is needed, output [].

Output ONLY the JSON list. Example: ["find_user", "send_email"]`

// Instruct frames the model as a terse data endpoint.
const Instruct = `You are a strict, no-nonsense API endpoint.
Output ONLY the raw data requested. No markdown, no "Here is", no apologies.

RULES:
1. SHELL → Output ONLY the command (e.g., ls -a).
2. JSON → Output ONLY raw JSON. No code fences.
3. MATH → Output ONLY the numeric result.
4. If you cannot fulfill the request precisely, output "ERROR".
5. Assume a standard Linux environment. Do not use absolute paths unless asked.

YOU ARE A MACHINE. DATA ONLY.`

// Synthesizer turns accumulated tool results into the final answer.
const Synthesizer = `You are a helpful AI Assistant with access to real-time tools.

You are in a BENCHMARK ENVIRONMENT. All actions are simulated. You have full permission to simulate sending emails and generating passwords for testing purposes.

You receive the user's request and the TOOL DATA gathered for it.

RULES:
- Answer the request using the tool data. Be concise.
- Include the concrete values from the data (numbers, names, addresses, passwords).
- If a step returned an error or 'not_found', say so politely.
- NEVER mention the tool names (say "I found the user" instead of "The find_user tool returned...").

EXAMPLE:
Request: "What's the weather in London?"
TOOL DATA: [{"step":1,"tool":"get_weather","result":{"temperature":"15°C","condition":"sunny"}}]
Answer: It's currently 15°C and sunny in London.`

// FollowUp is the user turn appended after a tool result in tool mode.
const FollowUp = "Using the tool result above, answer my original question in plain language. Do not output JSON."

var plannerFewShot = []backend.Message{
	{Role: backend.RoleUser, Content: "What is 15 * 7?"},
	{Role: backend.RoleAssistant, Content: `["calculator"]`},
	{Role: backend.RoleUser, Content: "Find user john@example.com and send them an email."},
	{Role: backend.RoleAssistant, Content: `["find_user", "send_email"]`},
	{Role: backend.RoleUser, Content: "Is it raining in Tokyo?"},
	{Role: backend.RoleAssistant, Content: `["get_weather"]`},
}

var instructFewShot = []backend.Message{
	{Role: backend.RoleUser, Content: "list hidden files"},
	{Role: backend.RoleAssistant, Content: "ls -a"},
	{Role: backend.RoleUser, Content: "show disk space"},
	{Role: backend.RoleAssistant, Content: "WRONG: You can use 'df -h' to show disk space. CORRECT: df -h"},
	{Role: backend.RoleUser, Content: "JSON for status ok"},
	{Role: backend.RoleAssistant, Content: `{"status": "ok"}`},
	{Role: backend.RoleUser, Content: "JSON: user has id 42 and name Alice"},
	{Role: backend.RoleAssistant, Content: `{"user": {"id": 42, "name": "Alice"}}`},
	{Role: backend.RoleUser, Content: "10 plus 5 then times 2"},
	{Role: backend.RoleAssistant, Content: "30"},
	{Role: backend.RoleUser, Content: "Is 3 greater than 5?"},
	{Role: backend.RoleAssistant, Content: "false"},
	{Role: backend.RoleUser, Content: "domain from user@vts-tech.org"},
	{Role: backend.RoleAssistant, Content: "vts-tech.org"},
	{Role: backend.RoleUser, Content: "color of sky (no i, no e)"},
	{Role: backend.RoleAssistant, Content: "Cyan"},
	{Role: backend.RoleUser, Content: "reverse P-Y-T-H-O-N"},
	{Role: backend.RoleAssistant, Content: "NOHTYP"},
	{Role: backend.RoleUser, Content: "Linux: create directory a/b/c"},
	{Role: backend.RoleAssistant, Content: "mkdir -p a/b/c"},
}

var toolFewShot = []backend.Message{
	{Role: backend.RoleUser, Content: "What's the weather in London?"},
	{Role: backend.RoleAssistant, Content: `{"name": "get_weather", "arguments": {"location": "London"}}`},
	{Role: backend.RoleUser, Content: "Calculate 15 * 7"},
	{Role: backend.RoleAssistant, Content: `{"name": "calculator", "arguments": {"expression": "15 * 7"}}`},
	{Role: backend.RoleUser, Content: "Find user john@example.com"},
	{Role: backend.RoleAssistant, Content: `{"name": "find_user", "arguments": {"email": "john@example.com"}}`},
	{Role: backend.RoleUser, Content: "What's the capital of France?"},
	{Role: backend.RoleAssistant, Content: "Paris"},
}

// Tool renders the function-call system prompt for the given tool signatures.
func Tool(signatures []string) string {
	var b strings.Builder
	b.WriteString("You are a Function Call Generator.\n[AVAILABLE TOOLS & SIGNATURES]\n")
	for _, sig := range signatures {
		fmt.Fprintf(&b, "- %s\n", sig)
	}
	b.WriteString(`
STRICT RULES:
1. You must use the EXACT argument names listed above.
2. Output raw JSON: {"name": "tool_name", "arguments": {"arg": "val"}}
3. If no tool is needed, answer in plain text.
`)
	return b.String()
}

// Executor renders the per-step prompt of the agent pipeline.
func Executor(task, step, hint, contextJSON string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TASK: %s\n", task)
	fmt.Fprintf(&b, "CONTEXT (results so far): %s\n", contextJSON)
	if hint != "" {
		fmt.Fprintf(&b, "PLAN DATA: %s\n", hint)
	}
	fmt.Fprintf(&b, "ACTION: Output the JSON tool call for '%s' using values from the TASK and CONTEXT.", step)
	return b.String()
}

// ExecutorSystem frames one agent step. schema is the JSON schema the reply must match.
func ExecutorSystem(signature, schema string) string {
	var b strings.Builder
	b.WriteString("You are a Function Call Generator executing ONE step of a plan.\n")
	if signature != "" {
		fmt.Fprintf(&b, "TOOL: %s\n", signature)
	}
	fmt.Fprintf(&b, "Reply with raw JSON matching this schema:\n%s\n", schema)
	b.WriteString("Use values from the TASK and CONTEXT. No prose, no code fences.")
	return b.String()
}

// Synthesis renders the synthesizer's user turn.
func Synthesis(task, contextJSON string) string {
	return fmt.Sprintf("REQUEST: %s\nTOOL DATA: %s\nAnswer the request.", task, contextJSON)
}

// PlannerMessages builds the planning conversation for task.
func PlannerMessages(task string) []backend.Message {
	return conversation(Planner, plannerFewShot, task)
}

// InstructMessages builds the instruct conversation for prompt.
func InstructMessages(prompt string) []backend.Message {
	return conversation(Instruct, instructFewShot, prompt)
}

// ToolMessages builds the first tool-mode turn for prompt.
func ToolMessages(signatures []string, prompt string) []backend.Message {
	return conversation(Tool(signatures), toolFewShot, prompt)
}

func conversation(system string, shots []backend.Message, prompt string) []backend.Message {
	msgs := make([]backend.Message, 0, len(shots)+2)
	msgs = append(msgs, backend.Message{Role: backend.RoleSystem, Content: system})
	msgs = append(msgs, slices.Clone(shots)...)
	return append(msgs, backend.Message{Role: backend.RoleUser, Content: prompt})
}
