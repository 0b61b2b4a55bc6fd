package agent

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/gptbench/internal/backend"
	"github.com/metalagman/gptbench/internal/normalize"
	"github.com/metalagman/gptbench/internal/suite"
	"github.com/metalagman/gptbench/internal/tools"
)

type chatCall struct {
	model string
	msgs  []backend.Message
	opts  backend.Options
}

// scriptedChat replies with the queued answers in order.
type scriptedChat struct {
	mu      sync.Mutex
	replies []string
	errAt   int
	err     error
	calls   []chatCall
}

func (s *scriptedChat) Chat(_ context.Context, model string, msgs []backend.Message, opts backend.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, chatCall{model: model, msgs: msgs, opts: opts})
	if s.err != nil && len(s.calls) == s.errAt {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func newPipeline(t *testing.T, chat Chatter, cfg Config) *Pipeline {
	t.Helper()
	reg, err := tools.New(tools.Options{
		BaseDir: t.TempDir(),
		Now:     func() time.Time { return time.Date(2024, time.March, 10, 12, 30, 0, 0, time.UTC) },
		Source:  rand.NewPCG(1, 2),
	})
	require.NoError(t, err)
	return New(chat, normalize.New(reg), reg, cfg)
}

func TestPipelineCalculatorPlan(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{replies: []string{
		`["calculator"]`,
		`{"name": "calculator", "arguments": {"expression": "15 * 7"}}`,
		"15 times 7 is 105.",
	}}
	var seen []State
	p := newPipeline(t, chat, Config{
		PlannerModel: "planner",
		Options:      backend.DefaultOptions(),
		NumPredict:   func(string) int { return 64 },
		OnState:      func(_ string, s State) { seen = append(seen, s) },
	})

	run := p.Run(context.Background(), "m", suite.Case{
		Name: "calc", Prompt: "What is 15 * 7?", Validator: suite.Contains("105"), Steps: []string{"calculator"},
	})

	require.NoError(t, run.Err)
	assert.Equal(t, []Step{{Name: "calculator"}}, run.Plan)
	require.Len(t, run.Context, 1)
	assert.Equal(t, "calculator", run.Context[0].Tool)
	assert.Equal(t, int64(105), run.Context[0].Result["result"])
	assert.True(t, run.Pass)
	require.NotNil(t, run.StepsMatch)
	assert.True(t, *run.StepsMatch)
	assert.Equal(t, []string{"calculator"}, run.ExecutedTools)
	assert.Equal(t, StateDone, run.State)
	want := []State{StatePlanning, StateExecuting, StateSynthesizing, StateValidating, StateDone}
	assert.Equal(t, want, run.Trace)
	assert.Equal(t, want, seen)
	assert.Positive(t, run.Latency)

	require.Len(t, chat.calls, 3)
	assert.Equal(t, "planner", chat.calls[0].model)
	assert.JSONEq(t, `"json"`, string(chat.calls[0].opts.Format))
	assert.Equal(t, "m", chat.calls[1].model)
	assert.Contains(t, string(chat.calls[1].opts.Format), `"const":"calculator"`)
	assert.Equal(t, 64, *chat.calls[1].opts.NumPredict)
	assert.Contains(t, chat.calls[2].msgs[1].Content, `"result":105`)
	assert.Nil(t, chat.calls[2].opts.Format)
}

func TestPipelineMalformedPlanSynthesizes(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{replies: []string{"not json at all", "Paris"}}
	p := newPipeline(t, chat, Config{})

	run := p.Run(context.Background(), "m", suite.Case{Name: "q", Prompt: "capital?", Validator: suite.Contains("Paris")})

	require.NoError(t, run.Err)
	assert.Empty(t, run.Plan)
	assert.Empty(t, run.Context)
	assert.True(t, run.Pass)
	assert.Nil(t, run.StepsMatch)
	assert.Equal(t, []State{StatePlanning, StateSynthesizing, StateValidating, StateDone}, run.Trace)
	require.Len(t, chat.calls, 2)
	assert.Equal(t, "m", chat.calls[0].model, "planner falls back to the model under test")
	assert.Contains(t, chat.calls[1].msgs[1].Content, "TOOL DATA: []")
}

func TestPipelineFoldsToolFailuresIntoContext(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{replies: []string{
		`["launch_rocket", "get_user"]`,
		`{"name": "launch_rocket", "arguments": {}}`,
		"I cannot do that.",
		"Nothing worked.",
	}}
	p := newPipeline(t, chat, Config{})

	run := p.Run(context.Background(), "m", suite.Case{
		Name: "fail", Prompt: "go", Validator: suite.Contains("worked"), Steps: []string{"get_user"},
	})

	require.NoError(t, run.Err)
	require.Len(t, run.Context, 2)
	assert.Equal(t, "Tool 'launch_rocket' not found", run.Context[0].Error)
	assert.Equal(t, Entry{Step: 2, Tool: "get_user", Response: "I cannot do that."}, run.Context[1])
	assert.Equal(t, []string{"launch_rocket"}, run.ExecutedTools)
	require.NotNil(t, run.StepsMatch)
	assert.False(t, *run.StepsMatch)
	assert.True(t, run.Pass)
	assert.NotContains(t, string(chat.calls[1].opts.Format), "const", "unknown steps get the generic schema")
}

func TestPipelineBlankExecutorReplyIsNotAToolRun(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{replies: []string{`["calculator"]`, "   ", "no idea"}}
	p := newPipeline(t, chat, Config{})

	run := p.Run(context.Background(), "m", suite.Case{
		Name: "blank", Prompt: "15*7", Validator: suite.Contains("105"), Steps: []string{"calculator"},
	})

	require.NoError(t, run.Err)
	require.Len(t, run.Context, 1)
	assert.Equal(t, Entry{Step: 1, Tool: "calculator", Response: emptyResponse}, run.Context[0])
	assert.Empty(t, run.ExecutedTools)
	require.NotNil(t, run.StepsMatch)
	assert.False(t, *run.StepsMatch)
	assert.False(t, run.Pass)
	assert.Contains(t, chat.calls[2].msgs[1].Content, `"response":"(empty response)"`)
}

func TestPipelineContextFlowsBetweenSteps(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{replies: []string{
		`{"find_user": {"email": "john@example.com"}, "send_email": null}`,
		"```json\n{\"name\": \"find_user\", \"arguments\": {\"email\": \"john@example.com\"}}\n```",
		`Sure: {"name": "send_email", "arguments": {"to": "john@example.com", "subject": "Hi", "body": "Hello"}}`,
		"Email sent to John Doe.",
	}}
	p := newPipeline(t, chat, Config{})

	run := p.Run(context.Background(), "m", suite.Case{
		Name: "A2", Prompt: "Email john", Validator: suite.ContainsFold("sent"),
	})

	require.NoError(t, run.Err)
	require.Len(t, run.Context, 2)
	assert.Equal(t, "find_user", run.Context[0].Tool)
	assert.Equal(t, "send_email", run.Context[1].Tool)
	assert.Equal(t, "sent", run.Context[1].Result["status"])
	assert.Contains(t, chat.calls[1].msgs[1].Content, `PLAN DATA: {"email":"john@example.com"}`)
	assert.Contains(t, chat.calls[2].msgs[1].Content, `"tool":"find_user"`)
	assert.True(t, run.Pass)
}

func TestPipelineBackendErrorEndsRun(t *testing.T) {
	t.Parallel()

	boom := &backend.CallError{Kind: backend.ErrorNetwork, Model: "m", Message: "connection refused"}
	chat := &scriptedChat{replies: []string{`["calculator"]`}, err: boom, errAt: 2}
	p := newPipeline(t, chat, Config{})

	run := p.Run(context.Background(), "m", suite.Case{Name: "x", Prompt: "15*7", Validator: suite.Contains("105")})

	require.Error(t, run.Err)
	assert.ErrorIs(t, run.Err, boom)
	assert.Contains(t, run.Err.Error(), "step 1 (calculator)")
	assert.Equal(t, StateError, run.State)
	assert.False(t, run.Pass)
	assert.Len(t, chat.calls, 2)
}

func TestPipelineValidatorPanicFails(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{replies: []string{"[]", "answer"}}
	p := newPipeline(t, chat, Config{})

	run := p.Run(context.Background(), "m", suite.Case{
		Name: "panic", Prompt: "x", Validator: func(string) bool { panic("bad validator") },
	})

	require.NoError(t, run.Err)
	assert.False(t, run.Pass)
	assert.Error(t, run.ValidationErr)
	assert.Equal(t, StateDone, run.State)
}
