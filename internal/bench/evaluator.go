package bench

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/gptbench/internal/agent"
	"github.com/metalagman/gptbench/internal/backend"
	"github.com/metalagman/gptbench/internal/prompts"
	"github.com/metalagman/gptbench/internal/sanitize"
	"github.com/metalagman/gptbench/internal/suite"
	"github.com/metalagman/gptbench/internal/toolcall"
)

// Chatter sends one conversation to a model.
type Chatter interface {
	Chat(ctx context.Context, model string, msgs []backend.Message, opts backend.Options) (string, error)
}

// Evaluator grades one case against one model. It fills everything but RunID,
// Mode and At, which the Runner stamps.
type Evaluator interface {
	Evaluate(ctx context.Context, model string, tc suite.Case) Result
}

// Generation carries the options every call of an evaluator starts from.
type Generation struct {
	Options backend.Options
	// NumPredict caps generation per model. Nil leaves Options untouched.
	NumPredict func(model string) int
}

func (g Generation) options(model string) backend.Options {
	opts := g.Options
	if g.NumPredict != nil {
		opts = opts.WithNumPredict(g.NumPredict(model))
	}
	return opts
}

// grade turns a validator verdict into an outcome.
func grade(res *Result, v suite.Validator, text string, extra bool) {
	pass, err := suite.Check(v, text)
	if err != nil {
		res.Error = err.Error()
	}
	if pass && extra {
		res.Outcome = Pass
	} else {
		res.Outcome = Fail
	}
}

func errored(res Result, start time.Time, err error) Result {
	res.Outcome = Error
	res.Error = err.Error()
	res.Latency = time.Since(start)
	return res
}

// Instruct grades plain single-turn answers.
type Instruct struct {
	Chat Chatter
	Gen  Generation
}

// Evaluate implements Evaluator.
func (e *Instruct) Evaluate(ctx context.Context, model string, tc suite.Case) Result {
	res := Result{Model: model, Test: tc.Name}
	opts := e.Gen.options(model)
	if wantsJSON(tc) {
		opts = opts.WithFormat(backend.JSONFormat)
	}

	start := time.Now()
	raw, err := e.Chat.Chat(ctx, model, prompts.InstructMessages(tc.Prompt), opts)
	if err != nil {
		return errored(res, start, err)
	}
	res.Latency = time.Since(start)
	res.Raw = raw
	res.Sanitized = sanitize.Clean(raw)
	res.FinalResponse = raw
	grade(&res, tc.Validator, res.Sanitized, true)
	return res
}

func wantsJSON(tc suite.Case) bool {
	return strings.Contains(strings.ToUpper(tc.Name), "JSON") || strings.Contains(strings.ToUpper(tc.Prompt), "JSON")
}

// Tool grades one tool call followed by a natural-language answer.
type Tool struct {
	Chat       Chatter
	Exec       agent.Executor
	Signatures []string
	Gen        Generation
}

// Evaluate implements Evaluator.
func (e *Tool) Evaluate(ctx context.Context, model string, tc suite.Case) Result {
	res := Result{Model: model, Test: tc.Name}
	opts := e.Gen.options(model)
	msgs := prompts.ToolMessages(e.Signatures, tc.Prompt)

	start := time.Now()
	raw, err := e.Chat.Chat(ctx, model, msgs, opts)
	if err != nil {
		return errored(res, start, err)
	}
	res.Raw = raw
	res.Sanitized = sanitize.Clean(raw)

	if !tc.ExpectsTool {
		res.Latency = time.Since(start)
		res.FinalResponse = raw
		grade(&res, tc.Validator, res.Sanitized, !toolcall.IsToolCall(raw))
		return res
	}

	call, ok := toolcall.Parse(raw)
	if !ok {
		call, ok = toolcall.Parse(res.Sanitized)
	}
	if !ok {
		res.Latency = time.Since(start)
		res.Outcome = Fail
		res.Error = "no tool call"
		return res
	}
	res.ToolCall = &call

	out := e.Exec.Execute(ctx, call.Name, call.Arguments)
	res.ToolResult = out.Value()
	log.Debug().Str("test", tc.Name).Str("tool", call.Name).Bool("ok", out.OK()).Msg("tool executed")

	name := out.Tool
	if name == "" {
		name = call.Name
	}
	msgs = append(msgs,
		backend.Message{Role: backend.RoleAssistant, Content: strings.TrimSpace(raw)},
		backend.Message{Role: backend.RoleTool, Content: out.JSON(), Name: name},
		backend.Message{Role: backend.RoleUser, Content: prompts.FollowUp},
	)
	final, err := e.Chat.Chat(ctx, model, msgs, opts)
	if err != nil {
		return errored(res, start, err)
	}
	res.Latency = time.Since(start)
	res.FinalResponse = final
	res.Sanitized = sanitize.Clean(final)
	grade(&res, tc.Validator, res.Sanitized, true)
	return res
}

// Agent grades multi-step runs through the agent pipeline.
type Agent struct {
	Pipeline *agent.Pipeline
}

// Evaluate implements Evaluator.
func (e *Agent) Evaluate(ctx context.Context, model string, tc suite.Case) Result {
	run := e.Pipeline.Run(ctx, model, tc)
	res := Result{
		Model:         model,
		Test:          tc.Name,
		Latency:       run.Latency,
		Raw:           run.RawFinal,
		Sanitized:     run.Final,
		FinalResponse: run.Final,
		Plan:          run.Plan,
		Context:       run.Context,
		StepsMatch:    run.StepsMatch,
	}
	switch {
	case run.Err != nil:
		res.Outcome = Error
		res.Error = run.Err.Error()
	case run.Pass:
		res.Outcome = Pass
	default:
		res.Outcome = Fail
		if run.ValidationErr != nil {
			res.Error = run.ValidationErr.Error()
		}
	}
	return res
}
