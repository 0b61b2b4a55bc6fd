// Package agent runs the plan, execute, synthesize and validate pipeline that
// grades a model on multi-step tool use.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/gptbench/internal/backend"
	"github.com/metalagman/gptbench/internal/prompts"
	"github.com/metalagman/gptbench/internal/sanitize"
	"github.com/metalagman/gptbench/internal/suite"
	"github.com/metalagman/gptbench/internal/toolcall"
	"github.com/metalagman/gptbench/internal/tools"
)

// Chatter sends one conversation to a model.
type Chatter interface {
	Chat(ctx context.Context, model string, msgs []backend.Message, opts backend.Options) (string, error)
}

// Executor dispatches a raw tool call, repairing it first.
type Executor interface {
	Execute(ctx context.Context, name string, args any) tools.Result
}

// Catalog looks up tool declarations for step schema hints.
type Catalog interface {
	Resolve(name string) (string, bool)
	Spec(name string) (tools.Spec, bool)
}

// Config tunes a Pipeline.
type Config struct {
	// PlannerModel plans every task. Empty means the model under test plans.
	PlannerModel string
	PlanMapping  PlanMapping
	Options      backend.Options
	// NumPredict caps generation per model. Nil leaves Options untouched.
	NumPredict func(model string) int
	// OnState is called on every state transition.
	OnState func(test string, s State)
}

// Run is the record of one pipeline execution.
type Run struct {
	Plan          []Step
	RawPlan       string
	Context       Context
	RawFinal      string
	Final         string
	Pass          bool
	ValidationErr error
	// StepsMatch is nil when the case declares no expected steps.
	StepsMatch    *bool
	ExecutedTools []string
	State         State
	Trace         []State
	Latency       time.Duration
	Err           error
}

// Pipeline wires the model backend to the tool layer.
type Pipeline struct {
	chat    Chatter
	exec    Executor
	catalog Catalog
	cfg     Config
}

// New returns a Pipeline.
func New(chat Chatter, exec Executor, catalog Catalog, cfg Config) *Pipeline {
	if cfg.PlanMapping == "" {
		cfg.PlanMapping = MapKeys
	}
	return &Pipeline{chat: chat, exec: exec, catalog: catalog, cfg: cfg}
}

// Run executes tc against model. Backend failures end the run in StateError with
// Err set; everything else, including tool failures, ends in StateDone.
func (p *Pipeline) Run(ctx context.Context, model string, tc suite.Case) *Run {
	start := time.Now()
	run := &Run{}
	logger := log.With().Str("model", model).Str("test", tc.Name).Logger()

	fail := func(stage string, err error) *Run {
		run.Err = fmt.Errorf("%s: %w", stage, err)
		p.enter(run, tc.Name, StateError)
		run.Latency = time.Since(start)
		logger.Debug().Err(run.Err).Msg("agent run failed")
		return run
	}

	p.enter(run, tc.Name, StatePlanning)
	planner := p.cfg.PlannerModel
	if planner == "" {
		planner = model
	}
	raw, err := p.chat.Chat(ctx, planner, prompts.PlannerMessages(tc.Prompt), p.options(planner).WithFormat(backend.JSONFormat))
	if err != nil {
		return fail("plan", err)
	}
	run.RawPlan = raw
	run.Plan = ParsePlan(raw, p.cfg.PlanMapping)
	logger.Debug().Str("planner", planner).Int("steps", len(run.Plan)).Msg("plan ready")

	if len(run.Plan) > 0 {
		p.enter(run, tc.Name, StateExecuting)
	}
	for i, step := range run.Plan {
		entry, called, err := p.execute(ctx, model, tc.Prompt, i+1, step, run.Context)
		if err != nil {
			return fail(fmt.Sprintf("step %d (%s)", i+1, step.Name), err)
		}
		run.Context = append(run.Context, entry)
		if called {
			run.ExecutedTools = append(run.ExecutedTools, entry.Tool)
		}
	}

	p.enter(run, tc.Name, StateSynthesizing)
	msgs := []backend.Message{
		{Role: backend.RoleSystem, Content: prompts.Synthesizer},
		{Role: backend.RoleUser, Content: prompts.Synthesis(tc.Prompt, run.Context.JSON())},
	}
	run.RawFinal, err = p.chat.Chat(ctx, model, msgs, p.options(model))
	if err != nil {
		return fail("synthesize", err)
	}
	run.Final = sanitize.Clean(run.RawFinal)

	p.enter(run, tc.Name, StateValidating)
	run.Pass, run.ValidationErr = suite.Check(tc.Validator, run.Final)
	if len(tc.Steps) > 0 {
		match := slices.Equal(run.ExecutedTools, tc.Steps)
		run.StepsMatch = &match
	}

	p.enter(run, tc.Name, StateDone)
	run.Latency = time.Since(start)
	return run
}

// execute asks model for the call of one step and dispatches it. called is false
// when the reply held no tool call and the entry only records the reply.
func (p *Pipeline) execute(ctx context.Context, model, task string, n int, step Step, history Context) (entry Entry, called bool, err error) {
	signature, schema := p.stepSchema(step.Name)
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return Entry{}, false, fmt.Errorf("encode step schema: %w", err)
	}
	msgs := []backend.Message{
		{Role: backend.RoleSystem, Content: prompts.ExecutorSystem(signature, string(schemaJSON))},
		{Role: backend.RoleUser, Content: prompts.Executor(task, step.Name, hintText(step.Hint), history.JSON())},
	}
	raw, err := p.chat.Chat(ctx, model, msgs, p.options(model).WithFormat(schemaJSON))
	if err != nil {
		return Entry{}, false, err
	}

	text := sanitize.Clean(raw)
	call, ok := toolcall.Parse(text)
	if !ok {
		if extracted, found := toolcall.ExtractJSON(text); found {
			call, ok = toolcall.Parse(extracted)
		}
	}
	if !ok {
		log.Debug().Str("step", step.Name).Msg("executor reply is not a tool call")
		if text == "" {
			text = emptyResponse
		}
		return Entry{Step: n, Tool: step.Name, Response: text}, false, nil
	}

	res := p.exec.Execute(ctx, call.Name, call.Arguments)
	entry = Entry{Step: n, Tool: res.Tool, Arguments: call.Args()}
	if entry.Tool == "" {
		entry.Tool = call.Name
	}
	if res.OK() {
		entry.Result = res.Data
	} else {
		entry.Error = res.Err.Error()
	}
	log.Debug().Str("step", step.Name).Str("tool", entry.Tool).Bool("ok", res.OK()).Msg("step executed")
	return entry, true, nil
}

// emptyResponse stands in for an executor reply that was blank after cleaning.
const emptyResponse = "(empty response)"

// genericCallSchema constrains steps whose name is not a known tool.
var genericCallSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":      map[string]any{"type": "string"},
		"arguments": map[string]any{"type": "object"},
	},
	"required": []any{"name", "arguments"},
}

func (p *Pipeline) stepSchema(name string) (string, map[string]any) {
	canonical, ok := p.catalog.Resolve(name)
	if !ok {
		return "", genericCallSchema
	}
	spec, ok := p.catalog.Spec(canonical)
	if !ok {
		return "", genericCallSchema
	}
	return spec.Signature(), map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":      map[string]any{"type": "string", "const": canonical},
			"arguments": spec.JSONSchema(),
		},
		"required": []any{"name", "arguments"},
	}
}

func (p *Pipeline) options(model string) backend.Options {
	opts := p.cfg.Options
	if p.cfg.NumPredict != nil {
		opts = opts.WithNumPredict(p.cfg.NumPredict(model))
	}
	return opts
}

func (p *Pipeline) enter(run *Run, test string, s State) {
	run.State = s
	run.Trace = append(run.Trace, s)
	if p.cfg.OnState != nil {
		p.cfg.OnState(test, s)
	}
}

func hintText(hint any) string {
	switch v := hint.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
