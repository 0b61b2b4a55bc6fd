package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/gptbench/internal/agent"
	"github.com/metalagman/gptbench/internal/backend"
	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/config"
	"github.com/metalagman/gptbench/internal/db"
	"github.com/metalagman/gptbench/internal/lock"
	"github.com/metalagman/gptbench/internal/logging"
	"github.com/metalagman/gptbench/internal/report"
	"github.com/metalagman/gptbench/internal/suite"
	"github.com/metalagman/gptbench/internal/tui"
)

func runCmd() *cobra.Command {
	var (
		useTUI   bool
		noPull   bool
		noWarmup bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark the configured models",
		Example: `  gptbench run --mode tool --models granite4:350m
  gptbench run --mode all --models qwen2.5:0.5b,llama3.2:1b --tui`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd.Flags(), map[string]string{
				"models":         "models",
				"mode":           "mode",
				"delay":          "delay",
				"verbose":        "verbose",
				"csv":            "output.csv",
				"json":           "output.json_prefix",
				"sqlite":         "output.sqlite",
				"planner":        "agent.planner_model",
				"plan-mapping":   "agent.plan_mapping",
				"backend":        "backend.type",
				"base-url":       "backend.base_url",
				"instruct-suite": "suites.instruct",
				"tool-suite":     "suites.tool",
				"agent-suite":    "suites.agent",
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if noPull {
				cfg.Pull = false
			}
			if noWarmup {
				cfg.Warmup = false
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBenchmark(ctx, cfg, useTUI, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringSlice("models", nil, "models to benchmark (comma separated or repeated)")
	f.String("mode", "all", "instruct, tool, agent or all")
	f.Float64("delay", 0.2, "seconds to wait before each test")
	f.BoolP("verbose", "v", false, "print raw output, tool calls and tool results")
	f.String("csv", "", "append results to this CSV file")
	f.String("json", "", "write <prefix>_<mode>.json result documents")
	f.String("sqlite", "", "store results in this SQLite database")
	f.String("planner", "", "model that plans agent tasks")
	f.String("plan-mapping", "keys", "how mapping plans become steps: keys or values")
	f.String("backend", config.BackendOllama, "backend type: ollama or openai")
	f.String("base-url", "", "backend base URL")
	f.String("instruct-suite", "", "YAML suite replacing the built-in instruct suite")
	f.String("tool-suite", "", "YAML suite replacing the built-in tool suite")
	f.String("agent-suite", "", "YAML suite replacing the built-in agent suite")
	f.BoolVar(&noPull, "no-pull", false, "do not pull missing models")
	f.BoolVar(&noWarmup, "no-warmup", false, "skip the warmup request per model")
	f.BoolVar(&useTUI, "tui", false, "show a live terminal view instead of line output")
	return cmd
}

// runBenchmark checks the backend, prepares models and sinks, and evaluates every
// configured mode in order. Only an unreachable backend or setup failures return
// an error; failing tests do not.
func runBenchmark(ctx context.Context, cfg config.Config, useTUI bool, out io.Writer) error {
	be := newBackend(cfg)
	if err := be.Ping(ctx); err != nil {
		return fmt.Errorf("check %s backend: %w", cfg.Backend.Type, err)
	}
	modes := cfg.Modes()
	if o, ok := be.(*backend.Ollama); ok && cfg.Pull {
		if err := o.EnsureModels(ctx, pullList(cfg, modes), cfg.PullConcurrency); err != nil {
			log.Warn().Err(err).Msg("model pull failed, affected tests will error")
		}
	}

	suites := make([]suite.Suite, 0, len(modes))
	for _, m := range modes {
		s, err := loadSuite(cfg, m)
		if err != nil {
			return err
		}
		suites = append(suites, s)
	}
	tb, err := newToolbox(cfg)
	if err != nil {
		return err
	}

	gen := bench.Generation{Options: cfg.Generation.Options(), NumPredict: cfg.NumPredict.Table().For}
	runner := bench.NewRunner(be, bench.Config{
		Models: cfg.Models,
		Delay:  cfg.DelayDuration(),
		Warmup: cfg.Warmup,
		Gen:    gen,
	})
	defer func() {
		if err := runner.Close(); err != nil {
			log.Warn().Err(err).Msg("close result sinks")
		}
	}()

	finish, err := attachSinks(ctx, runner, cfg, modes)
	if err != nil {
		return err
	}
	evals := evaluators(be, tb, cfg, gen)

	execute := func(ctx context.Context, obs bench.Observer) (map[suite.Mode][]bench.Summary, error) {
		runner.Observe(obs)
		all := make(map[suite.Mode][]bench.Summary, len(suites))
		for _, s := range suites {
			log.Info().Str("mode", string(s.Mode)).Str("suite", s.Name).Int("cases", len(s.Cases)).Msg("starting suite")
			sums, err := runner.Run(ctx, s, evals[s.Mode])
			all[s.Mode] = sums
			if err != nil {
				return all, err
			}
		}
		return all, nil
	}

	var (
		all    map[suite.Mode][]bench.Summary
		runErr error
	)
	if useTUI {
		restore, err := logToFile(cfg)
		if err != nil {
			return err
		}
		_, runErr = tui.Run(ctx, out, runner.RunID(), func(ctx context.Context, obs *tui.Observer) error {
			var err error
			all, err = execute(ctx, obs)
			return err
		})
		restore()
	} else {
		all, runErr = execute(ctx, report.NewConsole(out, cfg.Verbose))
	}

	status := db.StatusDone
	switch {
	case errors.Is(runErr, context.Canceled):
		status = db.StatusInterrupted
		log.Warn().Msg("benchmark interrupted")
	case runErr != nil:
		status = db.StatusFailed
	}
	finish(status)

	for _, m := range modes {
		if sums, ok := all[m]; ok {
			report.RenderSummary(out, m, sums)
		}
	}
	printOutputs(out, cfg, modes)
	if status == db.StatusFailed {
		return runErr
	}
	return nil
}

// pullList adds the planner to the models under test when agent mode runs.
func pullList(cfg config.Config, modes []suite.Mode) []string {
	models := slices.Clone(cfg.Models)
	planner := cfg.Agent.PlannerModel
	if planner != "" && slices.Contains(modes, suite.ModeAgent) && !slices.Contains(models, planner) {
		models = append(models, planner)
	}
	return models
}

func evaluators(be backend.Backend, tb toolbox, cfg config.Config, gen bench.Generation) map[suite.Mode]bench.Evaluator {
	pipeline := agent.New(be, tb.norm, tb.reg, agent.Config{
		PlannerModel: cfg.Agent.PlannerModel,
		PlanMapping:  agent.PlanMapping(cfg.Agent.PlanMapping),
		Options:      gen.Options,
		NumPredict:   gen.NumPredict,
		OnState: func(test string, s agent.State) {
			log.Debug().Str("test", test).Stringer("state", s).Msg("agent state")
		},
	})
	return map[suite.Mode]bench.Evaluator{
		suite.ModeInstruct: &bench.Instruct{Chat: be, Gen: gen},
		suite.ModeTool:     &bench.Tool{Chat: be, Exec: tb.norm, Signatures: tb.signatures(), Gen: gen},
		suite.ModeAgent:    &bench.Agent{Pipeline: pipeline},
	}
}

// attachSinks adds the configured sinks to runner. The returned func records the
// final run status in the results database, if one is configured.
func attachSinks(ctx context.Context, runner *bench.Runner, cfg config.Config, modes []suite.Mode) (func(status string), error) {
	if cfg.Output.CSV != "" {
		sink, err := report.NewCSVSink(cfg.Output.CSV)
		if err != nil {
			return nil, err
		}
		runner.AddSink(sink)
	}
	if cfg.Output.JSONPrefix != "" {
		runner.AddSink(report.NewJSONSink(cfg.Output.JSONPrefix))
	}
	if cfg.Output.SQLite == "" {
		return func(string) {}, nil
	}

	runLock, ok, err := lock.TryAcquire(runLockPath(cfg.Output.SQLite))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("another gptbench run or prune holds %s", runLockPath(cfg.Output.SQLite))
	}
	store, closeStore, err := openStore(cfg.Output.SQLite)
	if err != nil {
		_ = runLock.Release()
		return nil, err
	}
	if n, err := store.Reconcile(ctx); err != nil {
		log.Warn().Err(err).Msg("reconcile stale runs")
	} else if n > 0 {
		log.Info().Int("runs", n).Msg("marked stale runs interrupted")
	}
	if err := store.CreateRun(ctx, runner.RunID(), cfg.Backend.Type, modeNames(modes), cfg.Models); err != nil {
		closeStore()
		_ = runLock.Release()
		return nil, err
	}
	runner.AddSink(report.NewSQLiteSink(store))

	return func(status string) {
		defer func() { _ = runLock.Release() }()
		defer closeStore()
		if err := store.FinishRun(context.WithoutCancel(ctx), runner.RunID(), status); err != nil {
			log.Warn().Err(err).Msg("record run status")
		}
	}, nil
}

// logToFile moves logging off the terminal while the live view owns it.
func logToFile(cfg config.Config) (func(), error) {
	dir := filepath.Dir(config.DefaultPath)
	if cfg.Output.SQLite != "" {
		dir = filepath.Dir(cfg.Output.SQLite)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logging.InitWriter(debug, f)
	return func() {
		logging.Init(debug)
		_ = f.Close()
	}, nil
}

func printOutputs(out io.Writer, cfg config.Config, modes []suite.Mode) {
	if cfg.Output.CSV != "" {
		fmt.Fprintf(out, "Results appended to %s\n", cfg.Output.CSV)
	}
	if cfg.Output.JSONPrefix != "" {
		sink := report.NewJSONSink(cfg.Output.JSONPrefix)
		for _, m := range modes {
			fmt.Fprintf(out, "Results saved to %s\n", sink.Path(m))
		}
	}
	if cfg.Output.SQLite != "" {
		fmt.Fprintf(out, "Run stored in %s\n", cfg.Output.SQLite)
	}
}
