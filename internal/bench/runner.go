package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/metalagman/gptbench/internal/backend"
	"github.com/metalagman/gptbench/internal/suite"
)

// Observer follows a run as it happens.
type Observer interface {
	ModelStarted(mode suite.Mode, model string, total int)
	TestFinished(res Result)
	ModelFinished(sum Summary)
}

// Sink persists results. Record is called once per test, Flush after every model
// with the mode's results so far.
type Sink interface {
	Record(ctx context.Context, res Result) error
	Flush(ctx context.Context, mode suite.Mode, sums []Summary, results [][]Result) error
	Close() error
}

// Config tunes a Runner.
type Config struct {
	Models []string
	// Delay is waited before every test.
	Delay  time.Duration
	Warmup bool
	Gen    Generation
}

// Runner evaluates suites one model and one test at a time.
type Runner struct {
	runID     string
	chat      Chatter
	cfg       Config
	observers []Observer
	sinks     []Sink
	now       func() time.Time
}

// NewRunner returns a Runner with a fresh run id.
func NewRunner(chat Chatter, cfg Config) *Runner {
	return &Runner{
		runID: uuid.NewString(),
		chat:  chat,
		cfg:   cfg,
		now:   time.Now,
	}
}

// RunID identifies every result this runner produces.
func (r *Runner) RunID() string { return r.runID }

// Observe adds an observer.
func (r *Runner) Observe(o Observer) { r.observers = append(r.observers, o) }

// AddSink adds a sink.
func (r *Runner) AddSink(s Sink) { r.sinks = append(r.sinks, s) }

// Run evaluates s for every configured model and returns one summary per model.
// Test failures and backend errors are recorded as outcomes; the returned error is
// reserved for cancellation.
func (r *Runner) Run(ctx context.Context, s suite.Suite, eval Evaluator) ([]Summary, error) {
	sums := make([]Summary, 0, len(r.cfg.Models))
	all := make([][]Result, 0, len(r.cfg.Models))
	for _, model := range r.cfg.Models {
		logger := log.With().Str("mode", string(s.Mode)).Str("model", model).Logger()
		for _, o := range r.observers {
			o.ModelStarted(s.Mode, model, len(s.Cases))
		}
		if r.cfg.Warmup {
			r.warmup(ctx, model)
		}

		results := make([]Result, 0, len(s.Cases))
		for _, tc := range s.Cases {
			if err := sleep(ctx, r.cfg.Delay); err != nil {
				return r.finishModel(ctx, s.Mode, model, sums, append(all, results)), err
			}
			res := eval.Evaluate(ctx, model, tc)
			if err := ctx.Err(); err != nil {
				return r.finishModel(ctx, s.Mode, model, sums, append(all, results)), err
			}
			res.RunID, res.Mode, res.Model, res.Test = r.runID, s.Mode, model, tc.Name
			res.LatencySec = res.Latency.Seconds()
			res.At = r.now().UTC()
			results = append(results, res)

			if res.Outcome == Error {
				logger.Warn().Str("test", tc.Name).Str("error", res.Error).Msg("test errored")
			}
			for _, o := range r.observers {
				o.TestFinished(res)
			}
			for _, sink := range r.sinks {
				if err := sink.Record(ctx, res); err != nil {
					logger.Error().Err(err).Str("test", tc.Name).Msg("record result")
				}
			}
		}

		all = append(all, results)
		sums = r.finishModel(ctx, s.Mode, model, sums, all)
	}
	return sums, nil
}

// finishModel summarizes model, whose results are the last of all, notifies
// observers and flushes the sinks. An interrupted model with results is finished
// too, so its partial results are reported; one with none is dropped.
func (r *Runner) finishModel(ctx context.Context, mode suite.Mode, model string, sums []Summary, all [][]Result) []Summary {
	results := all[len(all)-1]
	if ctx.Err() != nil && len(results) == 0 {
		return sums
	}
	logger := log.With().Str("mode", string(mode)).Str("model", model).Logger()
	sum := Summarize(r.runID, mode, model, results)
	sums = append(sums, sum)
	logger.Info().Float64("score", sum.Score).Dur("avg_latency", sum.AvgLatency).Int("tests", sum.Total).Msg("model finished")
	for _, o := range r.observers {
		o.ModelFinished(sum)
	}
	// sinks still write after a cancel
	flushCtx := context.WithoutCancel(ctx)
	for _, sink := range r.sinks {
		if err := sink.Flush(flushCtx, mode, sums, all); err != nil {
			logger.Error().Err(err).Msg("flush results")
		}
	}
	return sums
}

// Close closes every sink.
func (r *Runner) Close() error {
	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// warmup loads model into memory with a one-token request.
func (r *Runner) warmup(ctx context.Context, model string) {
	opts := r.cfg.Gen.Options.WithNumPredict(1)
	msgs := []backend.Message{{Role: backend.RoleUser, Content: "hi"}}
	start := time.Now()
	if _, err := r.chat.Chat(ctx, model, msgs, opts); err != nil {
		log.Warn().Err(err).Str("model", model).Msg("warmup failed")
		return
	}
	log.Debug().Str("model", model).Dur("took", time.Since(start)).Msg("model warmed up")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
