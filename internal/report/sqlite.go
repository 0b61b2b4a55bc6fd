package report

import (
	"context"
	"encoding/json"

	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/db"
	"github.com/metalagman/gptbench/internal/suite"
)

// SQLiteSink stores results and summaries in the results database. The run row
// itself is created and finished by the caller.
type SQLiteSink struct {
	store *db.Store
}

// NewSQLiteSink returns a sink writing through store.
func NewSQLiteSink(store *db.Store) *SQLiteSink {
	return &SQLiteSink{store: store}
}

// Record implements bench.Sink.
func (s *SQLiteSink) Record(ctx context.Context, res bench.Result) error {
	return s.store.InsertResult(ctx, db.ResultRecord{
		RunID:         res.RunID,
		Mode:          string(res.Mode),
		Model:         res.Model,
		Test:          res.Test,
		Outcome:       string(res.Outcome),
		Latency:       res.Latency.Seconds(),
		Raw:           res.Raw,
		Sanitized:     res.Sanitized,
		ToolCall:      encode(res.ToolCall),
		ToolResult:    encode(res.ToolResult),
		FinalResponse: res.FinalResponse,
		PlanJSON:      encode(res.Plan),
		ContextJSON:   encode(res.Context),
		StepsMatch:    res.StepsMatch,
		Error:         res.Error,
		At:            res.At,
	})
}

// Flush implements bench.Sink. Only the newest summary is new; earlier ones
// were saved by earlier flushes.
func (s *SQLiteSink) Flush(ctx context.Context, _ suite.Mode, sums []bench.Summary, _ [][]bench.Result) error {
	if len(sums) == 0 {
		return nil
	}
	sum := sums[len(sums)-1]
	return s.store.SaveSummary(ctx, db.SummaryRecord{
		RunID:      sum.RunID,
		Mode:       string(sum.Mode),
		Model:      sum.Model,
		Total:      sum.Total,
		Passed:     sum.Passed,
		Failed:     sum.Failed,
		Errored:    sum.Errored,
		Score:      sum.Score,
		AvgLatency: sum.AvgLatency.Seconds(),
	})
}

// Close implements bench.Sink. The database is owned by the caller.
func (s *SQLiteSink) Close() error { return nil }

// encode renders v as JSON, or "" for empty values.
func encode[T any](v T) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	switch string(raw) {
	case "null", "[]", "{}":
		return ""
	}
	return string(raw)
}
