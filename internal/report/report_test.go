package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/gptbench/internal/agent"
	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/db"
	"github.com/metalagman/gptbench/internal/suite"
	"github.com/metalagman/gptbench/internal/toolcall"
)

var at = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func sampleResults() []bench.Result {
	return []bench.Result{
		{
			RunID: "run-1", Mode: suite.ModeTool, Model: "m1", Test: "TC2", Outcome: bench.Pass,
			Latency: 1500 * time.Millisecond, Raw: `{"name":"calculator"}`, Sanitized: "It is 105.",
			ToolCall:      &toolcall.Call{Name: "calculator", Arguments: map[string]any{"expression": "15 * 7"}},
			ToolResult:    map[string]any{"result": 105},
			FinalResponse: "It is 105.", At: at,
		},
		{
			RunID: "run-1", Mode: suite.ModeTool, Model: "m1", Test: "TC3", Outcome: bench.Error,
			Latency: 200 * time.Millisecond, Error: "connection refused", At: at,
		},
	}
}

func TestCSVSinkAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "results.csv")
	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	for _, res := range sampleResults() {
		require.NoError(t, sink.Record(context.Background(), res))
	}
	// a second process run appends below the existing header
	again, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, again.Record(context.Background(), sampleResults()[0]))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"run-1", "tool", "m1", "TC2", "PASS", "1.50"}, rows[1][:6])
	assert.JSONEq(t, `{"name":"calculator","arguments":{"expression":"15 * 7"}}`, rows[1][6])
	assert.Equal(t, "connection refused", rows[2][8])
}

func TestJSONSinkRewritesPerMode(t *testing.T) {
	t.Parallel()

	prefix := filepath.Join(t.TempDir(), "bench")
	sink := NewJSONSink(prefix)
	results := sampleResults()
	sum := bench.Summarize("run-1", suite.ModeTool, "m1", results)

	require.NoError(t, sink.Flush(context.Background(), suite.ModeTool, []bench.Summary{sum}, [][]bench.Result{results}))
	sum2 := bench.Summarize("run-1", suite.ModeTool, "m2", results[:1])
	require.NoError(t, sink.Flush(context.Background(), suite.ModeTool,
		[]bench.Summary{sum, sum2}, [][]bench.Result{results, results[:1]}))

	raw, err := os.ReadFile(prefix + "_tool.json")
	require.NoError(t, err)
	var doc struct {
		RunID  string `json:"run_id"`
		Mode   string `json:"mode"`
		Models []struct {
			Model   string  `json:"model"`
			Score   float64 `json:"score"`
			Results []struct {
				Test    string  `json:"test"`
				Outcome string  `json:"outcome"`
				Latency float64 `json:"latency"`
			} `json:"results"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, "tool", doc.Mode)
	require.Len(t, doc.Models, 2)
	assert.Equal(t, "m2", doc.Models[1].Model)
	assert.InDelta(t, 50.0, doc.Models[0].Score, 0.001)
	require.Len(t, doc.Models[0].Results, 2)
	assert.Equal(t, "ERROR", doc.Models[0].Results[1].Outcome)

	matches, err := filepath.Glob(prefix + "_tool.json.*.tmp")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteSink(t *testing.T) {
	t.Parallel()

	conn, err := db.Open(filepath.Join(t.TempDir(), "gptbench.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	store := db.NewStore(conn)
	ctx := context.Background()
	require.NoError(t, store.CreateRun(ctx, "run-1", "ollama", []string{"tool"}, []string{"m1"}))

	sink := NewSQLiteSink(store)
	results := sampleResults()
	match := false
	results[1].Plan = []agent.Step{{Name: "calculator"}}
	results[1].StepsMatch = &match
	for _, res := range results {
		require.NoError(t, sink.Record(ctx, res))
	}
	require.NoError(t, sink.Flush(ctx, suite.ModeTool, []bench.Summary{bench.Summarize("run-1", suite.ModeTool, "m1", results)}, nil))

	stored, err := store.Results(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.JSONEq(t, `{"result":105}`, stored[0].ToolResult)
	assert.Empty(t, stored[0].PlanJSON)
	assert.Empty(t, stored[0].ContextJSON)
	assert.JSONEq(t, `[{"name":"calculator"}]`, stored[1].PlanJSON)
	require.NotNil(t, stored[1].StepsMatch)
	assert.False(t, *stored[1].StepsMatch)
	assert.InDelta(t, 1.5, stored[0].Latency, 0.001)

	sums, err := store.Summaries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 1, sums[0].Errored)
}

func TestConsoleMarkers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, true)
	c.ModelStarted(suite.ModeTool, "m1", 2)
	for _, res := range sampleResults() {
		c.TestFinished(res)
	}
	c.ModelFinished(bench.Summarize("run-1", suite.ModeTool, "m1", sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "TOOL m1 (2 tests)")
	assert.Contains(t, out, fmt.Sprintf("Test: %-22s ✅ PASS (1.50s)", "TC2"))
	assert.Contains(t, out, "⚠️ ERROR (0.20s)")
	assert.Contains(t, out, "└─ connection refused")
	assert.Contains(t, out, "Tool Call: calculator(")
	assert.Contains(t, out, "Score: 50.00% - Avg Latency: 0.85s")
	assert.NotContains(t, out, "\x1b[", "no colors when not writing to a terminal")
}

func TestRenderSummaryRanksModels(t *testing.T) {
	t.Parallel()

	sums := []bench.Summary{
		{Model: "slow", Score: 80, AvgLatency: 3 * time.Second, Total: 5},
		{Model: "best", Score: 100, AvgLatency: 2 * time.Second, Total: 5},
		{Model: "fast", Score: 80, AvgLatency: time.Second, Total: 5},
	}
	var buf bytes.Buffer
	RenderSummary(&buf, suite.ModeAgent, sums)
	out := buf.String()

	assert.Contains(t, out, "AGENT BENCHMARK REPORT")
	best := strings.Index(out, "best ")
	fast := strings.Index(out, "fast ")
	slow := strings.Index(out, "slow ")
	assert.True(t, best < fast && fast < slow, out)
	assert.Contains(t, out, "100.00% |        2.00s |      5")
	assert.Contains(t, out, "🏆 Best Agent Performer: best - 100.00%")

	buf.Reset()
	RenderSummary(&buf, suite.ModeInstruct, nil)
	assert.NotContains(t, buf.String(), "🏆")
}

func TestPreview(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", preview("abc", 5))
	assert.Equal(t, "ab…", preview("abc", 2))
	assert.Equal(t, "°C…", preview("°C°C", 2))
}
