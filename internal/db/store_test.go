package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "nested", "gptbench.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewStore(conn)
}

func TestOpenAppliesMigrations(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	v, err := SchemaVersion(store.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.CreateRun(ctx, "run-1", "ollama", []string{"tool"}, []string{"m1", "m2"}))

	match := true
	at := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertResult(ctx, ResultRecord{
		RunID: "run-1", Mode: "tool", Model: "m1", Test: "TC1", Outcome: "PASS", Latency: 1.5,
		Raw: `{"name":"get_weather"}`, ToolResult: `{"temperature":"15°C"}`, StepsMatch: &match, At: at,
	}))
	require.NoError(t, store.InsertResult(ctx, ResultRecord{
		RunID: "run-1", Mode: "tool", Model: "m1", Test: "TC2", Outcome: "ERROR", Error: "connection refused", At: at,
	}))
	require.NoError(t, store.SaveSummary(ctx, SummaryRecord{RunID: "run-1", Mode: "tool", Model: "m1", Total: 2, Passed: 1, Errored: 1, Score: 50}))
	require.NoError(t, store.SaveSummary(ctx, SummaryRecord{RunID: "run-1", Mode: "tool", Model: "m1", Total: 2, Passed: 2, Score: 100}))
	require.NoError(t, store.FinishRun(ctx, "run-1", StatusDone))

	run, ok, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"m1", "m2"}, run.Models)
	assert.Equal(t, []string{"tool"}, run.Modes)
	assert.Equal(t, StatusDone, run.Status)
	assert.NotNil(t, run.EndedAt)

	results, err := store.Results(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "TC1", results[0].Test)
	require.NotNil(t, results[0].StepsMatch)
	assert.True(t, *results[0].StepsMatch)
	assert.Equal(t, at, results[0].At)
	assert.Nil(t, results[1].StepsMatch)
	assert.Equal(t, "connection refused", results[1].Error)

	sums, err := store.Summaries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.InDelta(t, 100.0, sums[0].Score, 0.001)

	events, err := store.Events(ctx, "run-1")
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"run_started", "model_finished", "model_finished", "run_finished"}, types)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Error(t, store.FinishRun(ctx, "missing", StatusDone))
}

func TestStorePrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		store.now = func() time.Time { return base.AddDate(0, 0, i*5) }
		require.NoError(t, store.CreateRun(ctx, id, "ollama", []string{"instruct"}, []string{"m"}))
		require.NoError(t, store.InsertResult(ctx, ResultRecord{RunID: id, Mode: "instruct", Model: "m", Test: "S1", Outcome: "PASS", At: base}))
		if id != "old" {
			require.NoError(t, store.FinishRun(ctx, id, StatusDone))
		}
	}
	store.now = func() time.Time { return base.AddDate(0, 0, 11) }

	res, err := store.Prune(ctx, RetentionPolicy{KeepLast: 1}, true)
	require.NoError(t, err)
	assert.Equal(t, PruneResult{Considered: 3, Kept: 2, Deleted: 1}, res, "running runs survive")

	res, err = store.Prune(ctx, RetentionPolicy{KeepDays: 3}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	ids := []string{}
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"new", "old"}, ids)

	results, err := store.Results(ctx, "mid")
	require.NoError(t, err)
	assert.Empty(t, results, "results cascade with their run")

	res, err = store.Prune(ctx, RetentionPolicy{}, false)
	require.NoError(t, err)
	assert.Zero(t, res)

	require.NoError(t, store.Purge(ctx))
	runs, err = store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreReconcile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.CreateRun(ctx, "crashed", "ollama", []string{"agent"}, []string{"m"}))
	require.NoError(t, store.CreateRun(ctx, "finished", "ollama", []string{"agent"}, []string{"m"}))
	require.NoError(t, store.FinishRun(ctx, "finished", StatusDone))

	n, err := store.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	run, _, err := store.GetRun(ctx, "crashed")
	require.NoError(t, err)
	assert.Equal(t, StatusInterrupted, run.Status)
	assert.NotNil(t, run.EndedAt)
	run, _, err = store.GetRun(ctx, "finished")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, run.Status)

	events, err := store.Events(ctx, "crashed")
	require.NoError(t, err)
	assert.Equal(t, "run_reconciled", events[len(events)-1].Type)

	n, err = store.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
