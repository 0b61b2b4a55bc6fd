package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/gptbench/internal/db"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "gptbench.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	store := db.NewStore(conn)
	require.NoError(t, store.CreateRun(ctx, "run-1", "ollama", []string{"tool"}, []string{"granite4:350m"}))
	require.NoError(t, store.InsertResult(ctx, db.ResultRecord{
		RunID: "run-1", Mode: "tool", Model: "granite4:350m", Test: "TC2", Outcome: "PASS", Latency: 1.25,
		ToolCall: `{"name":"calculator"}`, FinalResponse: "15 * 7 = 105 <done>", At: time.Now(),
	}))
	require.NoError(t, store.SaveSummary(ctx, db.SummaryRecord{
		RunID: "run-1", Mode: "tool", Model: "granite4:350m", Total: 1, Passed: 1, Score: 100, AvgLatency: 1.25,
	}))
	require.NoError(t, store.FinishRun(ctx, "run-1", db.StatusDone))

	srv, err := NewServer(store)
	require.NoError(t, err)
	return srv.Routes()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndexListsRuns(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestServer(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/runs/run-1"`)
	assert.Contains(t, body, "granite4:350m")
	assert.Contains(t, body, db.StatusDone)
}

func TestRunPage(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	rec := get(t, h, "/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "100.00%")
	assert.Contains(t, body, "1.25s")
	assert.Contains(t, body, "TC2")
	assert.Contains(t, body, "&lt;done&gt;", "model output is escaped")
	assert.Contains(t, body, "run_started")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/runs/missing").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
}
