package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/gptbench/internal/backend"
	"github.com/metalagman/gptbench/internal/config"
	"github.com/metalagman/gptbench/internal/db"
	"github.com/metalagman/gptbench/internal/suite"
)

func TestDefaultConfigIsLoadable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".gptbench", "config.json")
	written, err := writeDefaultConfig(path, false)
	require.NoError(t, err)
	require.True(t, written)

	cfg, err := config.Load(viper.New(), path, true)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModels, cfg.Models)

	written, err = writeDefaultConfig(path, false)
	require.NoError(t, err)
	assert.False(t, written, "existing config is kept")
}

func TestPullListAddsPlanner(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Models: []string{"granite4:350m"}, Agent: config.AgentConfig{PlannerModel: "qwen2.5:0.5b"}}
	assert.Equal(t, []string{"granite4:350m"}, pullList(cfg, []suite.Mode{suite.ModeTool}))
	assert.Equal(t, []string{"granite4:350m", "qwen2.5:0.5b"}, pullList(cfg, suite.Modes))

	cfg.Models = append(cfg.Models, "qwen2.5:0.5b")
	assert.Len(t, pullList(cfg, suite.Modes), 2)
}

func TestLoadSuite(t *testing.T) {
	t.Parallel()

	cfg, err := config.Defaults()
	require.NoError(t, err)
	s, err := loadSuite(cfg, suite.ModeAgent)
	require.NoError(t, err)
	assert.Len(t, s.Cases, 3)

	path := filepath.Join(t.TempDir(), "tool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: tool\ncases:\n  - name: T1\n    prompt: hi\n    validator: {word: hi}\n"), 0o600))
	cfg.Suites.Instruct = path
	_, err = loadSuite(cfg, suite.ModeInstruct)
	assert.ErrorContains(t, err, "configured for instruct")
}

func fakeOllama(t *testing.T, answer string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var chats atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Ollama is running"))
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		chats.Add(1)
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   req.Model,
			"message": map[string]any{"role": "assistant", "content": answer},
			"done":    true,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &chats
}

func TestRunBenchmarkEndToEnd(t *testing.T) {
	t.Parallel()

	srv, chats := fakeOllama(t, "4")
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "math.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte("name: math\nmode: instruct\ncases:\n  - name: M1\n    prompt: What is 2+2?\n    validator: {word: '4'}\n  - name: M2\n    prompt: What is 3+3?\n    validator: {word: '6'}\n"), 0o600))

	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Backend.BaseURL = srv.URL
	cfg.Models = []string{"tiny:1b"}
	cfg.Mode = "instruct"
	cfg.Delay = 0
	cfg.Warmup = false
	cfg.Pull = false
	cfg.Suites.Instruct = suitePath
	cfg.Output = config.OutputConfig{
		CSV:        filepath.Join(dir, "results.csv"),
		JSONPrefix: filepath.Join(dir, "bench"),
		SQLite:     filepath.Join(dir, "db", "gptbench.db"),
	}

	var out bytes.Buffer
	require.NoError(t, runBenchmark(context.Background(), cfg, false, &out))
	assert.EqualValues(t, 2, chats.Load())

	text := out.String()
	assert.Contains(t, text, "INSTRUCT BENCHMARK REPORT")
	assert.Contains(t, text, "50.00%")
	assert.Contains(t, text, "❌ FAIL")
	assert.FileExists(t, cfg.Output.CSV)
	assert.FileExists(t, filepath.Join(dir, "bench_instruct.json"))

	conn, err := db.Open(cfg.Output.SQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	runs, err := db.NewStore(conn).ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, db.StatusDone, runs[0].Status)
	assert.Equal(t, []string{"tiny:1b"}, runs[0].Models)
}

func TestRunBenchmarkUnreachableBackend(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Backend.BaseURL = url
	cfg.Output = config.OutputConfig{}

	err = runBenchmark(context.Background(), cfg, false, &bytes.Buffer{})
	require.ErrorIs(t, err, backend.ErrUnreachable)
}
