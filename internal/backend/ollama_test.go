package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChatSendsOptionsAndParsesContent(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"4"},"done":true}`))
	}))
	t.Cleanup(srv.Close)

	client := NewOllama(OllamaConfig{BaseURL: srv.URL}, srv.Client())
	opts := DefaultOptions().WithNumPredict(128).WithFormat(JSONFormat)
	out, err := client.Chat(context.Background(), "tiny:1b", []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "2+2?"},
	}, opts)
	require.NoError(t, err)
	assert.Equal(t, "4", out)

	assert.Equal(t, "tiny:1b", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "json", got["format"])
	options := got["options"].(map[string]any)
	assert.EqualValues(t, 128, options["num_predict"])
	assert.EqualValues(t, 420, options["seed"])
	assert.EqualValues(t, 0, options["temperature"])
	assert.Len(t, got["messages"], 2)
}

func TestOllamaChatStatusErrorIsCallError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'ghost' not found"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewOllama(OllamaConfig{BaseURL: srv.URL}, srv.Client()).Chat(context.Background(), "ghost", nil, Options{})
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, ErrorNotFound, callErr.Kind)
	assert.Equal(t, http.StatusNotFound, callErr.Status)
	assert.Contains(t, callErr.Error(), "model 'ghost' not found")
	assert.False(t, errors.Is(err, ErrUnreachable))
}

func TestOllamaConnectionFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewOllama(OllamaConfig{BaseURL: url}, nil)
	err := client.Ping(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)

	_, err = client.Chat(context.Background(), "m", nil, Options{})
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, ErrorNetwork, callErr.Kind)
}

func TestOllamaPing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Ollama is running"))
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, NewOllama(OllamaConfig{BaseURL: srv.URL}, srv.Client()).Ping(context.Background()))
}

func TestOllamaEnsureModelsPullsOnlyMissing(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		pulled []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"granite4:350m"},{"name":"gemma3:latest"}]}`))
		case "/api/pull":
			var body struct {
				Model string `json:"model"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			pulled = append(pulled, body.Model)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewOllama(OllamaConfig{BaseURL: srv.URL}, srv.Client())
	err := client.EnsureModels(context.Background(), []string{"granite4:350m", "gemma3", "qwen2.5:0.5b", "llama3.2:1b"}, 2)
	require.NoError(t, err)
	sort.Strings(pulled)
	assert.Equal(t, []string{"llama3.2:1b", "qwen2.5:0.5b"}, pulled)
}

func TestNewOllamaBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "gpu-box:11434")
	assert.Equal(t, "http://gpu-box:11434", NewOllama(OllamaConfig{}, nil).BaseURL())
	assert.Equal(t, "http://x:1", NewOllama(OllamaConfig{BaseURL: "http://x:1/"}, nil).BaseURL())
}

func TestNumPredictTable(t *testing.T) {
	t.Parallel()

	table := NewNumPredictTable(map[string]int{"custom:7b": 1024}, 0)
	assert.Equal(t, 128, table.For("granite4:350m"))
	assert.Equal(t, 128, table.For("qwen2.5-coder:0.5b-instruct-q4_k_m"))
	assert.Equal(t, 1024, table.For("custom:7b"))
	assert.Equal(t, DefaultNumPredict, table.For("mystery:70b"))
	assert.Equal(t, 64, NewNumPredictTable(nil, 64).For("mystery:70b"))
}
