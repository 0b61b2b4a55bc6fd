package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultOllamaURL     = "http://localhost:11434"
	defaultOllamaTimeout = 300 * time.Second
	pingTimeout          = 5 * time.Second
)

// OllamaConfig configures an Ollama client.
type OllamaConfig struct {
	// BaseURL defaults to $OLLAMA_HOST, then http://localhost:11434.
	BaseURL string
	Timeout time.Duration
}

// Ollama is a client for Ollama's native /api endpoints.
type Ollama struct {
	baseURL string
	http    *http.Client
}

// NewOllama constructs a client. httpClient may be nil.
func NewOllama(cfg OllamaConfig, httpClient *http.Client) *Ollama {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOllamaTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Ollama{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// BaseURL returns the server address in use.
func (o *Ollama) BaseURL() string { return o.baseURL }

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []Message       `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// Chat runs one non-streaming /api/chat request.
func (o *Ollama) Chat(ctx context.Context, model string, messages []Message, opts Options) (string, error) {
	body := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Format:   opts.Format,
		Options:  opts.ollamaOptions(),
	}
	var resp ollamaChatResponse
	if err := o.post(ctx, model, "/api/chat", body, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &CallError{Kind: ErrorResponse, Model: model, Message: resp.Error}
	}
	return resp.Message.Content, nil
}

// Ping checks GET / answers.
func (o *Ollama) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, o.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s answered status %d", ErrUnreachable, o.baseURL, resp.StatusCode)
	}
	return nil
}

// ListModels returns the names of locally available models.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, &CallError{Kind: classifyErr(err), Model: "tags", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("tags", resp)
	}
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &CallError{Kind: ErrorResponse, Model: "tags", Err: err}
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	slices.Sort(names)
	return names, nil
}

// Pull downloads model, blocking until the server reports completion.
func (o *Ollama) Pull(ctx context.Context, model string) error {
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := o.post(ctx, model, "/api/pull", map[string]any{"model": model, "stream": false}, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return &CallError{Kind: ErrorResponse, Model: model, Message: resp.Error}
	}
	return nil
}

// EnsureModels pulls every model missing from the server, at most limit at a time.
func (o *Ollama) EnsureModels(ctx context.Context, models []string, limit int) error {
	have, err := o.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	var missing []string
	for _, m := range models {
		if !hasModel(have, m) {
			missing = append(missing, m)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for _, m := range missing {
		g.Go(func() error {
			log.Info().Str("model", m).Msg("pulling model")
			start := time.Now()
			if err := o.Pull(gctx, m); err != nil {
				return fmt.Errorf("pull %s: %w", m, err)
			}
			log.Info().Str("model", m).Dur("took", time.Since(start)).Msg("model pulled")
			return nil
		})
	}
	return g.Wait()
}

// hasModel matches "name" against "name:latest" as Ollama lists untagged pulls.
func hasModel(have []string, model string) bool {
	for _, h := range have {
		if h == model || (!strings.Contains(model, ":") && h == model+":latest") {
			return true
		}
	}
	return false
}

func (o *Ollama) post(ctx context.Context, model, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return &CallError{Kind: classifyErr(err), Model: model, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusError(model, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &CallError{Kind: ErrorResponse, Model: model, Message: "empty response body"}
		}
		return &CallError{Kind: ErrorResponse, Model: model, Err: err}
	}
	return nil
}

func statusError(model string, resp *http.Response) *CallError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &CallError{
		Kind:    classifyStatus(resp.StatusCode),
		Model:   model,
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("ollama error: %s", msg),
	}
}
