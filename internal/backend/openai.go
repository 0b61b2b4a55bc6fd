package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	defaultOpenAIURL     = "https://api.openai.com/v1"
	defaultAPIKeyEnv     = "OPENAI_API_KEY"
	defaultOpenAITimeout = 120 * time.Second
)

// OpenAIConfig configures an OpenAI-compatible client (llama.cpp server, vLLM,
// LM Studio, Ollama's /v1 and the OpenAI API itself).
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	APIKeyEnv string
	Timeout   time.Duration
}

// OpenAI implements Backend over the chat completions API.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI constructs a client. Local servers ignore the key, so a missing key
// is sent as "none" rather than rejected.
func NewOpenAI(cfg OpenAIConfig, httpClient *http.Client) *OpenAI {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		envKey := strings.TrimSpace(cfg.APIKeyEnv)
		if envKey == "" {
			envKey = defaultAPIKeyEnv
		}
		apiKey = strings.TrimSpace(os.Getenv(envKey))
	}
	if apiKey == "" {
		apiKey = "none"
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAI{client: openai.NewClient(opts...)}
}

// Chat runs one chat completion. Tool messages are sent as user turns since the
// conversation carries no native tool_call ids.
func (c *OpenAI) Chat(ctx context.Context, model string, messages []Message, opts Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toOpenAIMessages(messages),
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.Seed != nil {
		params.Seed = openai.Int(int64(*opts.Seed))
	}
	if opts.NumPredict != nil {
		params.MaxTokens = openai.Int(int64(*opts.NumPredict))
	}
	if rf, ok := responseFormat(opts.Format); ok {
		params.ResponseFormat = rf
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(model, err)
	}
	if len(resp.Choices) == 0 {
		return "", &CallError{Kind: ErrorResponse, Model: model, Message: "response has no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping lists models, which every compatible server implements.
func (c *OpenAI) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.client.Models.List(ctx); err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode != http.StatusUnauthorized {
			// the server answered; listing may simply be unsupported
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case RoleTool:
			out = append(out, openai.UserMessage(fmt.Sprintf("Tool %s returned: %s", m.Name, m.Content)))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func responseFormat(format json.RawMessage) (openai.ChatCompletionNewParamsResponseFormatUnion, bool) {
	var rf openai.ChatCompletionNewParamsResponseFormatUnion
	if len(format) == 0 {
		return rf, false
	}
	var asString string
	if json.Unmarshal(format, &asString) == nil {
		if asString != "json" {
			return rf, false
		}
		rf.OfJSONObject = &shared.ResponseFormatJSONObjectParam{}
		return rf, true
	}
	var schema map[string]any
	if err := json.Unmarshal(format, &schema); err != nil {
		return rf, false
	}
	rf.OfJSONSchema = &shared.ResponseFormatJSONSchemaParam{
		JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   "response",
			Schema: schema,
		},
	}
	return rf, true
}

func classifyOpenAIError(model string, err error) *CallError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &CallError{
			Kind:    classifyStatus(apiErr.StatusCode),
			Model:   model,
			Status:  apiErr.StatusCode,
			Message: apiErr.Message,
			Err:     err,
		}
	}
	return &CallError{Kind: classifyErr(err), Model: model, Err: err}
}
