// Package config loads gptbench settings from file, environment and flags.
package config

import (
	"fmt"
	"time"

	"github.com/metalagman/gptbench/internal/agent"
	"github.com/metalagman/gptbench/internal/backend"
	"github.com/metalagman/gptbench/internal/suite"
)

// Backend types.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config is the root configuration.
type Config struct {
	Backend         BackendConfig    `json:"backend"          mapstructure:"backend"`
	Models          []string         `json:"models"           mapstructure:"models"`
	Mode            string           `json:"mode"             mapstructure:"mode"`
	Delay           float64          `json:"delay"            mapstructure:"delay"`
	Warmup          bool             `json:"warmup"           mapstructure:"warmup"`
	Pull            bool             `json:"pull"             mapstructure:"pull"`
	PullConcurrency int              `json:"pull_concurrency" mapstructure:"pull_concurrency"`
	Verbose         bool             `json:"verbose"          mapstructure:"verbose"`
	Generation      GenerationConfig `json:"generation"       mapstructure:"generation"`
	NumPredict      NumPredictConfig `json:"num_predict"      mapstructure:"num_predict"`
	Agent           AgentConfig      `json:"agent"            mapstructure:"agent"`
	Output          OutputConfig     `json:"output"           mapstructure:"output"`
	Suites          SuitesConfig     `json:"suites"           mapstructure:"suites"`
	Tools           ToolsConfig      `json:"tools"            mapstructure:"tools"`
	Retention       RetentionPolicy  `json:"retention"        mapstructure:"retention"`
}

// BackendConfig selects and addresses the chat server.
type BackendConfig struct {
	Type      string `json:"type"                  mapstructure:"type"`
	BaseURL   string `json:"base_url,omitempty"    mapstructure:"base_url"`
	APIKey    string `json:"api_key,omitempty"     mapstructure:"api_key"`
	APIKeyEnv string `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	// Timeout is per request, in seconds.
	Timeout float64 `json:"timeout,omitempty" mapstructure:"timeout"`
}

// GenerationConfig holds the sampling options sent with every request.
type GenerationConfig struct {
	Temperature   float64 `json:"temperature"    mapstructure:"temperature"`
	NumCtx        int     `json:"num_ctx"        mapstructure:"num_ctx"`
	TopK          int     `json:"top_k"          mapstructure:"top_k"`
	MinP          float64 `json:"min_p"          mapstructure:"min_p"`
	RepeatPenalty float64 `json:"repeat_penalty" mapstructure:"repeat_penalty"`
	NumGPU        int     `json:"num_gpu"        mapstructure:"num_gpu"`
	Seed          int     `json:"seed"           mapstructure:"seed"`
}

// NumPredictConfig caps generated tokens per model. Model names are kept in a
// list because they contain dots, which viper treats as key separators.
type NumPredictConfig struct {
	Default int               `json:"default"          mapstructure:"default"`
	Models  []ModelNumPredict `json:"models,omitempty" mapstructure:"models"`
}

// ModelNumPredict is one per-model cap.
type ModelNumPredict struct {
	Model  string `json:"model"  mapstructure:"model"`
	Tokens int    `json:"tokens" mapstructure:"tokens"`
}

// AgentConfig tunes the agent pipeline.
type AgentConfig struct {
	PlannerModel string `json:"planner_model" mapstructure:"planner_model"`
	PlanMapping  string `json:"plan_mapping"  mapstructure:"plan_mapping"`
}

// OutputConfig selects result sinks. Empty values disable a sink.
type OutputConfig struct {
	CSV        string `json:"csv,omitempty"         mapstructure:"csv"`
	JSONPrefix string `json:"json_prefix,omitempty" mapstructure:"json_prefix"`
	SQLite     string `json:"sqlite,omitempty"      mapstructure:"sqlite"`
}

// SuitesConfig points modes at YAML suites replacing the built-in ones.
type SuitesConfig struct {
	Instruct string `json:"instruct,omitempty" mapstructure:"instruct"`
	Tool     string `json:"tool,omitempty"     mapstructure:"tool"`
	Agent    string `json:"agent,omitempty"    mapstructure:"agent"`
}

// ToolsConfig configures the tool registry.
type ToolsConfig struct {
	BaseDir     string  `json:"base_dir,omitempty" mapstructure:"base_dir"`
	LiveWeather bool    `json:"live_weather"       mapstructure:"live_weather"`
	HTTPTimeout float64 `json:"http_timeout"       mapstructure:"http_timeout"`
}

// RetentionPolicy defines which stored runs `runs prune` keeps.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// DefaultModels are benchmarked when no models are configured.
var DefaultModels = []string{"qwen2.5-coder:0.5b-instruct-q4_k_m", "granite4:350m"}

// DefaultPlannerModel plans agent tasks unless configured otherwise.
const DefaultPlannerModel = "qwen2.5-coder:0.5b-instruct-q4_k_m"

// Check reports settings the schema cannot express.
func (c Config) Check() error {
	if _, err := suite.ParseMode(c.Mode); err != nil {
		return err
	}
	switch c.Backend.Type {
	case BackendOllama, BackendOpenAI:
	default:
		return fmt.Errorf("backend.type must be %q or %q, got %q", BackendOllama, BackendOpenAI, c.Backend.Type)
	}
	switch agent.PlanMapping(c.Agent.PlanMapping) {
	case agent.MapKeys, agent.MapValues:
	default:
		return fmt.Errorf("agent.plan_mapping must be %q or %q, got %q", agent.MapKeys, agent.MapValues, c.Agent.PlanMapping)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("no models configured")
	}
	if c.PullConcurrency <= 0 {
		return fmt.Errorf("pull_concurrency must be > 0")
	}
	return nil
}

// Modes expands the configured mode.
func (c Config) Modes() []suite.Mode {
	modes, err := suite.ParseMode(c.Mode)
	if err != nil {
		return nil
	}
	return modes
}

// DelayDuration returns the inter-test delay.
func (c Config) DelayDuration() time.Duration {
	return seconds(c.Delay)
}

// Options converts the generation settings to backend options.
func (g GenerationConfig) Options() backend.Options {
	return backend.Options{
		Temperature:   backend.Float(g.Temperature),
		NumCtx:        backend.Int(g.NumCtx),
		TopK:          backend.Int(g.TopK),
		MinP:          backend.Float(g.MinP),
		RepeatPenalty: backend.Float(g.RepeatPenalty),
		NumGPU:        backend.Int(g.NumGPU),
		Seed:          backend.Int(g.Seed),
	}
}

// Table builds the per-model token cap lookup.
func (n NumPredictConfig) Table() backend.NumPredictTable {
	overrides := make(map[string]int, len(n.Models))
	for _, m := range n.Models {
		overrides[m.Model] = m.Tokens
	}
	return backend.NewNumPredictTable(overrides, n.Default)
}

// TimeoutDuration returns the request timeout, zero meaning the client default.
func (b BackendConfig) TimeoutDuration() time.Duration {
	return seconds(b.Timeout)
}

// HTTPTimeoutDuration returns the network tools' timeout.
func (t ToolsConfig) HTTPTimeoutDuration() time.Duration {
	return seconds(t.HTTPTimeout)
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// Path returns the suite file configured for mode, if any.
func (s SuitesConfig) Path(mode suite.Mode) string {
	switch mode {
	case suite.ModeInstruct:
		return s.Instruct
	case suite.ModeTool:
		return s.Tool
	case suite.ModeAgent:
		return s.Agent
	default:
		return ""
	}
}
