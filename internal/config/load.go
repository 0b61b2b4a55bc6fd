package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/metalagman/gptbench/internal/backend"
)

// DefaultPath is where the config file is looked up when --config is not given.
var DefaultPath = filepath.Join(".gptbench", "config.json")

// EnvPrefix prefixes environment overrides, e.g. GPTBENCH_BACKEND_BASE_URL.
const EnvPrefix = "GPTBENCH"

// SetDefaults registers every key with its default so environment overrides
// reach keys absent from the file.
func SetDefaults(v *viper.Viper) {
	gen := backend.DefaultOptions()
	defaults := map[string]any{
		"backend.type":              BackendOllama,
		"backend.base_url":          "",
		"backend.api_key":           "",
		"backend.api_key_env":       "",
		"backend.timeout":           0.0,
		"models":                    DefaultModels,
		"mode":                      "all",
		"delay":                     0.2,
		"warmup":                    true,
		"pull":                      true,
		"pull_concurrency":          2,
		"verbose":                   false,
		"generation.temperature":    *gen.Temperature,
		"generation.num_ctx":        *gen.NumCtx,
		"generation.top_k":          *gen.TopK,
		"generation.min_p":          *gen.MinP,
		"generation.repeat_penalty": *gen.RepeatPenalty,
		"generation.num_gpu":        *gen.NumGPU,
		"generation.seed":           *gen.Seed,
		"num_predict.default":       backend.DefaultNumPredict,
		"agent.planner_model":       DefaultPlannerModel,
		"agent.plan_mapping":        "keys",
		"output.csv":                "benchmark_results.csv",
		"output.json_prefix":        "benchmark_results",
		"output.sqlite":             filepath.Join(".gptbench", "gptbench.db"),
		"suites.instruct":           "",
		"suites.tool":               "",
		"suites.agent":              "",
		"tools.base_dir":            "",
		"tools.live_weather":        false,
		"tools.http_timeout":        10.0,
		"retention.keep_last":       0,
		"retention.keep_days":       0,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load reads the config file at path into v and decodes the merged settings.
// A missing file is an error only when the path was given explicitly.
func Load(v *viper.Viper, path string, explicit bool) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		// The file is validated on its own: env and flag values arrive as strings
		// and are converted during decoding.
		if err := ValidateJSON(raw); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		log.Debug().Str("path", path).Msg("config file loaded")
	case errors.Is(err, os.ErrNotExist) && !explicit:
		log.Debug().Str("path", path).Msg("no config file, using defaults")
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	return decode(v)
}

// Defaults returns the built-in configuration.
func Defaults() (Config, error) {
	v := viper.New()
	SetDefaults(v)
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Models = splitModels(cfg.Models)
	if err := cfg.Check(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// splitModels accepts both repeated and comma-separated model flags.
func splitModels(models []string) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		for _, part := range strings.Split(m, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
