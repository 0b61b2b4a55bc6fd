package backend

import (
	"encoding/json"
	"maps"
)

// Options are generation settings. Nil fields are left to the server.
type Options struct {
	Temperature   *float64
	NumCtx        *int
	TopK          *int
	MinP          *float64
	RepeatPenalty *float64
	NumGPU        *int
	Seed          *int
	NumPredict    *int
	// Format is Ollama's format hint: the string "json" or a JSON schema.
	Format json.RawMessage
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// DefaultOptions are deterministic settings tuned for small models on CPU.
func DefaultOptions() Options {
	return Options{
		Temperature:   Float(0),
		NumCtx:        Int(8192),
		TopK:          Int(1),
		MinP:          Float(0.05),
		RepeatPenalty: Float(1.0),
		NumGPU:        Int(0),
		Seed:          Int(420),
	}
}

// JSONFormat is the plain "json" format hint.
var JSONFormat = json.RawMessage(`"json"`)

// SchemaFormat encodes schema as a format hint. It returns JSONFormat when the
// schema cannot be encoded.
func SchemaFormat(schema any) json.RawMessage {
	raw, err := json.Marshal(schema)
	if err != nil {
		return JSONFormat
	}
	return raw
}

// WithFormat returns a copy of o carrying format.
func (o Options) WithFormat(format json.RawMessage) Options {
	o.Format = format
	return o
}

// WithNumPredict returns a copy of o capped at n generated tokens.
func (o Options) WithNumPredict(n int) Options {
	o.NumPredict = Int(n)
	return o
}

// ollamaOptions renders the options block of an Ollama request.
func (o Options) ollamaOptions() map[string]any {
	out := map[string]any{}
	if o.Temperature != nil {
		out["temperature"] = *o.Temperature
	}
	if o.NumCtx != nil {
		out["num_ctx"] = *o.NumCtx
	}
	if o.TopK != nil {
		out["top_k"] = *o.TopK
	}
	if o.MinP != nil {
		out["min_p"] = *o.MinP
	}
	if o.RepeatPenalty != nil {
		out["repeat_penalty"] = *o.RepeatPenalty
	}
	if o.NumGPU != nil {
		out["num_gpu"] = *o.NumGPU
	}
	if o.Seed != nil {
		out["seed"] = *o.Seed
	}
	if o.NumPredict != nil {
		out["num_predict"] = *o.NumPredict
	}
	return out
}

// DefaultNumPredict caps generation for models missing from the table.
const DefaultNumPredict = 256

var defaultNumPredict = map[string]int{
	"llama3.2:1b":        128,
	"llama3.2:3b":        256,
	"gemma3:1b":          256,
	"gemma3:4b":          512,
	"granite3-moe:1b":    256,
	"granite3-moe:3b":    512,
	"qwen2.5:0.5b":       128,
	"qwen2.5:1.5b":       256,
	"qwen2.5-coder:0.5b": 128,
	"qwen2.5-coder:1.5b": 256,
	"granite4:350m":      128,
	"granite4:800m":      256,
}

// NumPredictTable maps model names to a token cap.
type NumPredictTable struct {
	byModel  map[string]int
	fallback int
}

// NewNumPredictTable layers overrides on the built-in table. A zero fallback keeps
// DefaultNumPredict.
func NewNumPredictTable(overrides map[string]int, fallback int) NumPredictTable {
	t := NumPredictTable{byModel: maps.Clone(defaultNumPredict), fallback: fallback}
	maps.Copy(t.byModel, overrides)
	if t.fallback <= 0 {
		t.fallback = DefaultNumPredict
	}
	return t
}

// For returns the cap of model. Exact names win; otherwise the longest table
// entry that prefixes model applies, so "qwen2.5-coder:0.5b-instruct-q4_k_m"
// matches "qwen2.5-coder:0.5b".
func (t NumPredictTable) For(model string) int {
	if n, ok := t.byModel[model]; ok {
		return n
	}
	best, n := "", t.fallback
	for name, v := range t.byModel {
		if len(name) > len(best) && len(model) > len(name) && model[:len(name)] == name {
			best, n = name, v
		}
	}
	return n
}
