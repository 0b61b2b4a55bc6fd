package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/metalagman/gptbench/internal/sanitize"
	"github.com/metalagman/gptbench/internal/toolcall"
)

// PlanMapping selects how a plan returned as a JSON object becomes steps.
type PlanMapping string

const (
	// MapKeys takes object keys as step names and values as per-step hints.
	MapKeys PlanMapping = "keys"
	// MapValues takes object values as step names.
	MapValues PlanMapping = "values"
)

// Step is one planned tool invocation.
type Step struct {
	Name string `json:"name"`
	Hint any    `json:"hint,omitempty"`
}

// ParsePlan reads a planner reply leniently. A list is used as is, an object is
// mapped per mapping, any other JSON value becomes a single step, and text that
// holds no JSON yields an empty plan.
func ParsePlan(raw string, mapping PlanMapping) []Step {
	data, ok := planJSON(raw)
	if !ok {
		return nil
	}
	text := string(data)

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch plan := v.(type) {
	case nil:
		return nil
	case []any:
		return stepsFromList(plan)
	case map[string]any:
		keys := objectKeys(data)
		if len(plan) == 1 {
			if list, ok := plan[keys[0]].([]any); ok && isPlanWrapper(keys[0]) {
				return stepsFromList(list)
			}
		}
		if mapping == MapValues {
			return stepsFromValues(plan, keys)
		}
		steps := make([]Step, 0, len(keys))
		for _, k := range keys {
			if name := strings.TrimSpace(k); name != "" {
				steps = append(steps, Step{Name: name, Hint: plan[k]})
			}
		}
		return steps
	case string:
		if name := strings.TrimSpace(plan); name != "" {
			return []Step{{Name: name}}
		}
		return nil
	default:
		return []Step{{Name: text}}
	}
}

// planJSON finds the JSON document in a planner reply. The fence-stripped raw text
// is tried before the sanitized one because sanitizing unwraps a quoted scalar.
func planJSON(raw string) ([]byte, bool) {
	candidates := []string{toolcall.StripFence(raw), sanitize.Clean(raw)}
	for _, c := range candidates {
		if json.Valid([]byte(c)) {
			return []byte(c), true
		}
	}
	extracted, ok := toolcall.ExtractJSON(candidates[1])
	return []byte(extracted), ok
}

// isPlanWrapper reports keys planners nest the step list under.
func isPlanWrapper(key string) bool {
	switch strings.ToLower(key) {
	case "plan", "steps", "tools", "tool_sequence":
		return true
	}
	return false
}

func stepsFromList(list []any) []Step {
	steps := make([]Step, 0, len(list))
	for _, item := range list {
		if step, ok := stepFromValue(item); ok {
			steps = append(steps, step)
		}
	}
	return steps
}

func stepFromValue(item any) (Step, bool) {
	switch v := item.(type) {
	case string:
		name := strings.TrimSpace(v)
		return Step{Name: name}, name != ""
	case map[string]any:
		for _, key := range []string{"tool", "name", "step", "action"} {
			if name, ok := v[key].(string); ok && strings.TrimSpace(name) != "" {
				hint := make(map[string]any, len(v)-1)
				for k, val := range v {
					if k != key {
						hint[k] = val
					}
				}
				if len(hint) == 0 {
					return Step{Name: strings.TrimSpace(name)}, true
				}
				return Step{Name: strings.TrimSpace(name), Hint: hint}, true
			}
		}
		return Step{}, false
	case nil:
		return Step{}, false
	default:
		return Step{Name: fmt.Sprint(v)}, true
	}
}

func stepsFromValues(plan map[string]any, keys []string) []Step {
	var steps []Step
	for _, k := range keys {
		switch v := plan[k].(type) {
		case []any:
			steps = append(steps, stepsFromList(v)...)
		default:
			if step, ok := stepFromValue(v); ok {
				if step.Hint == nil {
					step.Hint = k
				}
				steps = append(steps, step)
			}
		}
	}
	return steps
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
		keys = append(keys, key)
	}
	return keys
}
