// Package normalize repairs the tool calls small models emit before they reach
// the tool registry: aliased tool names, wrapped or misnamed arguments and values
// of the wrong type.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/gptbench/internal/tools"
)

// Registry is the dispatch surface the normalizer needs.
type Registry interface {
	Resolve(name string) (string, bool)
	Spec(name string) (tools.Spec, bool)
	Execute(ctx context.Context, name string, args map[string]any) tools.Result
}

// Call is a repaired tool call.
type Call struct {
	Name    string
	Args    map[string]any
	Repairs []string
}

// Normalizer applies the per-tool repair table and dispatches.
type Normalizer struct {
	reg Registry
}

// New returns a Normalizer dispatching to reg.
func New(reg Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

// Execute repairs name and args and dispatches the call. Unknown tools and
// arguments that remain invalid come back as an error-tagged Result.
func (n *Normalizer) Execute(ctx context.Context, name string, args any) tools.Result {
	call := n.Normalize(name, args)
	if len(call.Repairs) > 0 {
		log.Debug().Str("tool", call.Name).Strs("repairs", call.Repairs).Msg("normalized tool call")
	}
	return n.reg.Execute(ctx, call.Name, call.Args)
}

// Normalize returns the repaired call without dispatching it. Names that do not
// resolve are returned trimmed, with the arguments coerced to a mapping.
func (n *Normalizer) Normalize(name string, args any) Call {
	call := Call{Name: strings.TrimSpace(name)}
	canonical, ok := n.resolve(call.Name)
	if !ok {
		call.Args, _ = asMapping(args)
		if call.Args == nil {
			call.Args = map[string]any{}
		}
		return call
	}
	if canonical != call.Name {
		call.Repairs = append(call.Repairs, fmt.Sprintf("alias %s -> %s", call.Name, canonical))
	}
	call.Name = canonical

	spec, _ := n.reg.Spec(canonical)
	r := rules[canonical]
	call.Args, call.Repairs = repair(spec, r, args, call.Repairs)
	return call
}

func (n *Normalizer) resolve(name string) (string, bool) {
	if canonical, ok := n.reg.Resolve(name); ok {
		return canonical, true
	}
	folded := strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(name))
	folded = strings.TrimSuffix(strings.TrimSuffix(folded, "()"), "_tool")
	return n.reg.Resolve(folded)
}

func repair(spec tools.Spec, r rule, raw any, repairs []string) (map[string]any, []string) {
	note := func(format string, a ...any) {
		repairs = append(repairs, fmt.Sprintf(format, a...))
	}

	args, isMap := asMapping(raw)
	if !isMap {
		args = map[string]any{}
		if r.positional != "" && raw != nil {
			p, _ := spec.Param(r.positional)
			args[r.positional] = positionalValue(p, raw)
			note("positional %T -> %s", raw, r.positional)
		}
	}

	if inner, key, ok := unwrap(args); ok {
		args = inner
		note("unwrapped %q", key)
	}
	if r.fixup != nil {
		r.fixup(args)
	}

	for _, s := range r.synonyms {
		if _, present := args[s.param]; present {
			continue
		}
		for _, key := range s.keys {
			if _, declared := spec.Param(key); declared {
				continue
			}
			if v, ok := args[key]; ok {
				args[s.param] = v
				delete(args, key)
				note("renamed %s -> %s", key, s.param)
				break
			}
		}
	}

	for key, v := range args {
		p, declared := spec.Param(key)
		if !declared {
			delete(args, key)
			note("dropped unknown %s", key)
			continue
		}
		coerced, ok := coerce(p.Type, v)
		if ok {
			args[key] = coerced
			continue
		}
		if fb, has := r.fallbacks[key]; has {
			args[key] = fb
			note("fallback %s=%v", key, fb)
		}
	}
	return args, repairs
}

// asMapping returns raw as a fresh mapping, decoding JSON-encoded strings.
func asMapping(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		return maps.Clone(v), true
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &decoded); err == nil {
			if m, ok := decoded.(map[string]any); ok {
				return m, true
			}
		}
	}
	return nil, false
}

func positionalValue(p tools.Param, raw any) any {
	if list, ok := raw.([]any); ok && p.Type != tools.TypeNumberList {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return raw
}

// unwrap lifts the arguments out of a lone wrapper key holding a mapping.
func unwrap(args map[string]any) (map[string]any, string, bool) {
	if len(args) != 1 {
		return nil, "", false
	}
	for _, key := range wrapperKeys {
		if inner, ok := args[key].(map[string]any); ok {
			return maps.Clone(inner), key, true
		}
	}
	return nil, "", false
}

// coerce converts v to the declared parameter type. It reports false when the
// value cannot represent that type.
func coerce(t tools.ParamType, v any) (any, bool) {
	if list, ok := v.([]any); ok && t != tools.TypeNumberList {
		if len(list) == 0 {
			return v, false
		}
		v = list[0]
	}
	switch t {
	case tools.TypeInteger:
		return toInt(v)
	case tools.TypeNumber:
		return toNumber(v)
	case tools.TypeBoolean:
		return toBool(v)
	case tools.TypeString:
		return toString(v)
	case tools.TypeNumberList:
		return toNumberList(v)
	}
	return v, true
}

func toInt(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
		return int(math.Round(n)), true
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int(math.Round(f)), true
		}
	}
	return v, false
}

func toNumber(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return v, false
}

func toBool(v any) (any, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case int:
		return b != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1", "on":
			return true, true
		case "false", "no", "n", "0", "off":
			return false, true
		}
	}
	return v, false
}

func toString(v any) (any, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == math.Trunc(s) && math.Abs(s) < 1<<53 {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return v, false
}

func toNumberList(v any) (any, bool) {
	switch list := v.(type) {
	case string:
		var decoded []any
		if err := json.Unmarshal([]byte(list), &decoded); err == nil {
			return toNumberList(decoded)
		}
		if _, err := tools.ParseNumberList(list); err == nil {
			return list, true
		}
	case []any:
		nums, err := tools.ParseNumberList(list)
		if err != nil {
			return v, false
		}
		out := make([]any, len(nums))
		for i, n := range nums {
			out[i] = n
		}
		return out, true
	case float64, int:
		return []any{list}, true
	}
	return v, false
}
