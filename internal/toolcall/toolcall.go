// Package toolcall detects tool invocations in model output and extracts a canonical
// name and argument pair from the JSON shapes small models produce.
package toolcall

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind tags the variant returned by Detect.
type Kind int

const (
	// PlainText means the text is a natural-language answer.
	PlainText Kind = iota
	// ToolCall means a call was extracted.
	ToolCall
	// Malformed means the text is JSON carrying a tool-call key in an unusable shape.
	Malformed
)

func (k Kind) String() string {
	switch k {
	case ToolCall:
		return "tool_call"
	case Malformed:
		return "malformed"
	default:
		return "plain_text"
	}
}

// Shape names the JSON layout a call was recognized from.
type Shape string

// Recognized shapes, in the order they are tried.
const (
	ShapeToolCalls Shape = "tool_calls"
	ShapeNamed     Shape = "name_arguments"
	ShapeFunction  Shape = "function_params"
	ShapeTool      Shape = "tool_parameters"
	ShapeSingleKey Shape = "single_key"
)

// Call is a parsed tool invocation. Arguments holds whatever the model sent after
// string decoding: usually a map[string]any, but possibly a string or a list.
type Call struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// Args returns the arguments as a mapping, or nil when they are not one.
func (c Call) Args() map[string]any {
	m, _ := c.Arguments.(map[string]any)
	return m
}

// Result is the tagged outcome of Detect.
type Result struct {
	Kind   Kind
	Call   Call
	Shape  Shape
	Reason string
}

// maxStringDepth bounds recursive decoding of JSON-encoded argument strings.
const maxStringDepth = 3

var fence = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

// Detect classifies text as a tool call, a malformed call or plain text.
// It never returns partial data: Call is set only for Kind ToolCall.
func Detect(text string) Result {
	data, ok := decodeObject(text)
	if !ok {
		return Result{Kind: PlainText}
	}
	return classify(data)
}

// IsToolCall reports whether text carries a tool call, well formed or not.
func IsToolCall(text string) bool {
	return Detect(text).Kind != PlainText
}

// Parse returns the call in text, if any.
func Parse(text string) (Call, bool) {
	res := Detect(text)
	if res.Kind != ToolCall {
		return Call{}, false
	}
	return res.Call, true
}

// StripFence removes a leading ``` or ```json marker and a trailing ``` marker.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	return strings.TrimSpace(fence.ReplaceAllString(text, ""))
}

func decodeObject(text string) (map[string]any, bool) {
	cleaned := StripFence(text)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, false
	}
	return data, true
}

func classify(data map[string]any) Result {
	if raw, ok := data["tool_calls"]; ok {
		return fromToolCalls(raw)
	}
	if raw, ok := data["name"]; ok {
		return fromNamed(raw, firstPresent(data, "arguments", "parameters", "args"), ShapeNamed)
	}
	if raw, ok := data["function"]; ok {
		return fromFunction(raw, firstPresent(data, "params", "arguments", "parameters"))
	}
	if raw, ok := data["tool"]; ok {
		return fromNamed(raw, firstPresent(data, "parameters", "arguments", "args"), ShapeTool)
	}
	if len(data) == 1 {
		for key, val := range data {
			if args, ok := val.(map[string]any); ok && key != "" {
				return recognized(Call{Name: key, Arguments: args}, ShapeSingleKey)
			}
		}
	}
	return Result{Kind: PlainText}
}

func fromToolCalls(raw any) Result {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return malformed("tool_calls is not a non-empty list")
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return malformed("tool_calls[0] is not an object")
	}
	fn, ok := first["function"].(map[string]any)
	if !ok {
		return malformed("tool_calls[0].function is not an object")
	}
	return fromNamed(fn["name"], fn["arguments"], ShapeToolCalls)
}

func fromFunction(raw, args any) Result {
	switch fn := raw.(type) {
	case string:
		return fromNamed(fn, args, ShapeFunction)
	case map[string]any:
		inner := fn["arguments"]
		if inner == nil {
			inner = args
		}
		return fromNamed(fn["name"], inner, ShapeFunction)
	default:
		return malformed("function is neither a name nor an object")
	}
}

func fromNamed(rawName, args any, shape Shape) Result {
	name, ok := rawName.(string)
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return malformed("tool name is missing or not a string")
	}
	return recognized(Call{Name: name, Arguments: decodeArguments(args, 0)}, shape)
}

// decodeArguments turns JSON-encoded argument strings into values. Strings that do
// not decode are kept verbatim for the normalizer.
func decodeArguments(args any, depth int) any {
	switch v := args.(type) {
	case nil:
		return map[string]any{}
	case string:
		if depth >= maxStringDepth {
			return v
		}
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return map[string]any{}
		}
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			return v
		}
		return decodeArguments(decoded, depth+1)
	default:
		return v
	}
}

func firstPresent(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok {
			return v
		}
	}
	return nil
}

func recognized(call Call, shape Shape) Result {
	return Result{Kind: ToolCall, Call: call, Shape: shape}
}

func malformed(reason string) Result {
	return Result{Kind: Malformed, Reason: reason}
}
