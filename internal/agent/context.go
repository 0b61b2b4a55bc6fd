package agent

import (
	"encoding/json"
)

// Entry records the outcome of one executed plan step. Exactly one of Result,
// Error and Response is set.
type Entry struct {
	Step      int            `json:"step"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Response  string         `json:"response,omitempty"`
}

// Context is the ordered execution record fed to later steps and the synthesizer.
type Context []Entry

// JSON serializes the context. An empty context is "[]".
func (c Context) JSON() string {
	if len(c) == 0 {
		return "[]"
	}
	raw, err := json.Marshal([]Entry(c))
	if err != nil {
		return "[]"
	}
	return string(raw)
}
