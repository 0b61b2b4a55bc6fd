package tools

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NotFoundError reports a dispatch to a name that is neither a tool nor an alias.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Tool '%s' not found", e.Name)
}

// InvalidArgumentsError reports arguments that fail the tool's parameter schema.
type InvalidArgumentsError struct {
	Tool   string
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("Invalid arguments for %s: %s", e.Tool, e.Reason)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Result is the outcome of one dispatch. Exactly one of Data and Err is set.
type Result struct {
	Tool string
	Data map[string]any
	Err  error
}

// OK reports whether the tool ran and returned data.
func (r Result) OK() bool {
	return r.Err == nil
}

// Value returns the data, or an error marker mapping for failed dispatches.
func (r Result) Value() map[string]any {
	if r.Err != nil {
		return map[string]any{"error": r.Err.Error()}
	}
	return r.Data
}

// JSON serializes Value for inclusion in a conversation or execution context.
func (r Result) JSON() string {
	raw, err := json.Marshal(r.Value())
	if err != nil {
		raw, _ = json.Marshal(map[string]any{"error": fmt.Sprintf("encode %s result: %v", r.Tool, err)})
	}
	return string(raw)
}
