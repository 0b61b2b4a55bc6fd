// Package bench drives the evaluators over a suite for every configured model and
// aggregates pass rates and latency.
package bench

import (
	"time"

	"github.com/metalagman/gptbench/internal/agent"
	"github.com/metalagman/gptbench/internal/suite"
	"github.com/metalagman/gptbench/internal/toolcall"
)

// Outcome grades one test execution.
type Outcome string

// Outcomes.
const (
	Pass  Outcome = "PASS"
	Fail  Outcome = "FAIL"
	Error Outcome = "ERROR"
)

// Result is the immutable record of one test execution.
type Result struct {
	RunID         string         `json:"run_id"`
	Mode          suite.Mode     `json:"mode"`
	Model         string         `json:"model"`
	Test          string         `json:"test"`
	Outcome       Outcome        `json:"outcome"`
	Latency       time.Duration  `json:"-"`
	LatencySec    float64        `json:"latency"`
	Raw           string         `json:"raw,omitempty"`
	Sanitized     string         `json:"sanitized,omitempty"`
	ToolCall      *toolcall.Call `json:"tool_call,omitempty"`
	ToolResult    map[string]any `json:"tool_result,omitempty"`
	FinalResponse string         `json:"final_response,omitempty"`
	Plan          []agent.Step   `json:"plan,omitempty"`
	Context       agent.Context  `json:"context,omitempty"`
	StepsMatch    *bool          `json:"steps_match,omitempty"`
	Error         string         `json:"error,omitempty"`
	At            time.Time      `json:"at"`
}

// Passed reports a PASS outcome.
func (r Result) Passed() bool { return r.Outcome == Pass }

// Summary aggregates one model's results for one mode.
type Summary struct {
	RunID   string        `json:"run_id"`
	Mode    suite.Mode    `json:"mode"`
	Model   string        `json:"model"`
	Total   int           `json:"total"`
	Passed  int           `json:"passed"`
	Failed  int           `json:"failed"`
	Errored int           `json:"errored"`
	Elapsed time.Duration `json:"-"`
	// Score is the pass percentage over all tests, errors included.
	Score float64 `json:"score"`
	// AvgLatency is the total latency divided by the number of tests.
	AvgLatency time.Duration `json:"-"`
	AvgSec     float64       `json:"avg_latency"`
}

// Summarize aggregates results.
func Summarize(runID string, mode suite.Mode, model string, results []Result) Summary {
	s := Summary{RunID: runID, Mode: mode, Model: model, Total: len(results)}
	for _, r := range results {
		s.Elapsed += r.Latency
		switch r.Outcome {
		case Pass:
			s.Passed++
		case Fail:
			s.Failed++
		case Error:
			s.Errored++
		}
	}
	if s.Total > 0 {
		s.Score = float64(s.Passed) / float64(s.Total) * 100
		s.AvgLatency = s.Elapsed / time.Duration(s.Total)
	}
	s.AvgSec = s.AvgLatency.Seconds()
	return s
}
