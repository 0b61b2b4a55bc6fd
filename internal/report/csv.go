package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/lock"
	"github.com/metalagman/gptbench/internal/suite"
)

var csvHeader = []string{"Run", "Mode", "Model", "Test", "Outcome", "Latency", "Tool Call", "Final Response", "Error", "At"}

// CSVSink appends one row per test to a CSV file shared across runs. Appends hold
// a lock so concurrent gptbench processes never interleave rows.
type CSVSink struct {
	path string
}

// NewCSVSink returns a sink appending to path.
func NewCSVSink(path string) (*CSVSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create csv dir: %w", err)
		}
	}
	return &CSVSink{path: path}, nil
}

// Record implements bench.Sink.
func (s *CSVSink) Record(_ context.Context, res bench.Result) error {
	l, err := lock.Acquire(s.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = l.Release() }()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat csv: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		_ = w.Write(csvHeader)
	}
	_ = w.Write(csvRow(res))
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

func csvRow(res bench.Result) []string {
	toolCall := ""
	if res.ToolCall != nil {
		if raw, err := json.Marshal(res.ToolCall); err == nil {
			toolCall = string(raw)
		}
	}
	final := res.FinalResponse
	if final == "" {
		final = res.Raw
	}
	return []string{
		res.RunID,
		string(res.Mode),
		res.Model,
		res.Test,
		string(res.Outcome),
		strconv.FormatFloat(res.Latency.Seconds(), 'f', 2, 64),
		toolCall,
		final,
		res.Error,
		res.At.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Flush implements bench.Sink. Rows are written as they arrive.
func (s *CSVSink) Flush(context.Context, suite.Mode, []bench.Summary, [][]bench.Result) error {
	return nil
}

// Close implements bench.Sink.
func (s *CSVSink) Close() error { return nil }
