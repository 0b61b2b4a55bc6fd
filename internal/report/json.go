package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/suite"
)

// JSONSink rewrites <prefix>_<mode>.json after every model with everything the
// mode produced so far.
type JSONSink struct {
	prefix string
}

// NewJSONSink returns a sink writing files named after prefix.
func NewJSONSink(prefix string) *JSONSink {
	return &JSONSink{prefix: prefix}
}

// Path returns the document path for mode.
func (s *JSONSink) Path(mode suite.Mode) string {
	return fmt.Sprintf("%s_%s.json", s.prefix, mode)
}

type modeDocument struct {
	RunID  string       `json:"run_id"`
	Mode   suite.Mode   `json:"mode"`
	Models []modelEntry `json:"models"`
}

type modelEntry struct {
	bench.Summary
	Results []bench.Result `json:"results"`
}

// Record implements bench.Sink. Results are written on Flush.
func (s *JSONSink) Record(context.Context, bench.Result) error { return nil }

// Flush implements bench.Sink.
func (s *JSONSink) Flush(_ context.Context, mode suite.Mode, sums []bench.Summary, results [][]bench.Result) error {
	doc := modeDocument{Mode: mode, Models: make([]modelEntry, 0, len(sums))}
	for i, sum := range sums {
		doc.RunID = sum.RunID
		entry := modelEntry{Summary: sum, Results: []bench.Result{}}
		if i < len(results) {
			entry.Results = results[i]
		}
		doc.Models = append(doc.Models, entry)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s results: %w", mode, err)
	}
	return writeFileAtomic(s.Path(mode), append(raw, '\n'))
}

// Close implements bench.Sink.
func (s *JSONSink) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
