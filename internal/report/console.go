// Package report writes benchmark results: live console progress, the per-mode
// summary table and the CSV, JSON and SQLite sinks.
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/suite"
)

const previewLen = 200

type styles struct {
	pass, fail, errored, dim, title, best lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		pass:    r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		fail:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		errored: r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")),
		title:   r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		best:    r.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
	}
}

func (s styles) outcome(o bench.Outcome) string {
	switch o {
	case bench.Pass:
		return s.pass.Render("✅ PASS")
	case bench.Fail:
		return s.fail.Render("❌ FAIL")
	default:
		return s.errored.Render("⚠️ ERROR")
	}
}

// Console prints one line per test as results arrive.
type Console struct {
	w       io.Writer
	verbose bool
	st      styles
}

// NewConsole returns a Console writing to w. Verbose adds raw output, tool call
// and tool result under every test.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose, st: newStyles(lipgloss.NewRenderer(w))}
}

// ModelStarted implements bench.Observer.
func (c *Console) ModelStarted(mode suite.Mode, model string, total int) {
	fmt.Fprintf(c.w, "\n%s %s (%d tests)\n", c.st.title.Render("▶ "+strings.ToUpper(string(mode))), model, total)
}

// TestFinished implements bench.Observer.
func (c *Console) TestFinished(res bench.Result) {
	fmt.Fprintf(c.w, "Test: %-22s %s (%.2fs)\n", res.Test, c.st.outcome(res.Outcome), res.Latency.Seconds())
	if res.Outcome != bench.Pass && res.Error != "" {
		fmt.Fprintf(c.w, "    └─ %s\n", c.st.dim.Render(res.Error))
	}
	if !c.verbose {
		return
	}
	if res.Raw != "" {
		fmt.Fprintf(c.w, "      ├─ Raw: %q\n", preview(res.Raw, previewLen))
	}
	if len(res.Plan) > 0 {
		names := make([]string, 0, len(res.Plan))
		for _, step := range res.Plan {
			names = append(names, step.Name)
		}
		fmt.Fprintf(c.w, "      ├─ Plan: %s\n", strings.Join(names, " → "))
	}
	if res.ToolCall != nil {
		fmt.Fprintf(c.w, "      ├─ Tool Call: %s(%v)\n", res.ToolCall.Name, res.ToolCall.Arguments)
	}
	if res.ToolResult != nil {
		fmt.Fprintf(c.w, "      ├─ Tool Result: %s\n", preview(fmt.Sprint(res.ToolResult), 100))
	}
	fmt.Fprintf(c.w, "      └─ Final: %s\n", preview(res.Sanitized, 100))
}

// ModelFinished implements bench.Observer.
func (c *Console) ModelFinished(sum bench.Summary) {
	fmt.Fprintf(c.w, "\n📊 Model Summary: %s - Score: %.2f%% - Avg Latency: %.2fs\n", sum.Model, sum.Score, sum.AvgLatency.Seconds())
}

// preview truncates s to n runes.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
