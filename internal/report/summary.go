package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/suite"
)

var modeTitles = map[suite.Mode]string{
	suite.ModeInstruct: "📊 INSTRUCT BENCHMARK REPORT",
	suite.ModeTool:     "🛠️  TOOL BENCHMARK REPORT",
	suite.ModeAgent:    "📊 AGENT BENCHMARK REPORT",
}

const tableWidth = 65

// Ranked orders summaries by score, best first. Ties go to the faster model.
func Ranked(sums []bench.Summary) []bench.Summary {
	out := make([]bench.Summary, len(sums))
	copy(out, sums)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].AvgLatency < out[j].AvgLatency
	})
	return out
}

// RenderSummary renders the report table of one mode with a best-model line.
func RenderSummary(w io.Writer, mode suite.Mode, sums []bench.Summary) {
	st := newStyles(lipgloss.NewRenderer(w))
	title, ok := modeTitles[mode]
	if !ok {
		title = strings.ToUpper(string(mode)) + " REPORT"
	}
	rule := strings.Repeat("-", tableWidth)

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(st.title.Render(lipgloss.PlaceHorizontal(tableWidth, lipgloss.Center, title)))
	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&b, "%-30s | %-12s | %-12s | %-8s\n", "Model", "Score", "Avg Latency", "Tests")
	b.WriteString(rule + "\n")
	ranked := Ranked(sums)
	for _, s := range ranked {
		fmt.Fprintf(&b, "%-30s | %10.2f%% | %11.2fs | %6d\n", s.Model, s.Score, s.AvgLatency.Seconds(), s.Total)
	}
	b.WriteString(rule + "\n")
	if len(ranked) > 0 {
		label := "Best Model"
		if mode == suite.ModeAgent {
			label = "Best Agent Performer"
		}
		b.WriteString("\n" + st.best.Render(fmt.Sprintf("🏆 %s: %s - %.2f%%", label, ranked[0].Model, ranked[0].Score)) + "\n")
	}
	_, _ = io.WriteString(w, b.String())
}
