// Package tui renders a live benchmark view with bubbletea: a spinner and
// progress bar for the model under test, recent verdicts and finished models.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/suite"
)

const (
	recentLimit   = 8
	progressWidth = 40
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model is the bubbletea model of a benchmark run.
type Model struct {
	runID    string
	spinner  spinner.Model
	progress progress.Model
	// cancel stops the benchmark when the user quits.
	cancel context.CancelFunc

	mode    suite.Mode
	model   string
	total   int
	done    int
	started time.Time

	recent    []bench.Result
	summaries []bench.Summary
	finished  bool
	err       error
}

// NewModel returns the initial model. cancel is called on ctrl+c or q.
func NewModel(runID string, cancel context.CancelFunc) Model {
	return Model{
		runID:    runID,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
		cancel:   cancel,
	}
}

// Summaries returns the models finished so far.
func (m Model) Summaries() []bench.Summary { return m.summaries }

// Err returns the benchmark error delivered with DoneMsg.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.progress.Width = min(progressWidth, max(10, msg.Width-20))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case ModelStartedMsg:
		m.mode, m.model, m.total, m.done = msg.Mode, msg.Model, msg.Total, 0
		m.started = time.Now()
	case TestFinishedMsg:
		m.done++
		m.recent = append(m.recent, msg.Result)
		if len(m.recent) > recentLimit {
			m.recent = m.recent[len(m.recent)-recentLimit:]
		}
	case ModelFinishedMsg:
		m.summaries = append(m.summaries, msg.Summary)
	case DoneMsg:
		m.finished, m.err = true, msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gptbench") + dimStyle.Render(" run "+m.runID) + "\n\n")

	if m.model != "" && !m.finished {
		pct := 0.0
		if m.total > 0 {
			pct = float64(m.done) / float64(m.total)
		}
		fmt.Fprintf(&b, "%s %s %s\n", m.spinner.View(), strings.ToUpper(string(m.mode)), m.model)
		fmt.Fprintf(&b, "%s %d/%d %s\n\n", m.progress.ViewAs(pct), m.done, m.total,
			dimStyle.Render(time.Since(m.started).Round(time.Second).String()))
	}

	if len(m.recent) > 0 {
		lines := make([]string, 0, len(m.recent))
		for _, r := range m.recent {
			lines = append(lines, fmt.Sprintf("%s %-22s %-28s %6.2fs", verdict(r.Outcome), r.Test, r.Model, r.Latency.Seconds()))
		}
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")) + "\n")
	}

	for _, s := range m.summaries {
		fmt.Fprintf(&b, "%s %-7s %-30s %6.2f%%  %d/%d\n", passStyle.Render("■"),
			s.Mode, s.Model, s.Score, s.Passed, s.Total)
	}
	if !m.finished {
		b.WriteString(dimStyle.Render("\nq: stop after current test") + "\n")
	}
	return b.String()
}

func verdict(o bench.Outcome) string {
	switch o {
	case bench.Pass:
		return passStyle.Render("PASS ")
	case bench.Fail:
		return failStyle.Render("FAIL ")
	default:
		return errStyle.Render("ERROR")
	}
}

// Run drives fn in the background while the program renders and returns the
// final model state with fn's error. Quitting the view cancels fn's context.
func Run(ctx context.Context, out io.Writer, runID string, fn func(ctx context.Context, obs *Observer) error) (Model, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(runID, cancel), tea.WithOutput(out))
	obs := NewObserver(p)
	errc := make(chan error, 1)
	go func() {
		err := fn(ctx, obs)
		errc <- err
		obs.Done(err)
	}()

	final, runErr := p.Run()
	cancel()
	err := <-errc
	if runErr != nil {
		return Model{}, fmt.Errorf("tui: %w", runErr)
	}
	m, _ := final.(Model)
	return m, err
}
