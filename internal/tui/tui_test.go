package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/suite"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestModelTracksProgress(t *testing.T) {
	t.Parallel()

	m := NewModel("run-1", nil)
	m, _ = update(t, m, ModelStartedMsg{Mode: suite.ModeTool, Model: "granite4:350m", Total: 2})
	m, _ = update(t, m, TestFinishedMsg{Result: bench.Result{Model: "granite4:350m", Test: "TC1", Outcome: bench.Pass, Latency: time.Second}})

	view := m.View()
	assert.Contains(t, view, "run-1")
	assert.Contains(t, view, "TOOL granite4:350m")
	assert.Contains(t, view, "1/2")
	assert.Contains(t, view, "TC1")
	assert.Contains(t, view, "PASS")

	m, _ = update(t, m, TestFinishedMsg{Result: bench.Result{Model: "granite4:350m", Test: "TC2", Outcome: bench.Error}})
	m, _ = update(t, m, ModelFinishedMsg{Summary: bench.Summary{Mode: suite.ModeTool, Model: "granite4:350m", Total: 2, Passed: 1, Score: 50}})
	assert.Contains(t, m.View(), "50.00%")
	require.Len(t, m.Summaries(), 1)
}

func TestModelKeepsRecentWindow(t *testing.T) {
	t.Parallel()

	m := NewModel("run-1", nil)
	m, _ = update(t, m, ModelStartedMsg{Mode: suite.ModeInstruct, Model: "m", Total: 20})
	for range 20 {
		m, _ = update(t, m, TestFinishedMsg{Result: bench.Result{Test: "S1", Outcome: bench.Fail}})
	}
	assert.Len(t, m.recent, recentLimit)
	assert.Equal(t, 20, m.done)
}

func TestModelQuitCancels(t *testing.T) {
	t.Parallel()

	cancelled := false
	m := NewModel("run-1", func() { cancelled = true })
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, cancelled)
	assert.Nil(t, cmd, "the view waits for the benchmark to stop")

	boom := errors.New("boom")
	m, cmd = update(t, m, DoneMsg{Err: boom})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.Err(), boom)
	assert.NotContains(t, m.View(), "q: stop")
}

func TestObserverWithoutProgram(t *testing.T) {
	t.Parallel()

	obs := NewObserver(nil)
	assert.NotPanics(t, func() {
		obs.ModelStarted(suite.ModeAgent, "m", 1)
		obs.TestFinished(bench.Result{})
		obs.ModelFinished(bench.Summary{})
		obs.Done(nil)
	})
}
