package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/metalagman/gptbench/internal/bench"
	"github.com/metalagman/gptbench/internal/suite"
)

// ModelStartedMsg is sent when a model begins a suite.
type ModelStartedMsg struct {
	Mode  suite.Mode
	Model string
	Total int
}

// TestFinishedMsg carries one graded test.
type TestFinishedMsg struct {
	Result bench.Result
}

// ModelFinishedMsg carries a model's summary.
type ModelFinishedMsg struct {
	Summary bench.Summary
}

// DoneMsg ends the program once the benchmark returns.
type DoneMsg struct {
	Err error
}

// Observer forwards runner callbacks to a bubbletea program. Send is safe to
// call from the runner goroutine.
type Observer struct {
	program *tea.Program
}

// NewObserver returns an Observer sending to program.
func NewObserver(program *tea.Program) *Observer {
	return &Observer{program: program}
}

// ModelStarted implements bench.Observer.
func (o *Observer) ModelStarted(mode suite.Mode, model string, total int) {
	o.send(ModelStartedMsg{Mode: mode, Model: model, Total: total})
}

// TestFinished implements bench.Observer.
func (o *Observer) TestFinished(res bench.Result) {
	o.send(TestFinishedMsg{Result: res})
}

// ModelFinished implements bench.Observer.
func (o *Observer) ModelFinished(sum bench.Summary) {
	o.send(ModelFinishedMsg{Summary: sum})
}

// Done stops the program.
func (o *Observer) Done(err error) {
	o.send(DoneMsg{Err: err})
}

func (o *Observer) send(msg tea.Msg) {
	if o.program != nil {
		o.program.Send(msg)
	}
}
