// Package suite defines benchmark test cases, their validators and the built-in
// instruct, tool and agent suites.
package suite

import (
	"fmt"
	"slices"
)

// Mode selects which evaluator runs a suite.
type Mode string

// Benchmark modes.
const (
	ModeInstruct Mode = "instruct"
	ModeTool     Mode = "tool"
	ModeAgent    Mode = "agent"
)

// Modes lists every mode in run order.
var Modes = []Mode{ModeInstruct, ModeTool, ModeAgent}

// ParseMode validates s. "all" expands to every mode.
func ParseMode(s string) ([]Mode, error) {
	if s == "all" {
		return slices.Clone(Modes), nil
	}
	m := Mode(s)
	if !slices.Contains(Modes, m) {
		return nil, fmt.Errorf("unknown mode %q (want instruct, tool, agent or all)", s)
	}
	return []Mode{m}, nil
}

// Case is one immutable test.
type Case struct {
	Name      string
	Prompt    string
	Validator Validator
	// ExpectsTool marks tool-mode cases that must answer with a tool call.
	ExpectsTool bool
	// Steps is the tool sequence an agent run is expected to execute.
	Steps []string
}

// Suite is an ordered list of cases for one mode.
type Suite struct {
	Name  string
	Mode  Mode
	Cases []Case
}

// Validate reports a suite that cannot run.
func (s Suite) Validate() error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite %q has no cases", s.Name)
	}
	seen := map[string]bool{}
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("suite %q: case %d has no name", s.Name, i+1)
		}
		if seen[c.Name] {
			return fmt.Errorf("suite %q: duplicate case %q", s.Name, c.Name)
		}
		seen[c.Name] = true
		if c.Prompt == "" {
			return fmt.Errorf("suite %q: case %q has no prompt", s.Name, c.Name)
		}
		if c.Validator == nil {
			return fmt.Errorf("suite %q: case %q has no validator", s.Name, c.Name)
		}
	}
	return nil
}

// Builtin returns the built-in suite of mode.
func Builtin(mode Mode) (Suite, error) {
	switch mode {
	case ModeInstruct:
		return Suite{Name: "instruct", Mode: mode, Cases: instructCases()}, nil
	case ModeTool:
		return Suite{Name: "tool", Mode: mode, Cases: toolCases()}, nil
	case ModeAgent:
		return Suite{Name: "agent", Mode: mode, Cases: agentCases()}, nil
	default:
		return Suite{}, fmt.Errorf("no built-in suite for mode %q", mode)
	}
}
