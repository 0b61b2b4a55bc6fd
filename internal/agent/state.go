package agent

// State is a pipeline stage. Transitions only move forward.
type State int

const (
	StatePlanning State = iota
	StateExecuting
	StateSynthesizing
	StateValidating
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StatePlanning:
		return "PLANNING"
	case StateExecuting:
		return "EXECUTING"
	case StateSynthesizing:
		return "SYNTHESIZING"
	case StateValidating:
		return "VALIDATING"
	case StateDone:
		return "DONE"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
