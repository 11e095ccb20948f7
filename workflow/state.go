package workflow

import "github.com/zero-day-ai/bimq/eval"

// State names a step of the workflow.
type State string

const (
	StateGenerateQuery State = "generate_query"
	StateExecute       State = "execute"
	StateEvaluate      State = "evaluate"
	StateRepair        State = "repair"
	StateSummarize     State = "summarize"
	StateDone          State = "done"
)

// States returns every state in pipeline order.
func States() []State {
	return []State{StateGenerateQuery, StateExecute, StateEvaluate, StateRepair, StateSummarize, StateDone}
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	for _, v := range States() {
		if v == s {
			return true
		}
	}
	return false
}

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// DefaultMaxAttempts is the repair budget.
const DefaultMaxAttempts = 2

// TransitionCap is the hard limit on transitions for a session with the
// given repair budget. The transition before the cap is forced to
// Summarize so Summarize -> Done is at most the cap-th.
func TransitionCap(max int) int {
	return 2*max + 4
}

// Next returns the state that follows s.State, given the fields the state's
// handler has just written. It reads the session and never modifies it.
func Next(s *Session, max int) State {
	if s.State != StateSummarize && s.State != StateDone && s.Transitions+2 >= TransitionCap(max) {
		return StateSummarize
	}

	switch s.State {
	case StateGenerateQuery:
		return StateExecute

	case StateExecute:
		if s.Repaired {
			return StateSummarize
		}
		return StateEvaluate

	case StateEvaluate:
		if s.Decision == eval.DecisionPass {
			return StateSummarize
		}
		if s.Attempt < max {
			return StateRepair
		}
		return StateSummarize

	case StateRepair:
		if s.Repaired {
			return StateExecute
		}
		if s.Attempt >= max {
			return StateSummarize
		}
		return StateRepair

	default:
		return StateDone
	}
}

// givesUp reports whether moving from s.State to next abandons the session
// without a passing evaluation.
func givesUp(s *Session, next State) bool {
	if next != StateSummarize || s.State == StateSummarize {
		return false
	}
	if s.State == StateExecute && s.Repaired {
		return false
	}
	return s.State != StateEvaluate || s.Decision != eval.DecisionPass
}
