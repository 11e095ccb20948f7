package workflow

import (
	"github.com/google/uuid"

	"github.com/zero-day-ai/bimq/eval"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/query"
	"github.com/zero-day-ai/bimq/steperr"
)

// Failure records one collaborator fault and the default that replaced its
// output.
type Failure struct {
	Step    string       `json:"step"`
	Kind    steperr.Kind `json:"kind"`
	Message string       `json:"message"`
	Attempt int          `json:"attempt"`
}

// Session is the per-question record threaded through the machine. The
// graph is not part of it.
type Session struct {
	ID     string       `json:"id"`
	Text   string       `json:"text"`
	Schema graph.Schema `json:"schema"`

	// Query is the structured query whose result is in Result.
	Query  query.Structured `json:"query"`
	Result query.Subgraph   `json:"result"`
	Stats  query.Stats      `json:"stats"`

	// Candidate is the last repaired query that matched nothing.
	Candidate *query.Structured `json:"candidate,omitempty"`

	Attempt     int           `json:"attempt"`
	Decision    eval.Decision `json:"decision,omitempty"`
	Explanation string        `json:"explanation,omitempty"`
	Evaluator   string        `json:"evaluator,omitempty"`

	Summary       string `json:"summary,omitempty"`
	Visualization string `json:"visualization,omitempty"`

	// GaveUp is set when the session reached Summarize without an accepted
	// result.
	GaveUp bool `json:"gave_up"`

	// Repaired is set once a repaired query replaces Query.
	Repaired bool `json:"repaired"`

	// State is the next state to run.
	State       State     `json:"state"`
	Transitions int       `json:"transitions"`
	Failures    []Failure `json:"failures,omitempty"`
}

// NewSession starts a session at GenerateQuery.
func NewSession(text string, schema graph.Schema) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Text:   text,
		Schema: schema,
		State:  StateGenerateQuery,
	}
}

// Done reports whether the session has finished.
func (s *Session) Done() bool {
	return s.State == StateDone
}

// Outcome names how the session ended: "passed", "repaired" or "gave_up".
// It is empty while the session is still running.
func (s *Session) Outcome() string {
	switch {
	case !s.Done():
		return ""
	case s.GaveUp:
		return "gave_up"
	case s.Repaired:
		return "repaired"
	default:
		return "passed"
	}
}

// FailuresFor returns the failures recorded for step.
func (s *Session) FailuresFor(step string) []Failure {
	var out []Failure
	for _, f := range s.Failures {
		if f.Step == step {
			out = append(out, f)
		}
	}
	return out
}

func (s *Session) fail(step string, err error) Failure {
	se := steperr.Classify(step, err)
	f := Failure{Step: step, Kind: se.Kind, Message: se.Error(), Attempt: s.Attempt}
	s.Failures = append(s.Failures, f)
	return f
}
