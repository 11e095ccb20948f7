package eval

import (
	"context"
	"strings"

	"github.com/zero-day-ai/bimq/query"
)

// Decision is the evaluator's verdict on a result.
type Decision string

const (
	// DecisionPass accepts the result.
	DecisionPass Decision = "pass"

	// DecisionRetry rejects the result and asks for a repair.
	DecisionRetry Decision = "retry"
)

// ParseDecision maps free text to a Decision. Only "pass" (any case,
// surrounding space ignored) passes.
func ParseDecision(s string) Decision {
	if strings.EqualFold(strings.TrimSpace(s), string(DecisionPass)) {
		return DecisionPass
	}
	return DecisionRetry
}

// String returns the decision text.
func (d Decision) String() string {
	return string(d)
}

// Verdict is the outcome of one evaluation.
type Verdict struct {
	Decision    Decision `json:"decision"`
	Explanation string   `json:"error_explanation,omitempty"`

	// Evaluator names the evaluator that produced the verdict.
	Evaluator string `json:"evaluator,omitempty"`
}

// Passed reports whether the decision is pass.
func (v Verdict) Passed() bool {
	return v.Decision == DecisionPass
}

// Request is the evaluator input.
type Request struct {
	Text  string           `json:"text"`
	Query query.Structured `json:"query"`
	Stats query.Stats      `json:"stats"`
}

// Evaluator judges results.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (Verdict, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, req Request) (Verdict, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, req Request) (Verdict, error) {
	return f(ctx, req)
}
