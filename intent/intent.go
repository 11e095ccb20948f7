package intent

import (
	"context"

	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/query"
)

// Resolver derives a structured query from the user's question.
type Resolver interface {
	Resolve(ctx context.Context, text string, schema graph.Schema) (query.Structured, error)
}

// RepairRequest carries everything a Repairer may use.
type RepairRequest struct {
	// Text is the original question.
	Text string `json:"text"`

	// Previous is the query that was rejected.
	Previous query.Structured `json:"previous"`

	// Explanation is the evaluator's reason for rejecting Previous.
	Explanation string `json:"explanation"`

	// Schema describes the graph being queried.
	Schema graph.Schema `json:"schema"`
}

// Repairer proposes a revised query for a rejected one.
type Repairer interface {
	Repair(ctx context.Context, req RepairRequest) (query.Structured, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, text string, schema graph.Schema) (query.Structured, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, text string, schema graph.Schema) (query.Structured, error) {
	return f(ctx, text, schema)
}

// RepairerFunc adapts a function to Repairer.
type RepairerFunc func(ctx context.Context, req RepairRequest) (query.Structured, error)

// Repair calls f.
func (f RepairerFunc) Repair(ctx context.Context, req RepairRequest) (query.Structured, error) {
	return f(ctx, req)
}

// Static answers every call with the same query, or with Err when set.
// It satisfies both Resolver and Repairer.
type Static struct {
	Query query.Structured
	Err   error
}

// Resolve returns s.Query.
func (s Static) Resolve(ctx context.Context, _ string, _ graph.Schema) (query.Structured, error) {
	return s.answer(ctx)
}

// Repair returns s.Query.
func (s Static) Repair(ctx context.Context, _ RepairRequest) (query.Structured, error) {
	return s.answer(ctx)
}

func (s Static) answer(ctx context.Context) (query.Structured, error) {
	if err := ctx.Err(); err != nil {
		return query.Structured{}, err
	}
	if s.Err != nil {
		return query.Structured{}, s.Err
	}
	return s.Query.Clone(), nil
}
