package eval

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// DefaultRule passes non-empty results and, when a relation was asked for,
// requires at least one edge unless a single element was selected.
const DefaultRule = `node_count > 0 && (relation == "" || edge_count > 0 || node_count == 1)`

// ErrRuleType is returned when a rule does not evaluate to a bool.
var ErrRuleType = errors.New("eval: rule must evaluate to bool")

// RuleEvaluator passes a result when a CEL expression holds. The expression
// sees these variables:
//
//	node_count  int                 selected elements
//	edge_count  int                 result edges
//	relation    string              requested relation, "" when none
//	categories  map(string, int)    selected elements by category
//	relations   map(string, int)    result edges by relation
//	filters     int                 number of attribute filters
type RuleEvaluator struct {
	rule string
	prg  cel.Program
}

// NewRuleEvaluator compiles rule. An empty rule means DefaultRule.
func NewRuleEvaluator(rule string) (*RuleEvaluator, error) {
	if rule == "" {
		rule = DefaultRule
	}

	env, err := cel.NewEnv(
		cel.Variable("node_count", cel.IntType),
		cel.Variable("edge_count", cel.IntType),
		cel.Variable("relation", cel.StringType),
		cel.Variable("categories", cel.MapType(cel.StringType, cel.IntType)),
		cel.Variable("relations", cel.MapType(cel.StringType, cel.IntType)),
		cel.Variable("filters", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("eval: cel environment: %w", err)
	}

	ast, iss := env.Compile(rule)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("eval: compile rule %q: %w", rule, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q is %s", ErrRuleType, rule, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("eval: program for rule %q: %w", rule, err)
	}
	return &RuleEvaluator{rule: rule, prg: prg}, nil
}

// Rule returns the expression source.
func (r *RuleEvaluator) Rule() string {
	return r.rule
}

// Name identifies the evaluator in verdicts and audit entries.
func (r *RuleEvaluator) Name() string {
	return "rules"
}

// Evaluate implements Evaluator.
func (r *RuleEvaluator) Evaluate(ctx context.Context, req Request) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	out, _, err := r.prg.Eval(map[string]any{
		"node_count": int64(req.Stats.Nodes),
		"edge_count": int64(req.Stats.Edges),
		"relation":   req.Query.Relation,
		"categories": toInt64(req.Stats.ByCategory),
		"relations":  toInt64(req.Stats.ByRelation),
		"filters":    int64(len(req.Query.AttributeFilters)),
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("eval: rule %q: %w", r.rule, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return Verdict{}, fmt.Errorf("%w: got %T", ErrRuleType, out.Value())
	}

	if ok {
		return Verdict{Decision: DecisionPass, Evaluator: r.Name()}, nil
	}
	return Verdict{Decision: DecisionRetry, Explanation: explainFailure(req), Evaluator: r.Name()}, nil
}

func explainFailure(req Request) string {
	switch {
	case req.Stats.Nodes == 0 && req.Query.IsEmpty():
		return "the query is empty and matched no elements"
	case req.Stats.Nodes == 0:
		return "the query matched no elements; check the categories, names and filters against the schema"
	case req.Query.Relation != "" && req.Stats.Edges == 0:
		return fmt.Sprintf("%d elements matched but none are connected by %s", req.Stats.Nodes, req.Query.Relation)
	default:
		return fmt.Sprintf("result (%s) does not satisfy the acceptance rule", req.Stats)
	}
}

func toInt64(m map[string]int) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = int64(v)
	}
	return out
}
