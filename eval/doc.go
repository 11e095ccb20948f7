// Package eval decides whether a query result answers the user's question.
//
// Three evaluators are provided:
//
//   - JudgeEvaluator asks a language model to act as a judge and answer with
//     {"decision": "pass"|"retry", "error_explanation": "..."}.
//   - RuleEvaluator evaluates a CEL expression over the result statistics.
//     It needs no network and is deterministic.
//   - Fallback tries one evaluator and falls back to another on error.
//
// Any decision other than "pass" is treated as "retry".
//
// Example:
//
//	rules, _ := eval.NewRuleEvaluator(eval.DefaultRule)
//	judge, _ := eval.NewJudgeEvaluator(eval.JudgeOptions{Provider: provider})
//	ev := eval.Fallback{Primary: judge, Secondary: rules}
//	verdict, err := ev.Evaluate(ctx, eval.Request{Text: text, Query: q, Stats: stats})
package eval
