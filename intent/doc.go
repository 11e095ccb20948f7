// Package intent turns a natural-language question into a structured query
// and repairs structured queries the evaluator rejected.
//
// The LLM-backed implementations show the model the graph schema, ask for a
// strict JSON document and re-prompt with the parse error when the answer
// cannot be decoded. Static and the func adapters serve offline runs and
// tests.
package intent
