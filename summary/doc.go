// Package summary turns a query result into prose and, optionally, a
// picture.
//
// LLMSummarizer asks a model for a one to three sentence summary of the
// result counts. TemplateSummarizer produces a deterministic summary from
// the same counts and is used offline. DOTVisualizer writes the result
// subgraph as a Graphviz DOT file.
package summary
