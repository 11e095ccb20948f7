package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/query"
	"github.com/zero-day-ai/bimq/workflow"
)

// Tools holds the handlers.
type Tools struct {
	Backend Backend
}

// --- Input types ---

type AskInput struct {
	Question string `json:"question" jsonschema:"The question about the building, e.g. Which rooms are adjacent to the corridor?"`
}

type QueryInput struct {
	Categories   []string          `json:"category,omitempty" jsonschema:"Element categories to include: room, wall, door, slab"`
	IncludeNames []string          `json:"include_node_names,omitempty" jsonschema:"Case-insensitive name substrings; matching elements are included"`
	Filter       map[string]string `json:"filter,omitempty" jsonschema:"Attribute filters that every selected element must match"`
	Relation     string            `json:"relation,omitempty" jsonschema:"Relation whose edges to return: adjacent_to or contained_in"`
}

type SchemaInput struct{}

// --- Output types ---

type AskOutput struct {
	Summary       string             `json:"summary"`
	Outcome       string             `json:"outcome"`
	Query         query.Structured   `json:"query"`
	Nodes         []string           `json:"nodes"`
	Edges         []graph.Edge       `json:"edges"`
	Attempts      int                `json:"attempts"`
	Failures      []workflow.Failure `json:"failures,omitempty"`
	Visualization string             `json:"visualization,omitempty"`
}

type QueryOutput struct {
	Nodes []string     `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
	Stats query.Stats  `json:"stats"`
}

// --- Handlers ---

func (t *Tools) AskBuilding(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Question) == "" {
		return toolError("Question is required"), nil, nil
	}

	ans, err := t.Backend.Ask(ctx, input.Question)
	if err != nil {
		return toolError("Failed to answer: %v", err), nil, nil
	}
	s := ans.Session
	return toolJSON(AskOutput{
		Summary:       ans.Summary,
		Outcome:       s.Outcome(),
		Query:         s.Query,
		Nodes:         nonNilNodes(s.Result.Nodes),
		Edges:         nonNilEdges(s.Result.Edges),
		Attempts:      s.Attempt,
		Failures:      s.Failures,
		Visualization: ans.Visualization,
	})
}

func (t *Tools) RunStructuredQuery(_ context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, any, error) {
	q := query.Structured{
		Categories:       input.Categories,
		IncludeNames:     input.IncludeNames,
		AttributeFilters: input.Filter,
		Relation:         input.Relation,
	}.Normalize()
	if q.IsEmpty() {
		return toolError("At least one of category, include_node_names, filter or relation is required"), nil, nil
	}

	sub := t.Backend.Execute(q)
	return toolJSON(QueryOutput{
		Nodes: nonNilNodes(sub.Nodes),
		Edges: nonNilEdges(sub.Edges),
		Stats: sub.Stats(t.Backend.Graph()),
	})
}

func (t *Tools) DescribeSchema(_ context.Context, _ *mcp.CallToolRequest, _ SchemaInput) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Backend.Schema())
}

// --- Helpers ---

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func nonNilNodes(n []string) []string {
	if n == nil {
		return []string{}
	}
	return n
}

func nonNilEdges(e []graph.Edge) []graph.Edge {
	if e == nil {
		return []graph.Edge{}
	}
	return e
}
