package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bimq"
	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/eval"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/intent"
	"github.com/zero-day-ai/bimq/query"
	"github.com/zero-day-ai/bimq/workflow"
)

func setup(t *testing.T) *mcp.ClientSession {
	t.Helper()

	rules, err := eval.NewRuleEvaluator("")
	require.NoError(t, err)
	model := element.NewModel().MustAdd(
		element.New("R1", element.CategoryRoom, "Office", element.Box(0, 0, 0, 10, 10, 3)),
		element.New("R2", element.CategoryRoom, "Corridor", element.Box(10, 0, 0, 20, 10, 3)),
		element.New("D1", element.CategoryDoor, "Door", element.Box(30, 0, 0, 31, 1, 2)).
			WithProperty("fire_rating", element.String("EI30")),
	)
	a, err := bimq.New(model, bimq.WithCollaborators(workflow.Collaborators{
		Resolver:  intent.Static{Query: query.Structured{Categories: []string{"room"}, Relation: "adjacent_to"}},
		Evaluator: rules,
		Repairer:  intent.Static{},
	}))
	require.NoError(t, err)

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err = New(a).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

// callTool calls a tool and returns its text content and error flag.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text, result.IsError
}

func TestListTools(t *testing.T) {
	session := setup(t)
	result, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"ask_building", "run_structured_query", "describe_schema"}, names)
}

func TestAskBuilding(t *testing.T) {
	session := setup(t)

	text, isErr := callTool(t, session, "ask_building", map[string]any{"question": "Which rooms are adjacent?"})
	require.False(t, isErr, text)

	var out AskOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "passed", out.Outcome)
	assert.Equal(t, []string{"R1", "R2"}, out.Nodes)
	assert.Equal(t, []graph.Edge{{A: "R1", B: "R2", Relation: graph.AdjacentTo}}, out.Edges)
	assert.Contains(t, out.Summary, "Found 2 elements")

	text, isErr = callTool(t, session, "ask_building", map[string]any{"question": " "})
	assert.True(t, isErr)
	assert.Contains(t, text, "required")
}

func TestRunStructuredQuery(t *testing.T) {
	session := setup(t)

	text, isErr := callTool(t, session, "run_structured_query", map[string]any{
		"filter": map[string]any{"fire_rating": "ei30"},
	})
	require.False(t, isErr, text)

	var out QueryOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, []string{"D1"}, out.Nodes)
	assert.Empty(t, out.Edges)
	assert.Equal(t, map[string]int{"door": 1}, out.Stats.ByCategory)

	text, isErr = callTool(t, session, "run_structured_query", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, "At least one")
}

func TestDescribeSchema(t *testing.T) {
	session := setup(t)

	text, isErr := callTool(t, session, "describe_schema", map[string]any{})
	require.False(t, isErr, text)

	var s graph.Schema
	require.NoError(t, json.Unmarshal([]byte(text), &s))
	assert.Equal(t, []string{"door", "room"}, s.Categories)
	assert.Contains(t, s.Names, "Corridor")
}

func TestServe_UnknownTransport(t *testing.T) {
	err := Serve(context.Background(), mcp.NewServer(&mcp.Implementation{Name: "x"}, nil), "grpc", "", nil)
	assert.ErrorIs(t, err, ErrUnknownTransport)
}
