package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/graph"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	res, err := graph.Build(context.Background(), element.NewModel().MustAdd(
		element.New("R1", element.CategoryRoom, "Office", element.Box(0, 0, 0, 10, 10, 3)),
		element.New("R2", element.CategoryRoom, "Corridor", element.Box(10, 0, 0, 20, 10, 3)),
		element.New("W1", element.CategoryWall, "Basic Wall", element.Box(5, 5, 0, 6, 6, 3)).
			WithProperty("load_bearing", element.Bool(true)).
			WithProperty("name", element.String("shadowed")).
			WithContainedIn("R1"),
	))
	require.NoError(t, err)
	return res.Graph
}

func TestExport(t *testing.T) {
	rec := &RecordingRunner{}
	st, err := NewExporter(rec).Export(context.Background(), testGraph(t))
	require.NoError(t, err)

	assert.Equal(t, Stats{Nodes: 3, Edges: 2, Statements: 5}, st)

	stmts := rec.Statements()
	require.Len(t, stmts, 5)
	assert.Equal(t, ConstraintStatement, stmts[0].Cypher)
	assert.Equal(t, "UNWIND $rows AS row MERGE (n:Element {global_id: row.global_id}) SET n:Room SET n += row.props", stmts[1].Cypher)
	assert.Contains(t, stmts[2].Cypher, "SET n:Wall")
	assert.Equal(t, "UNWIND $rows AS row "+
		"MATCH (a:Element {global_id: row.a}) "+
		"MATCH (b:Element {global_id: row.b}) "+
		"MERGE (a)-[:ADJACENT_TO]->(b)", stmts[3].Cypher)
	assert.Contains(t, stmts[4].Cypher, "[:CONTAINED_IN]")

	rooms := stmts[1].Params["rows"].([]map[string]any)
	require.Len(t, rooms, 2)
	assert.Equal(t, "R1", rooms[0]["global_id"])
	props := rooms[0]["props"].(map[string]any)
	assert.Equal(t, "Office", props["name"])
	assert.Equal(t, "room", props["category"])
	assert.Equal(t, 10.0, props["max_x"])

	wall := stmts[2].Params["rows"].([]map[string]any)[0]["props"].(map[string]any)
	assert.Equal(t, true, wall["load_bearing"])
	assert.Equal(t, "Basic Wall", wall["name"])

	assert.Equal(t, []map[string]any{{"a": "W1", "b": "R1"}}, stmts[4].Params["rows"])
}

func TestExport_Batches(t *testing.T) {
	rec := &RecordingRunner{}
	st, err := NewExporter(rec, WithBatchSize(1), WithoutConstraint(), WithLogger(nil)).
		Export(context.Background(), testGraph(t))
	require.NoError(t, err)
	assert.Equal(t, 5, st.Statements)
	assert.Len(t, rec.Statements()[0].Params["rows"], 1)
	assert.Len(t, rec.Statements()[1].Params["rows"], 1)
}

func TestExport_Errors(t *testing.T) {
	_, err := NewExporter(&RecordingRunner{}).Export(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilGraph)

	down := errors.New("connection reset")
	rec := &RecordingRunner{Err: down}
	st, err := NewExporter(rec).Export(context.Background(), testGraph(t))
	assert.ErrorIs(t, err, down)
	assert.Zero(t, st.Statements)
	assert.Len(t, rec.Statements(), 1, "stops at the first failure")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewExporter(&RecordingRunner{}).Export(ctx, testGraph(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChunk(t *testing.T) {
	rows := make([]map[string]any, 5)
	assert.Len(t, chunk(rows, 2), 3)
	assert.Len(t, chunk(rows, 5), 1)
	assert.Nil(t, chunk(nil, 5))
}

func TestNewNeo4jRunner_RequiresURI(t *testing.T) {
	_, err := NewNeo4jRunner(Neo4jConfig{})
	assert.ErrorIs(t, err, ErrNoURI)

	r, err := NewNeo4jRunner(Neo4jConfig{URI: "neo4j://localhost:7687", Username: "neo4j", Password: "secret"})
	require.NoError(t, err)
	assert.NoError(t, r.Close(context.Background()))
}

func TestRunnerFunc(t *testing.T) {
	var got string
	r := RunnerFunc(func(ctx context.Context, cypher string, params map[string]any) error {
		got = cypher
		return nil
	})
	require.NoError(t, r.Run(context.Background(), "RETURN 1", nil))
	assert.Equal(t, "RETURN 1", got)
}
