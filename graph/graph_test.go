package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/geometry"
)

func scenarioModel() *element.Model {
	return element.NewModel().MustAdd(
		element.New("R1", element.CategoryRoom, "Office", element.Box(0, 0, 0, 10, 10, 3)),
		element.New("R2", element.CategoryRoom, "Corridor", element.Box(10, 0, 0, 20, 10, 3)),
		element.New("W1", element.CategoryWall, "Basic Wall", element.Box(5, 5, 0, 6, 6, 3)).
			WithProperty("load_bearing", element.Bool(true)),
	)
}

func TestBuild_Scenario(t *testing.T) {
	res, err := Build(context.Background(), scenarioModel())
	require.NoError(t, err)

	g := res.Graph
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []Edge{{A: "R1", B: "R2", Relation: AdjacentTo}}, g.Edges())
	assert.True(t, g.HasEdge("R2", "R1", AdjacentTo))
	assert.False(t, g.HasEdge("R1", "W1", AdjacentTo))
	assert.Empty(t, res.Diagnostics)

	r1 := res.Elements[0]
	r2 := res.Elements[1]
	assert.Equal(t, []string{"R2"}, r1.AdjacentTo.Slice())
	assert.Equal(t, []string{"R1"}, r2.AdjacentTo.Slice())
}

func TestBuild_DoesNotMutateModel(t *testing.T) {
	m := scenarioModel()
	_, err := Build(context.Background(), m)
	require.NoError(t, err)

	r1, ok := m.Lookup("R1")
	require.True(t, ok)
	assert.Zero(t, r1.AdjacentTo.Len(), "caller model keeps its declared relations")
}

func TestBuild_Idempotent(t *testing.T) {
	m := scenarioModel()
	first, err := Build(context.Background(), m)
	require.NoError(t, err)
	second, err := Build(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, first.Graph.Nodes(), second.Graph.Nodes())
	assert.Equal(t, first.Graph.Edges(), second.Graph.Edges())

	// Rebuilding from annotated elements adds no duplicate edges.
	again := element.NewModel().MustAdd(first.Elements...)
	third, err := Build(context.Background(), again)
	require.NoError(t, err)
	assert.Equal(t, first.Graph.EdgeCount(), third.Graph.EdgeCount())
	assert.Equal(t, []string{"R2"}, third.Elements[0].AdjacentTo.Slice())
}

func TestBuild_DeclaredRelations(t *testing.T) {
	m := element.NewModel().MustAdd(
		element.New("S1", element.CategorySlab, "Floor", element.Box(0, 0, -1, 50, 50, 0)),
		element.New("R1", element.CategoryRoom, "Office", element.Box(100, 100, 0, 110, 110, 3)).
			WithContainedIn("S1", "GHOST", "R1"),
		element.New("D1", element.CategoryDoor, "Door", element.Box(200, 0, 0, 201, 1, 2)).
			WithAdjacentTo("R1"),
		element.New("R2", element.CategoryRoom, "Lab", element.Box(300, 0, 0, 301, 1, 2)).
			WithAdjacentTo("D1"),
	)
	// D1 declares R1; R1 never declares D1. Both sides end up annotated.
	m2 := m.Clone()

	res, err := Build(context.Background(), m2)
	require.NoError(t, err)
	g := res.Graph

	assert.True(t, g.HasEdge("R1", "S1", ContainedIn))
	assert.True(t, g.HasEdge("D1", "R1", AdjacentTo))
	assert.True(t, g.HasEdge("R2", "D1", AdjacentTo))
	assert.False(t, g.HasEdge("S1", "R1", AdjacentTo))

	for _, e := range g.Edges() {
		assert.True(t, g.Contains(e.A), "endpoint %s exists", e.A)
		assert.True(t, g.Contains(e.B), "endpoint %s exists", e.B)
	}

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, DiagUnknownTarget, res.Diagnostics[0].Kind)
	assert.Equal(t, "GHOST", res.Diagnostics[0].Target)
	assert.Equal(t, DiagSelfReference, res.Diagnostics[1].Kind)

	r1 := res.Elements[1]
	assert.Equal(t, []string{"S1"}, r1.ContainedIn.Slice())
	assert.Equal(t, []string{"D1"}, r1.AdjacentTo.Slice())
}

func TestBuild_MutualDeclarationsDeduplicate(t *testing.T) {
	m := element.NewModel().MustAdd(
		element.New("A", element.CategoryWall, "", element.Box(0, 0, 0, 1, 1, 1)).WithAdjacentTo("B"),
		element.New("B", element.CategoryWall, "", element.Box(1, 0, 0, 2, 1, 1)).WithAdjacentTo("A"),
	)
	res, err := Build(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Graph.EdgeCount())
}

func TestBuild_InvalidGeometryIsIsolated(t *testing.T) {
	var bad element.BoundingBox
	require.NoError(t, json.Unmarshal([]byte(`{"xmin":"x"}`), &bad))

	m := element.NewModel().MustAdd(
		element.New("W1", element.CategoryWall, "", element.Box(0, 0, 0, 1, 1, 1)),
		element.New("W2", element.CategoryWall, "", bad),
		element.New("W3", element.CategoryWall, "", element.Box(5, 0, 0, 1, 1, 1)),
	)
	res, err := Build(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Graph.Len())
	assert.Zero(t, res.Graph.EdgeCount())
	require.Len(t, res.Diagnostics, 2)
	for _, d := range res.Diagnostics {
		assert.Equal(t, DiagInvalidGeometry, d.Kind)
	}
}

func TestBuild_Options(t *testing.T) {
	never := geometry.DetectorFunc(func(a, b element.BoundingBox) bool { return false })
	res, err := Build(context.Background(), scenarioModel(), WithDetector(never), WithLogger(nil))
	require.NoError(t, err)
	assert.Zero(t, res.Graph.EdgeCount())

	_, err = Build(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilModel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, scenarioModel())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGraph_Schema(t *testing.T) {
	m := element.NewModel().MustAdd(
		element.New("W1", element.CategoryWall, "Basic Wall", element.Box(0, 0, 0, 1, 1, 1)).
			WithProperty("load_bearing", element.Bool(true)).
			WithProperty("fire_rating", element.String("REI60")),
		element.New("W2", element.CategoryWall, "Basic Wall", element.Box(1, 0, 0, 2, 1, 1)).
			WithProperty("fire_rating", element.Number(60)),
		element.New("D1", element.CategoryDoor, "Door", element.Box(9, 9, 9, 10, 10, 10)),
	)
	res, err := Build(context.Background(), m)
	require.NoError(t, err)

	s := res.Graph.Schema()
	assert.Equal(t, []string{"door", "wall"}, s.Categories)
	assert.Equal(t, []string{"adjacent_to", "contained_in"}, s.Relations)
	assert.Equal(t, map[string]string{"load_bearing": "boolean", "fire_rating": KindMixed}, s.Properties)
	assert.Equal(t, []string{"Basic Wall", "Door"}, s.Names)
	assert.True(t, s.HasCategory("wall"))
	assert.False(t, s.HasRelation("supports"))
	assert.Equal(t, []string{"fire_rating", "load_bearing"}, s.PropertyNames())

	// Schema returns a copy.
	s.Categories[0] = "changed"
	assert.Equal(t, "door", res.Graph.Schema().Categories[0])
}

func TestGraph_Neighbors(t *testing.T) {
	res, err := Build(context.Background(), scenarioModel())
	require.NoError(t, err)

	n, err := res.Graph.Neighbors("R2", AdjacentTo)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, n)

	_, err = res.Graph.Neighbors("missing", AdjacentTo)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestComponents(t *testing.T) {
	edges := []Edge{
		{A: "a", B: "b", Relation: AdjacentTo},
		{A: "c", B: "d", Relation: AdjacentTo},
		{A: "b", B: "x", Relation: AdjacentTo},
	}
	got := Components([]string{"d", "a", "b", "c", "e"}, edges)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, got)
	assert.Nil(t, Components(nil, edges))
}
