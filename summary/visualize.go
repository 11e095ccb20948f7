package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/query"
)

// Visualizer renders a result subgraph and returns where it was written.
type Visualizer interface {
	Render(ctx context.Context, sub query.Subgraph, g *graph.Graph) (string, error)
}

// VisualizerFunc adapts a function to Visualizer.
type VisualizerFunc func(ctx context.Context, sub query.Subgraph, g *graph.Graph) (string, error)

// Render calls f.
func (f VisualizerFunc) Render(ctx context.Context, sub query.Subgraph, g *graph.Graph) (string, error) {
	return f(ctx, sub, g)
}

// DOTVisualizer writes Graphviz DOT files. Nodes are labelled
// "id\n(category)" and edges with their relation.
type DOTVisualizer struct {
	// Dir is the output directory, created on demand ("." when empty).
	Dir string

	// Name is the file name. When empty every render gets a unique
	// "graph-<id>.dot" name so concurrent sessions do not collide.
	Name string
}

// Render implements Visualizer.
func (v DOTVisualizer) Render(ctx context.Context, sub query.Subgraph, g *graph.Graph) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := MarshalDOT(sub, g)
	if err != nil {
		return "", err
	}

	dir := v.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("summary: create %s: %w", dir, err)
	}
	name := v.Name
	if name == "" {
		name = "graph-" + uuid.NewString()[:8] + ".dot"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("summary: write %s: %w", path, err)
	}
	return path, nil
}

// MarshalDOT encodes the subgraph in DOT. Edges whose endpoints are not
// both in sub are skipped.
func MarshalDOT(sub query.Subgraph, g *graph.Graph) ([]byte, error) {
	dg := simple.NewUndirectedGraph()
	ids := make(map[string]*dotNode, len(sub.Nodes))
	for i, id := range sub.Nodes {
		n := &dotNode{id: int64(i), name: id}
		if g != nil {
			if gn, ok := g.Node(id); ok {
				n.category = gn.Category.String()
			}
		}
		ids[id] = n
		dg.AddNode(n)
	}
	for _, e := range sub.Edges {
		a, okA := ids[e.A]
		b, okB := ids[e.B]
		if !okA || !okB || a == b {
			continue
		}
		dg.SetEdge(dotEdge{from: a, to: b, relation: e.Relation.String()})
	}

	data, err := dot.Marshal(dg, "result", "", "  ")
	if err != nil {
		return nil, fmt.Errorf("summary: encode dot: %w", err)
	}
	return data, nil
}

type dotNode struct {
	id       int64
	name     string
	category string
}

func (n *dotNode) ID() int64 { return n.id }

func (n *dotNode) DOTID() string { return quote(cleanLabel(n.name)) }

func (n *dotNode) Attributes() []encoding.Attribute {
	label := escape(cleanLabel(n.name))
	if n.category != "" {
		label += `\n(` + escape(n.category) + `)`
	}
	return []encoding.Attribute{{Key: "label", Value: `"` + label + `"`}}
}

type dotEdge struct {
	from, to gonumgraph.Node
	relation string
}

func (e dotEdge) From() gonumgraph.Node { return e.from }
func (e dotEdge) To() gonumgraph.Node   { return e.to }

func (e dotEdge) ReversedEdge() gonumgraph.Edge {
	return dotEdge{from: e.to, to: e.from, relation: e.relation}
}

func (e dotEdge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: quote(e.relation)}}
}

// cleanLabel swaps '$', common in IFC global ids, for a look-alike so it is
// not taken for a substitution by downstream tools.
func cleanLabel(s string) string {
	return strings.ReplaceAll(s, "$", "﹩")
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}

func quote(s string) string {
	return `"` + escape(s) + `"`
}
