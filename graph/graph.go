package graph

import (
	"github.com/zero-day-ai/bimq/element"
)

// Relation labels an edge.
type Relation string

// Built-in relation labels. Other labels may appear in declared data.
const (
	AdjacentTo  Relation = "adjacent_to"
	ContainedIn Relation = "contained_in"
)

// String returns the label.
func (r Relation) String() string {
	return string(r)
}

// Node is a graph vertex carrying a copy of an element's attributes.
type Node struct {
	ID         string              `json:"id"`
	Category   element.Category    `json:"category"`
	Name       string              `json:"name,omitempty"`
	Box        element.BoundingBox `json:"box"`
	Properties element.Properties  `json:"properties,omitempty"`
}

// Attribute returns a top-level attribute of the node as a value. The
// recognised names are id, global_id, name and category.
func (n Node) Attribute(name string) (element.Value, bool) {
	switch name {
	case "id", "global_id":
		return element.String(n.ID), true
	case "name":
		return element.String(n.Name), true
	case "category":
		return element.String(n.Category.String()), true
	default:
		return element.Value{}, false
	}
}

// Edge is an undirected edge with exactly one relation label. A is the
// endpoint that introduced the edge.
type Edge struct {
	A        string   `json:"a"`
	B        string   `json:"b"`
	Relation Relation `json:"relation"`
}

// Touches reports whether id is one of the endpoints.
func (e Edge) Touches(id string) bool {
	return e.A == id || e.B == id
}

// Other returns the endpoint opposite id.
func (e Edge) Other(id string) string {
	if e.A == id {
		return e.B
	}
	return e.A
}

// edgeKey identifies an unordered pair under one relation.
type edgeKey struct {
	lo, hi string
	rel    Relation
}

func keyOf(a, b string, rel Relation) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b, rel: rel}
}

// Graph is the immutable element graph produced by Build.
type Graph struct {
	nodes  []Node
	index  map[string]int
	edges  []Edge
	edgeAt map[edgeKey]int
	schema Schema
}

func newGraph() *Graph {
	return &Graph{
		index:  make(map[string]int),
		edgeAt: make(map[edgeKey]int),
	}
}

// addNode appends n unless its id is already present.
func (g *Graph) addNode(n Node) bool {
	if _, ok := g.index[n.ID]; ok {
		return false
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return true
}

// addEdge inserts an edge once per unordered pair per relation. Both
// endpoints must already be nodes.
func (g *Graph) addEdge(a, b string, rel Relation) bool {
	k := keyOf(a, b, rel)
	if _, ok := g.edgeAt[k]; ok {
		return false
	}
	g.edgeAt[k] = len(g.edges)
	g.edges = append(g.edges, Edge{A: a, B: b, Relation: rel})
	return true
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Contains reports whether id is a node.
func (g *Graph) Contains(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns the nodes in insertion order. The slice is a copy; node
// property maps are shared and must not be modified.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesByRelation returns the edges carrying rel, in insertion order.
func (g *Graph) EdgesByRelation(rel Relation) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Relation == rel {
			out = append(out, e)
		}
	}
	return out
}

// HasEdge reports whether a and b are joined under rel, in either direction.
func (g *Graph) HasEdge(a, b string, rel Relation) bool {
	_, ok := g.edgeAt[keyOf(a, b, rel)]
	return ok
}

// Neighbors returns the ids joined to id under rel, in edge order.
func (g *Graph) Neighbors(id string, rel Relation) ([]string, error) {
	if !g.Contains(id) {
		return nil, ErrNodeNotFound
	}
	var out []string
	for _, e := range g.edges {
		if e.Relation == rel && e.Touches(id) {
			out = append(out, e.Other(id))
		}
	}
	return out, nil
}

// Schema returns the schema summary computed at build time.
func (g *Graph) Schema() Schema {
	return g.schema.clone()
}
