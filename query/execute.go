package query

import (
	"fmt"
	"strings"

	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/graph"
)

// Subgraph is the result of Execute: the selected node ids and the edges of
// the requested relation among them, both in graph insertion order.
type Subgraph struct {
	Nodes []string     `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// IsEmpty reports whether no node was selected.
func (s Subgraph) IsEmpty() bool {
	return len(s.Nodes) == 0
}

// Contains reports whether id was selected.
func (s Subgraph) Contains(id string) bool {
	for _, n := range s.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// Stats counts a result by node category and edge relation.
type Stats struct {
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	ByCategory map[string]int `json:"by_category"`
	ByRelation map[string]int `json:"by_relation"`
}

// Stats computes counts for s using g for category lookup.
func (s Subgraph) Stats(g *graph.Graph) Stats {
	st := Stats{
		Nodes:      len(s.Nodes),
		Edges:      len(s.Edges),
		ByCategory: make(map[string]int),
		ByRelation: make(map[string]int),
	}
	for _, id := range s.Nodes {
		if n, ok := g.Node(id); ok {
			st.ByCategory[n.Category.String()]++
		}
	}
	for _, e := range s.Edges {
		st.ByRelation[e.Relation.String()]++
	}
	return st
}

// String renders the totals as "Nodes: N, Edges: M".
func (st Stats) String() string {
	return fmt.Sprintf("Nodes: %d, Edges: %d", st.Nodes, st.Edges)
}

// Execute evaluates q against g. It never modifies g and is safe to call
// from several goroutines on the same graph.
func Execute(g *graph.Graph, q Structured) Subgraph {
	var out Subgraph
	if g == nil || q.IsEmpty() {
		return out
	}

	m := newMatcher(q)
	selected := make(map[string]struct{})
	for _, n := range g.Nodes() {
		if m.candidate(n) && m.filtersMatch(n) {
			out.Nodes = append(out.Nodes, n.ID)
			selected[n.ID] = struct{}{}
		}
	}

	if q.Relation == "" {
		return out
	}
	for _, e := range g.Edges() {
		if !strings.EqualFold(e.Relation.String(), q.Relation) {
			continue
		}
		_, okA := selected[e.A]
		_, okB := selected[e.B]
		if okA && okB {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

type matcher struct {
	categories map[string]struct{}
	names      []string
	filters    map[string]string
}

func newMatcher(q Structured) matcher {
	m := matcher{
		categories: make(map[string]struct{}, len(q.Categories)),
		filters:    q.AttributeFilters,
	}
	for _, c := range q.Categories {
		m.categories[strings.ToLower(c)] = struct{}{}
	}
	for _, n := range q.IncludeNames {
		if n != "" {
			m.names = append(m.names, strings.ToLower(n))
		}
	}
	return m
}

// candidate applies the OR-combined category and name criteria.
func (m matcher) candidate(n graph.Node) bool {
	if len(m.categories) == 0 && len(m.names) == 0 {
		return true
	}
	if _, ok := m.categories[strings.ToLower(n.Category.String())]; ok {
		return true
	}
	name := strings.ToLower(n.Name)
	for _, want := range m.names {
		if strings.Contains(name, want) {
			return true
		}
	}
	return false
}

func (m matcher) filtersMatch(n graph.Node) bool {
	for key, want := range m.filters {
		v, ok := lookup(n, key)
		if !ok || !strings.EqualFold(v.String(), want) {
			return false
		}
	}
	return true
}

// lookup resolves a filter key on top-level attributes, then properties.
func lookup(n graph.Node, key string) (element.Value, bool) {
	if v, ok := n.Attribute(key); ok {
		return v, true
	}
	return n.Properties.Get(key)
}
