package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Components returns the connected components of the subgraph made of ids
// and the edges among them. Edges with an endpoint outside ids are ignored.
// Each component lists its ids sorted; components are ordered by their
// first id.
func Components(ids []string, edges []Edge) [][]string {
	if len(ids) == 0 {
		return nil
	}

	ug := simple.NewUndirectedGraph()
	num := make(map[string]int64, len(ids))
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		if _, ok := num[id]; ok {
			continue
		}
		n := int64(len(num))
		num[id] = n
		names[n] = id
		ug.AddNode(simple.Node(n))
	}
	for _, e := range edges {
		a, okA := num[e.A]
		b, okB := num[e.B]
		if !okA || !okB || a == b {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
	}

	var out [][]string
	for _, comp := range topo.ConnectedComponents(ug) {
		group := make([]string, 0, len(comp))
		for _, n := range comp {
			group = append(group, names[n.ID()])
		}
		sort.Strings(group)
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
