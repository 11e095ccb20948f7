// Package graph builds the undirected attributed graph of building elements.
//
// Build turns an element.Model into a Graph with one node per element and one
// edge per unordered pair per relation label. Adjacency edges come from the
// geometry detector and from declared adjacent_to lists; containment edges
// come from declared contained_in lists. Local inconsistencies such as
// dangling relation targets or malformed bounding boxes never fail the build.
// They are reported as Diagnostics and the offending edge is skipped or the
// element is kept as an isolated node.
//
// A built Graph is read-only. It may be shared by any number of concurrent
// readers without locking.
//
// # Usage
//
//	res, err := graph.Build(ctx, model, graph.WithDetector(geometry.NewBoxDetector(1e-6)))
//	if err != nil {
//	    return err
//	}
//	for _, d := range res.Diagnostics {
//	    log.Println(d)
//	}
//	fmt.Println(res.Graph.Len(), "nodes")
package graph
