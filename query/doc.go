// Package query defines the structured query produced by intent resolution
// and the executor that evaluates it against a built graph.
//
// # Matching
//
// Execute applies each query to every node independently:
//
//  1. Candidates. With neither categories nor names given every node is a
//     candidate. Otherwise a node is a candidate when its category is one of
//     Categories OR its name contains one of IncludeNames, ignoring case.
//  2. Attribute filters. Every entry must match. The key is looked up on the
//     node's top-level attributes first (id, global_id, name, category) and
//     then in its properties. Values compare as case-insensitive canonical
//     strings, so a boolean property true matches the filter value "True".
//     A missing key disqualifies the node.
//  3. Edges. An edge is kept when its relation equals Relation and both
//     endpoints were selected. An empty Relation selects no edges.
//
// A completely empty Structured query matches nothing. It is what a failed
// intent resolution or repair degrades to.
//
// Results keep graph insertion order for nodes and edges. The graph is never
// modified.
//
// # Cypher
//
// Cypher renders the same query as a parameterised statement for a graph
// exported with the export package:
//
//	stmt, params := query.Cypher(q)
//	// MATCH (n:Element) WHERE (n.category IN $p0) ...
package query
