// Package export writes a building graph to Neo4j.
//
// Every element becomes a node labelled Element plus the capitalised
// category ("room" becomes Room), keyed by global_id. Every edge becomes a
// relationship whose type is the upper-cased relation (ADJACENT_TO,
// CONTAINED_IN). Statements are parameterised and batched with UNWIND, and
// MERGE makes re-exporting the same graph idempotent.
//
// Structured queries can then be replayed against the export with
// query.Cypher.
package export
