package graph

import "errors"

// Sentinel errors for graph construction and lookup.
var (
	// ErrNilModel indicates Build was called without a model.
	ErrNilModel = errors.New("graph: nil model")

	// ErrNodeNotFound indicates a lookup for an identifier that is not a node.
	ErrNodeNotFound = errors.New("graph: node not found")
)
