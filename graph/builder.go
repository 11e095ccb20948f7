package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/geometry"
)

// DiagnosticKind classifies a non-fatal build inconsistency.
type DiagnosticKind string

const (
	// DiagInvalidGeometry marks an element whose bounding box failed
	// validation. The element is kept as an isolated node.
	DiagInvalidGeometry DiagnosticKind = "invalid_geometry"

	// DiagUnknownTarget marks a declared relation whose target is not an element.
	DiagUnknownTarget DiagnosticKind = "unknown_target"

	// DiagSelfReference marks an element that declares a relation to itself.
	DiagSelfReference DiagnosticKind = "self_reference"
)

// Diagnostic describes a local inconsistency found while building.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	ElementID string         `json:"element_id"`
	Target    string         `json:"target,omitempty"`
	Relation  Relation       `json:"relation,omitempty"`
	Message   string         `json:"message"`
}

// String renders the diagnostic for logs and CLI output.
func (d Diagnostic) String() string {
	if d.Target != "" {
		return fmt.Sprintf("%s: %s -[%s]-> %s: %s", d.Kind, d.ElementID, d.Relation, d.Target, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.ElementID, d.Message)
}

// Result is the output of Build.
type Result struct {
	// Graph is the built graph.
	Graph *Graph

	// Elements are fresh copies of the input elements whose relation sets
	// reflect the graph: declared targets that resolved, plus discovered
	// adjacency in both directions.
	Elements []element.Element

	// Diagnostics lists every inconsistency in the order it was found.
	Diagnostics []Diagnostic
}

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	detector geometry.Detector
	logger   *slog.Logger
}

// WithDetector sets the adjacency detector. The default is a BoxDetector
// with geometry.DefaultTolerance.
func WithDetector(d geometry.Detector) Option {
	return func(c *buildConfig) {
		if d != nil {
			c.detector = d
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Build constructs the graph for model. The model is never modified.
// Only context cancellation is returned as an error; data inconsistencies
// are reported in Result.Diagnostics.
func Build(ctx context.Context, model *element.Model, opts ...Option) (*Result, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	cfg := buildConfig{
		detector: geometry.NewBoxDetector(geometry.DefaultTolerance),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &builder{
		g:      newGraph(),
		source: model.Elements(),
		logger: cfg.logger,
	}
	b.addNodes()
	if err := b.addGeometricAdjacency(ctx, cfg.detector); err != nil {
		return nil, fmt.Errorf("adjacency detection: %w", err)
	}
	b.addDeclared(AdjacentTo)
	b.addDeclared(ContainedIn)
	b.g.schema = computeSchema(b.g.nodes, b.g.edges)

	b.logger.Debug("graph built",
		"nodes", b.g.Len(),
		"edges", b.g.EdgeCount(),
		"diagnostics", len(b.diags),
	)

	return &Result{
		Graph:       b.g,
		Elements:    b.annotated,
		Diagnostics: b.diags,
	}, nil
}

type builder struct {
	g         *Graph
	source    []element.Element
	annotated []element.Element
	pos       map[string]int
	diags     []Diagnostic
	logger    *slog.Logger
}

func (b *builder) diag(d Diagnostic) {
	b.diags = append(b.diags, d)
	b.logger.Debug("graph diagnostic",
		"kind", string(d.Kind),
		"element", d.ElementID,
		"target", d.Target,
		"relation", string(d.Relation),
	)
}

// addNodes adds one node per element and prepares empty annotated copies.
func (b *builder) addNodes() {
	b.pos = make(map[string]int, len(b.source))
	b.annotated = make([]element.Element, 0, len(b.source))
	for _, el := range b.source {
		b.g.addNode(Node{
			ID:         el.GlobalID,
			Category:   el.Category,
			Name:       el.Name,
			Box:        el.Box,
			Properties: el.Properties.Clone(),
		})
		if err := el.Box.Validate(); err != nil {
			b.diag(Diagnostic{
				Kind:      DiagInvalidGeometry,
				ElementID: el.GlobalID,
				Message:   err.Error(),
			})
		}

		out := el.Clone()
		out.AdjacentTo = element.RelationSet{}
		out.ContainedIn = element.RelationSet{}
		b.pos[el.GlobalID] = len(b.annotated)
		b.annotated = append(b.annotated, out)
	}
}

func (b *builder) addGeometricAdjacency(ctx context.Context, d geometry.Detector) error {
	boxes := make([]element.BoundingBox, len(b.source))
	for i, el := range b.source {
		boxes[i] = el.Box
	}
	pairs, err := geometry.PairsContext(ctx, boxes, d)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		b.link(b.source[p[0]].GlobalID, b.source[p[1]].GlobalID, AdjacentTo)
	}
	return nil
}

// addDeclared turns declared relation lists into edges.
func (b *builder) addDeclared(rel Relation) {
	for _, el := range b.source {
		targets := el.AdjacentTo
		if rel == ContainedIn {
			targets = el.ContainedIn
		}
		for _, target := range targets.Slice() {
			switch {
			case target == el.GlobalID:
				b.diag(Diagnostic{
					Kind:      DiagSelfReference,
					ElementID: el.GlobalID,
					Target:    target,
					Relation:  rel,
					Message:   "element references itself",
				})
			case !b.g.Contains(target):
				b.diag(Diagnostic{
					Kind:      DiagUnknownTarget,
					ElementID: el.GlobalID,
					Target:    target,
					Relation:  rel,
					Message:   "target is not an element of the model",
				})
			default:
				b.link(el.GlobalID, target, rel)
			}
		}
	}
}

// link adds the edge and mirrors it into the annotated relation sets.
// Adjacency is recorded on both endpoints; containment only on the
// contained element.
func (b *builder) link(a, target string, rel Relation) {
	b.g.addEdge(a, target, rel)
	src := &b.annotated[b.pos[a]]
	switch rel {
	case AdjacentTo:
		src.AdjacentTo.Add(target)
		b.annotated[b.pos[target]].AdjacentTo.Add(a)
	case ContainedIn:
		src.ContainedIn.Add(target)
	}
}
