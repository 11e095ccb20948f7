package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/query"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 500

// ErrNilGraph is returned by Export for a nil graph.
var ErrNilGraph = errors.New("export: graph is nil")

// ConstraintStatement makes global_id unique among exported elements.
const ConstraintStatement = "CREATE CONSTRAINT element_global_id IF NOT EXISTS FOR (n:" +
	query.ElementLabel + ") REQUIRE n.global_id IS UNIQUE"

// Stats counts what an export wrote.
type Stats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Statements int `json:"statements"`
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithBatchSize sets the rows per statement. Values below one are ignored.
func WithBatchSize(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithoutConstraint skips the uniqueness constraint, for servers where the
// user may not manage the schema.
func WithoutConstraint() Option {
	return func(e *Exporter) {
		e.constraint = false
	}
}

// Exporter writes graphs through a Runner.
type Exporter struct {
	runner     Runner
	batchSize  int
	constraint bool
	logger     *slog.Logger
}

// NewExporter creates an exporter.
func NewExporter(r Runner, opts ...Option) *Exporter {
	e := &Exporter{
		runner:     r,
		batchSize:  DefaultBatchSize,
		constraint: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export merges every node and edge of g. Nodes are written before edges
// so every relationship finds both endpoints.
func (e *Exporter) Export(ctx context.Context, g *graph.Graph) (Stats, error) {
	var st Stats
	if g == nil {
		return st, ErrNilGraph
	}

	if e.constraint {
		if err := e.run(ctx, &st, ConstraintStatement, nil); err != nil {
			return st, err
		}
	}

	byLabel := make(map[string][]map[string]any)
	for _, n := range g.Nodes() {
		label := query.CategoryLabel(n.Category.String())
		byLabel[label] = append(byLabel[label], nodeRow(n))
	}
	for _, label := range sortedKeys(byLabel) {
		stmt := nodeStatement(label)
		for _, batch := range chunk(byLabel[label], e.batchSize) {
			if err := e.run(ctx, &st, stmt, map[string]any{"rows": batch}); err != nil {
				return st, err
			}
			st.Nodes += len(batch)
		}
	}

	byType := make(map[string][]map[string]any)
	for _, edge := range g.Edges() {
		typ := query.RelationshipType(edge.Relation.String())
		byType[typ] = append(byType[typ], map[string]any{"a": edge.A, "b": edge.B})
	}
	for _, typ := range sortedKeys(byType) {
		stmt := edgeStatement(typ)
		for _, batch := range chunk(byType[typ], e.batchSize) {
			if err := e.run(ctx, &st, stmt, map[string]any{"rows": batch}); err != nil {
				return st, err
			}
			st.Edges += len(batch)
		}
	}

	e.logger.Info("graph exported", "nodes", st.Nodes, "edges", st.Edges, "statements", st.Statements)
	return st, nil
}

func (e *Exporter) run(ctx context.Context, st *Stats, cypher string, params map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if params == nil {
		params = map[string]any{}
	}
	if err := e.runner.Run(ctx, cypher, params); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	st.Statements++
	return nil
}

func nodeStatement(label string) string {
	stmt := "UNWIND $rows AS row MERGE (n:" + query.ElementLabel + " {global_id: row.global_id}) "
	if label != "" {
		stmt += "SET n:" + label + " "
	}
	return stmt + "SET n += row.props"
}

func edgeStatement(typ string) string {
	return "UNWIND $rows AS row " +
		"MATCH (a:" + query.ElementLabel + " {global_id: row.a}) " +
		"MATCH (b:" + query.ElementLabel + " {global_id: row.b}) " +
		"MERGE (a)-[:" + typ + "]->(b)"
}

// nodeRow flattens a node into the global_id key and a property map.
// Property values are bool, float64 or string. Element properties never
// overwrite the fixed attributes.
func nodeRow(n graph.Node) map[string]any {
	props := make(map[string]any, len(n.Properties)+9)
	for k, v := range n.Properties {
		if v.IsValid() {
			props[k] = v.Interface()
		}
	}
	props["category"] = n.Category.String()
	props["name"] = n.Name
	if n.Box.Valid() {
		props["min_x"], props["min_y"], props["min_z"] = n.Box.MinX, n.Box.MinY, n.Box.MinZ
		props["max_x"], props["max_y"], props["max_z"] = n.Box.MaxX, n.Box.MaxY, n.Box.MaxZ
	}
	return map[string]any{"global_id": n.ID, "props": props}
}

func chunk(rows []map[string]any, size int) [][]map[string]any {
	var out [][]map[string]any
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}

func sortedKeys(m map[string][]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
