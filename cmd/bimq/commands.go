package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zero-day-ai/bimq"
	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/export"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/health"
	"github.com/zero-day-ai/bimq/mcpserver"
	"github.com/zero-day-ai/bimq/metrics"
	"github.com/zero-day-ai/bimq/query"
)

func setupAsk(fs *flag.FlagSet) func(context.Context, *env) error {
	asJSON := fs.Bool("json", false, "Print the whole answer, including the session, as JSON.")

	return func(ctx context.Context, e *env) error {
		question := strings.TrimSpace(strings.Join(e.flags.Args(), " "))
		if question == "" {
			return usageError("ask: a question is required")
		}

		m := metrics.New()
		stop := serveMetrics(e, m)
		defer stop()

		a, err := bimq.Open(ctx, e.cfg, bimq.WithLogger(e.logger), bimq.WithMetrics(m))
		if err != nil {
			return err
		}
		defer bimq.CloseWithLog(a, e.logger, "assistant")

		ans, askErr := a.Ask(ctx, question)
		if ans != nil && ans.Session != nil {
			if *asJSON {
				if err := writeJSON(e.stdout, ans); err != nil {
					return err
				}
			} else {
				printAnswer(e.stdout, ans)
			}
		}
		if t := a.Tokens(); t != nil {
			e.logger.Info("token usage", "total", t.Total().TotalTokens, "slots", t.Slots())
		}
		return askErr
	}
}

func printAnswer(w io.Writer, ans *bimq.Answer) {
	s := ans.Session
	summary := ans.Summary
	if summary == "" {
		summary = "No summary available."
	}
	fmt.Fprintln(w, summary)
	fmt.Fprintf(w, "\nOutcome: %s (attempts: %d, transitions: %d)\n", orDash(s.Outcome()), s.Attempt, s.Transitions)
	fmt.Fprintf(w, "Query:   %s\n", s.Query)
	fmt.Fprintf(w, "Result:  %s\n", s.Stats)
	if len(s.Result.Nodes) > 0 {
		fmt.Fprintf(w, "Nodes:   %s\n", strings.Join(s.Result.Nodes, ", "))
	}
	for _, f := range s.Failures {
		fmt.Fprintf(w, "Warning: %s failed (%s): %s\n", f.Step, f.Kind, f.Message)
	}
	if ans.Visualization != "" {
		fmt.Fprintf(w, "Graph:   %s\n", ans.Visualization)
	}
}

func setupQuery(fs *flag.FlagSet) func(context.Context, *env) error {
	var categories, names listFlag
	filters := mapFlag{}
	fs.Var(&categories, "category", "Element category to include (repeatable or comma-separated).")
	fs.Var(&names, "name", "Name substring to include (repeatable or comma-separated).")
	fs.Var(filters, "filter", "Attribute filter key=value (repeatable).")
	relation := fs.String("relation", "", "Relation whose edges to return: adjacent_to or contained_in.")
	asJSON := fs.Bool("json", false, "Print the subgraph and stats as JSON.")
	cypher := fs.Bool("cypher", false, "Print the equivalent Cypher statement instead of running the query.")

	return func(ctx context.Context, e *env) error {
		q := query.Structured{
			Categories:       categories,
			IncludeNames:     names,
			AttributeFilters: filters,
			Relation:         *relation,
		}.Normalize()
		if q.IsEmpty() {
			return usageError("query: at least one of -category, -name, -filter or -relation is required")
		}

		if *cypher {
			stmt, params := query.Cypher(q)
			fmt.Fprintln(e.stdout, stmt)
			if len(params) > 0 {
				return writeJSON(e.stdout, params)
			}
			return nil
		}

		g, err := buildGraph(ctx, e)
		if err != nil {
			return err
		}
		for _, w := range q.Validate(g.Schema()) {
			e.logger.Warn("query references unknown schema", "warning", w)
		}

		sub := query.Execute(g, q)
		stats := sub.Stats(g)
		if *asJSON {
			return writeJSON(e.stdout, struct {
				Query  query.Structured `json:"query"`
				Result query.Subgraph   `json:"result"`
				Stats  query.Stats      `json:"stats"`
			}{q, sub, stats})
		}

		fmt.Fprintln(e.stdout, stats)
		for _, id := range sub.Nodes {
			n, _ := g.Node(id)
			fmt.Fprintf(e.stdout, "  %s (%s) %s\n", id, n.Category, n.Name)
		}
		for _, edge := range sub.Edges {
			fmt.Fprintf(e.stdout, "  %s -%s- %s\n", edge.A, edge.Relation, edge.B)
		}
		return nil
	}
}

func setupSchema(fs *flag.FlagSet) func(context.Context, *env) error {
	return func(ctx context.Context, e *env) error {
		g, err := buildGraph(ctx, e)
		if err != nil {
			return err
		}
		return writeJSON(e.stdout, g.Schema())
	}
}

func setupExport(fs *flag.FlagSet) func(context.Context, *env) error {
	uri := fs.String("uri", "", "Neo4j URI (overrides config).")
	user := fs.String("user", "", "Neo4j username (overrides config).")
	password := fs.String("password", "", "Neo4j password (overrides config).")
	database := fs.String("database", "", "Neo4j database (overrides config).")
	batch := fs.Int("batch", export.DefaultBatchSize, "Rows per UNWIND statement.")
	dryRun := fs.Bool("dry-run", false, "Print the statements instead of sending them.")

	return func(ctx context.Context, e *env) error {
		cfg := e.cfg.Neo4j
		override := func(dst *string, v string) {
			if v != "" {
				*dst = v
			}
		}
		override(&cfg.URI, *uri)
		override(&cfg.Username, *user)
		override(&cfg.Password, *password)
		override(&cfg.Database, *database)

		g, err := buildGraph(ctx, e)
		if err != nil {
			return err
		}

		var runner export.Runner
		var recorder *export.RecordingRunner
		if *dryRun {
			recorder = &export.RecordingRunner{}
			runner = recorder
		} else {
			neo, err := export.NewNeo4jRunner(cfg)
			if err != nil {
				if errors.Is(err, export.ErrNoURI) {
					return usageError("export: set neo4j.uri in the config or pass -uri")
				}
				return err
			}
			defer func() {
				if err := neo.Close(context.Background()); err != nil {
					e.logger.Warn("failed to close neo4j driver", "error", err)
				}
			}()
			if err := neo.Verify(ctx); err != nil {
				return fmt.Errorf("neo4j unreachable at %s: %w", cfg.URI, err)
			}
			runner = neo
		}

		st, err := export.NewExporter(runner,
			export.WithBatchSize(*batch),
			export.WithLogger(e.logger),
		).Export(ctx, g)
		if recorder != nil {
			for _, stmt := range recorder.Statements() {
				fmt.Fprintln(e.stdout, stmt.Cypher)
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Exported %d nodes and %d edges in %d statements.\n", st.Nodes, st.Edges, st.Statements)
		return nil
	}
}

func setupMCP(fs *flag.FlagSet) func(context.Context, *env) error {
	transport := fs.String("transport", "", "MCP transport: stdio or http (overrides config).")
	addr := fs.String("addr", "", "Listen address for the http transport (overrides config).")

	return func(ctx context.Context, e *env) error {
		if *transport != "" {
			e.cfg.MCP.Transport = *transport
		}
		if *addr != "" {
			e.cfg.MCP.Addr = *addr
		}

		m := metrics.New()
		stop := serveMetrics(e, m)
		defer stop()

		a, err := bimq.Open(ctx, e.cfg, bimq.WithLogger(e.logger), bimq.WithMetrics(m))
		if err != nil {
			return err
		}
		defer bimq.CloseWithLog(a, e.logger, "assistant")

		return mcpserver.Serve(ctx, mcpserver.New(a), e.cfg.MCP.Transport, e.cfg.MCP.Addr, e.logger)
	}
}

func setupCheck(fs *flag.FlagSet) func(context.Context, *env) error {
	return func(ctx context.Context, e *env) error {
		model := health.Unhealthy("model not configured", nil)
		if e.cfg.Model != "" {
			model = health.ModelCheck(e.cfg.Model)
		}
		checks := []health.Status{
			model,
			health.EndpointCheck(ctx, "llm", e.cfg.LLM.BaseURL),
			health.EndpointCheck(ctx, "redis", e.cfg.Audit.RedisURL),
			health.EndpointCheck(ctx, "neo4j", e.cfg.Neo4j.URI),
		}
		for _, c := range checks {
			fmt.Fprintf(e.stdout, "%-9s %s\n", c.Status, c.Message)
		}

		overall := health.Combine(checks...)
		fmt.Fprintf(e.stdout, "\n%s: %s\n", overall.Status, overall.Message)
		if overall.IsUnhealthy() {
			return &ExitError{Code: 1}
		}
		return nil
	}
}

// buildGraph loads the configured model and builds its graph.
func buildGraph(ctx context.Context, e *env) (*graph.Graph, error) {
	if e.cfg.Model == "" {
		return nil, usageError("a model file is required (-model or model: in the config)")
	}
	model, err := element.LoadFile(e.cfg.Model)
	if err != nil {
		return nil, err
	}
	res, err := graph.Build(ctx, model,
		graph.WithDetector(e.cfg.Graph.Detector()),
		graph.WithLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}
	if len(res.Diagnostics) > 0 {
		e.logger.Warn("model has inconsistencies", "diagnostics", len(res.Diagnostics))
	}
	return res.Graph, nil
}

// serveMetrics exposes m on the configured address until the returned
// function is called. It does nothing when no address is configured.
func serveMetrics(e *env, m *metrics.Metrics) func() {
	if e.cfg.Metrics.Addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: e.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		e.logger.Info("metrics listening", "addr", e.cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
