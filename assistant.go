package bimq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/llm"
	"github.com/zero-day-ai/bimq/metrics"
	"github.com/zero-day-ai/bimq/query"
	"github.com/zero-day-ai/bimq/workflow"
)

// Answer is the result of one question.
type Answer struct {
	Summary       string            `json:"summary"`
	Visualization string            `json:"visualization,omitempty"`
	Session       *workflow.Session `json:"session"`
}

// Assistant answers questions about one building model.
type Assistant struct {
	model   *element.Model
	build   *graph.Result
	machine *workflow.Machine
	logger  *slog.Logger
	metrics *metrics.Metrics
	tokens  *llm.TokenTracker
	closers []io.Closer
}

// New builds the element graph for model and prepares the workflow.
// WithCollaborators is required.
func New(model *element.Model, opts ...Option) (*Assistant, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return newAssistant(model, o)
}

func newAssistant(model *element.Model, o *options) (*Assistant, error) {
	const op = "bimq.New"
	if model == nil {
		return nil, NewValidationError(op, ErrNoGraph)
	}
	if o.collaborators == nil {
		return nil, NewConfigurationError(op, errors.New("collaborators are required"))
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	buildOpts := append([]graph.Option{graph.WithLogger(o.logger)}, o.buildOpts...)
	res, err := graph.Build(context.Background(), model, buildOpts...)
	if err != nil {
		return nil, NewExecutionError(op, err)
	}

	machineOpts := []workflow.Option{workflow.WithLogger(o.logger)}
	if o.tracer != nil {
		machineOpts = append(machineOpts, workflow.WithTracer(o.tracer))
	}
	if o.metrics != nil {
		machineOpts = append(machineOpts, workflow.WithMetrics(o.metrics))
		o.metrics.GraphElements.Set(float64(res.Graph.Len()))
		for _, rel := range []graph.Relation{graph.AdjacentTo, graph.ContainedIn} {
			o.metrics.GraphEdges.WithLabelValues(rel.String()).Set(float64(len(res.Graph.EdgesByRelation(rel))))
		}
	}
	machine, err := workflow.New(*o.collaborators, append(machineOpts, o.machineOpts...)...)
	if err != nil {
		return nil, NewConfigurationError(op, err)
	}

	o.logger.Info("building graph ready",
		"elements", res.Graph.Len(),
		"edges", res.Graph.EdgeCount(),
		"diagnostics", len(res.Diagnostics),
	)
	return &Assistant{
		model:   model,
		build:   res,
		machine: machine,
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// Ask answers text. Collaborator failures degrade the answer but are not
// errors; the error is non-nil only for blank text or when ctx ends first,
// in which case the partial session is still returned.
func (a *Assistant) Ask(ctx context.Context, text string) (*Answer, error) {
	const op = "Assistant.Ask"
	if strings.TrimSpace(text) == "" {
		return nil, NewValidationError(op, ErrEmptyQuestion)
	}

	s, err := a.machine.Run(ctx, a.build.Graph, text)
	ans := &Answer{Session: s}
	if s != nil {
		ans.Summary = s.Summary
		ans.Visualization = s.Visualization
	}
	if err != nil {
		kind := KindExecution
		if ctx.Err() != nil {
			kind = KindCanceled
		}
		e := &Error{Op: op, Kind: kind, Err: err}
		if s != nil {
			e = e.WithContext(map[string]any{"session": s.ID})
		}
		return ans, e
	}
	return ans, nil
}

// Resume continues a session returned by an interrupted Ask.
func (a *Assistant) Resume(ctx context.Context, s *workflow.Session) (*Answer, error) {
	s, err := a.machine.Resume(ctx, a.build.Graph, s)
	if err != nil {
		return &Answer{Session: s}, &Error{Op: "Assistant.Resume", Kind: KindCanceled, Err: err}
	}
	return &Answer{Summary: s.Summary, Visualization: s.Visualization, Session: s}, nil
}

// Execute runs a structured query directly, without the language model.
func (a *Assistant) Execute(q query.Structured) query.Subgraph {
	return query.Execute(a.build.Graph, q.Normalize())
}

// Graph returns the element graph.
func (a *Assistant) Graph() *graph.Graph {
	return a.build.Graph
}

// Diagnostics returns the problems found while building the graph.
func (a *Assistant) Diagnostics() []graph.Diagnostic {
	return append([]graph.Diagnostic(nil), a.build.Diagnostics...)
}

// Schema returns the categories, relations and properties present.
func (a *Assistant) Schema() graph.Schema {
	return a.build.Graph.Schema()
}

// Model returns the source model.
func (a *Assistant) Model() *element.Model {
	return a.model
}

// Elements returns the model elements annotated with every relation the
// graph found.
func (a *Assistant) Elements() []element.Element {
	return a.build.Elements
}

// Metrics returns the Prometheus instruments, or nil.
func (a *Assistant) Metrics() *metrics.Metrics {
	return a.metrics
}

// Tokens returns the per-slot token usage, or nil when the assistant does
// not talk to a language model it created.
func (a *Assistant) Tokens() *llm.TokenTracker {
	return a.tokens
}

// Close releases the audit sinks opened by Open.
func (a *Assistant) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
