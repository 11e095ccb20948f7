package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/bimq/audit"
	"github.com/zero-day-ai/bimq/eval"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/intent"
	"github.com/zero-day-ai/bimq/metrics"
	"github.com/zero-day-ai/bimq/query"
	"github.com/zero-day-ai/bimq/summary"
)

var (
	// ErrNilGraph is returned when Run, Step or Resume get no graph.
	ErrNilGraph = errors.New("workflow: graph is nil")

	// ErrNilSession is returned when Step or Resume get no session.
	ErrNilSession = errors.New("workflow: session is nil")

	// ErrMissingCollaborator is returned by New when a required
	// collaborator is nil.
	ErrMissingCollaborator = errors.New("workflow: missing collaborator")

	// ErrUnknownState is returned for a session in a state the machine does
	// not know.
	ErrUnknownState = errors.New("workflow: unknown state")
)

// Collaborators are the services the machine delegates to. Resolver,
// Evaluator and Repairer are required. A nil Summarizer means
// summary.TemplateSummarizer; a nil Visualizer disables rendering.
type Collaborators struct {
	Resolver   intent.Resolver
	Evaluator  eval.Evaluator
	Repairer   intent.Repairer
	Summarizer summary.Summarizer
	Visualizer summary.Visualizer
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxAttempts sets the repair budget. Negative values are ignored.
func WithMaxAttempts(n int) Option {
	return func(m *Machine) {
		if n >= 0 {
			m.maxAttempts = n
		}
	}
}

// WithStepTimeout bounds every collaborator call. Expiry is handled like
// any other collaborator failure. Zero disables the bound.
func WithStepTimeout(d time.Duration) Option {
	return func(m *Machine) {
		m.stepTimeout = d
	}
}

// WithAudit sets the sink receiving one entry per evaluation.
func WithAudit(s audit.Sink) Option {
	return func(m *Machine) {
		if s != nil {
			m.audit = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTracer sets the tracer used for per-state spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Machine) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithMetrics sets the Prometheus instruments.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) {
		m.metrics = mt
	}
}

// Machine drives sessions. It holds configuration only; all per-question
// data lives in the Session, so one Machine serves concurrent sessions.
type Machine struct {
	c           Collaborators
	maxAttempts int
	stepTimeout time.Duration
	audit       audit.Sink
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *metrics.Metrics
}

// New creates a machine.
func New(c Collaborators, opts ...Option) (*Machine, error) {
	var missing []string
	if c.Resolver == nil {
		missing = append(missing, "resolver")
	}
	if c.Evaluator == nil {
		missing = append(missing, "evaluator")
	}
	if c.Repairer == nil {
		missing = append(missing, "repairer")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCollaborator, strings.Join(missing, ", "))
	}
	if c.Summarizer == nil {
		c.Summarizer = summary.TemplateSummarizer{}
	}

	m := &Machine{
		c:           c,
		maxAttempts: DefaultMaxAttempts,
		audit:       audit.Discard,
		logger:      slog.Default(),
		tracer:      noop.NewTracerProvider().Tracer("bimq/workflow"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MaxAttempts returns the repair budget.
func (m *Machine) MaxAttempts() int {
	return m.maxAttempts
}

// Run answers text against g. The returned error is nil unless g is nil or
// ctx ends before the session is done; collaborator failures are recorded
// in the session instead. A session returned with a context error can be
// continued with Resume.
func (m *Machine) Run(ctx context.Context, g *graph.Graph, text string) (*Session, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	return m.Resume(ctx, g, NewSession(text, g.Schema()))
}

// Resume steps s until it is done.
func (m *Machine) Resume(ctx context.Context, g *graph.Graph, s *Session) (*Session, error) {
	if g == nil {
		return s, ErrNilGraph
	}
	if s == nil {
		return nil, ErrNilSession
	}

	ctx, span := m.tracer.Start(ctx, "workflow.session",
		trace.WithAttributes(attribute.String("session.id", s.ID)))
	defer span.End()

	for !s.Done() {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "context done")
			return s, err
		}
		if err := m.Step(ctx, g, s); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return s, err
		}
	}

	span.SetAttributes(
		attribute.String("session.outcome", s.Outcome()),
		attribute.Int("session.attempt", s.Attempt),
		attribute.Int("session.transitions", s.Transitions),
	)
	if m.metrics != nil {
		m.metrics.SessionsTotal.WithLabelValues(s.Outcome()).Inc()
		m.metrics.SessionAttempts.Observe(float64(s.Attempt))
	}
	m.logger.Info("session finished",
		"session", s.ID,
		"outcome", s.Outcome(),
		"attempt", s.Attempt,
		"transitions", s.Transitions,
		"failures", len(s.Failures),
	)
	return s, nil
}

// Step runs the handler of s.State and advances s by one transition.
// Running a done session is a no-op.
func (m *Machine) Step(ctx context.Context, g *graph.Graph, s *Session) error {
	if g == nil {
		return ErrNilGraph
	}
	if s == nil {
		return ErrNilSession
	}
	if s.Done() {
		return nil
	}

	state := s.State
	ctx, span := m.tracer.Start(ctx, "workflow."+state.String(),
		trace.WithAttributes(
			attribute.String("session.id", s.ID),
			attribute.Int("attempt", s.Attempt),
		))
	defer span.End()
	if m.metrics != nil {
		m.metrics.TransitionsTotal.WithLabelValues(state.String()).Inc()
	}

	failures := len(s.Failures)
	switch state {
	case StateGenerateQuery:
		m.generate(ctx, s)
	case StateExecute:
		m.execute(g, s)
	case StateEvaluate:
		m.evaluate(ctx, s)
		span.SetAttributes(attribute.String("decision", s.Decision.String()))
	case StateRepair:
		m.repair(ctx, g, s)
		span.SetAttributes(attribute.Bool("repaired", s.Repaired))
	case StateSummarize:
		m.summarize(ctx, g, s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	for _, f := range s.Failures[failures:] {
		span.AddEvent("collaborator failure", trace.WithAttributes(
			attribute.String("step", f.Step),
			attribute.String("kind", string(f.Kind)),
			attribute.String("message", f.Message),
		))
	}

	next := Next(s, m.maxAttempts)
	if givesUp(s, next) {
		s.GaveUp = true
		m.logger.Info("giving up", "session", s.ID, "from", state, "attempt", s.Attempt)
	}
	s.State = next
	s.Transitions++
	span.SetAttributes(attribute.String("next", next.String()))
	m.logger.Debug("transition", "session", s.ID, "from", state, "to", next, "attempt", s.Attempt)
	return nil
}

// call runs fn under the per-step timeout and records its duration.
func (m *Machine) call(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	if m.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.stepTimeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	if m.metrics != nil {
		m.metrics.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	}
	return err
}

func (m *Machine) record(s *Session, step string, err error) {
	f := s.fail(step, err)
	if m.metrics != nil {
		m.metrics.StepFailuresTotal.WithLabelValues(f.Step, string(f.Kind)).Inc()
	}
	m.logger.Warn("collaborator failed",
		"session", s.ID,
		"step", f.Step,
		"kind", f.Kind,
		"attempt", f.Attempt,
		"error", f.Message,
	)
}

func (m *Machine) generate(ctx context.Context, s *Session) {
	var q query.Structured
	err := m.call(ctx, "generate_query", func(ctx context.Context) error {
		var err error
		q, err = m.c.Resolver.Resolve(ctx, s.Text, s.Schema)
		return err
	})
	if err != nil {
		m.record(s, "generate_query", err)
		q = query.Structured{}
	}
	s.Query = q.Normalize()
	if warnings := s.Query.Validate(s.Schema); len(warnings) > 0 {
		m.logger.Debug("query does not fit schema", "session", s.ID, "warnings", warnings)
	}
}

func (m *Machine) execute(g *graph.Graph, s *Session) {
	s.Result = query.Execute(g, s.Query)
	s.Stats = s.Result.Stats(g)
}

func (m *Machine) evaluate(ctx context.Context, s *Session) {
	var v eval.Verdict
	err := m.call(ctx, "evaluate", func(ctx context.Context) error {
		var err error
		v, err = m.c.Evaluator.Evaluate(ctx, eval.Request{Text: s.Text, Query: s.Query, Stats: s.Stats})
		return err
	})
	if err != nil {
		m.record(s, "evaluate", err)
		v = eval.Verdict{Decision: eval.DecisionRetry, Explanation: err.Error()}
	}
	s.Decision = eval.ParseDecision(v.Decision.String())
	s.Explanation = v.Explanation
	s.Evaluator = v.Evaluator

	entry := audit.Entry{
		SessionID:   s.ID,
		Query:       s.Text,
		Structured:  s.Query.Clone(),
		Attempt:     s.Attempt,
		Decision:    s.Decision.String(),
		Explanation: s.Explanation,
		Evaluator:   s.Evaluator,
	}.Stamped()
	if err := m.audit.Append(ctx, entry); err != nil {
		if m.metrics != nil {
			m.metrics.AuditFailuresTotal.Inc()
		}
		s.fail("audit", err)
		m.logger.Error("audit append failed", "session", s.ID, "entry", entry.ID, "error", err)
	}
}

func (m *Machine) repair(ctx context.Context, g *graph.Graph, s *Session) {
	req := intent.RepairRequest{
		Text:        s.Text,
		Previous:    s.Query.Clone(),
		Explanation: s.Explanation,
		Schema:      s.Schema,
	}
	if s.Candidate != nil {
		req.Previous = s.Candidate.Clone()
		req.Explanation = joinReasons(s.Explanation, "the previous repair matched no elements")
	}

	var q query.Structured
	err := m.call(ctx, "repair", func(ctx context.Context) error {
		var err error
		q, err = m.c.Repairer.Repair(ctx, req)
		return err
	})
	if err != nil {
		m.record(s, "repair", err)
		q = query.Structured{}
	}
	q = q.Normalize()

	if !query.Execute(g, q).IsEmpty() {
		s.Query = q
		s.Candidate = nil
		s.Repaired = true
		return
	}
	s.Candidate = &q
	s.Attempt++
}

func (m *Machine) summarize(ctx context.Context, g *graph.Graph, s *Session) {
	req := summary.Request{Text: s.Text, Stats: s.Stats, GaveUp: s.GaveUp}
	if len(s.Result.Edges) > 0 {
		req.Components = len(graph.Components(s.Result.Nodes, s.Result.Edges))
	}

	var text string
	err := m.call(ctx, "summarize", func(ctx context.Context) error {
		var err error
		text, err = m.c.Summarizer.Summarize(ctx, req)
		return err
	})
	if err != nil || strings.TrimSpace(text) == "" {
		if err == nil {
			err = errors.New("empty summary")
		}
		m.record(s, "summarize", err)
		text = summary.FallbackText
	}
	s.Summary = text

	if m.c.Visualizer == nil {
		return
	}
	var path string
	err = m.call(ctx, "visualize", func(ctx context.Context) error {
		var err error
		path, err = m.c.Visualizer.Render(ctx, s.Result, g)
		return err
	})
	if err != nil {
		m.record(s, "visualize", err)
		return
	}
	s.Visualization = path
}

func joinReasons(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "; ")
}
