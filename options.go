package bimq

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/metrics"
	"github.com/zero-day-ai/bimq/workflow"
)

// Option configures an Assistant.
type Option func(*options)

type options struct {
	collaborators *workflow.Collaborators
	machineOpts   []workflow.Option
	buildOpts     []graph.Option
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *metrics.Metrics
}

// WithCollaborators sets the services the workflow delegates to. Required
// for New; Open builds them from configuration unless this is given.
func WithCollaborators(c workflow.Collaborators) Option {
	return func(o *options) {
		o.collaborators = &c
	}
}

// WithMachineOptions appends workflow options (repair budget, step
// timeout, audit sink).
func WithMachineOptions(opts ...workflow.Option) Option {
	return func(o *options) {
		o.machineOpts = append(o.machineOpts, opts...)
	}
}

// WithBuildOptions appends graph construction options such as the
// adjacency detector.
func WithBuildOptions(opts ...graph.Option) Option {
	return func(o *options) {
		o.buildOpts = append(o.buildOpts, opts...)
	}
}

// WithLogger sets the logger shared by the graph builder and the workflow.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for per-state spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMetrics sets the Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
