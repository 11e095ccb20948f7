// Package metrics defines the Prometheus instruments of the query workflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the workflow instruments. Each instance owns a registry, so
// several machines (or tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// SessionsTotal counts finished sessions by outcome (passed, repaired,
	// gave_up).
	SessionsTotal *prometheus.CounterVec

	// TransitionsTotal counts state visits.
	TransitionsTotal *prometheus.CounterVec

	// StepFailuresTotal counts collaborator failures by step and kind.
	StepFailuresTotal *prometheus.CounterVec

	// StepDuration measures collaborator calls.
	StepDuration *prometheus.HistogramVec

	// SessionAttempts observes the repair attempts used per session.
	SessionAttempts prometheus.Histogram

	// AuditFailuresTotal counts entries that could not be stored.
	AuditFailuresTotal prometheus.Counter

	// GraphElements tracks the size of the loaded graph.
	GraphElements prometheus.Gauge

	// GraphEdges tracks edges by relation.
	GraphEdges *prometheus.GaugeVec
}

// New creates instruments registered on a fresh registry, together with the
// Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

// NewWithRegistry creates instruments registered on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SessionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bimq_sessions_total",
				Help: "Total number of query sessions by outcome",
			},
			[]string{"outcome"},
		),
		TransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bimq_state_transitions_total",
				Help: "Total number of workflow state visits",
			},
			[]string{"state"},
		),
		StepFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bimq_step_failures_total",
				Help: "Collaborator failures by step and kind",
			},
			[]string{"step", "kind"},
		),
		StepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "bimq_step_duration_seconds",
				Help: "Duration of collaborator calls in seconds",
				// From local rule evaluation to slow reasoning models.
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"step"},
		),
		SessionAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bimq_session_attempts",
			Help:    "Repair attempts used per session",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		}),
		AuditFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "bimq_audit_failures_total",
			Help: "Audit entries that could not be stored",
		}),
		GraphElements: f.NewGauge(prometheus.GaugeOpts{
			Name: "bimq_graph_elements",
			Help: "Elements in the loaded building graph",
		}),
		GraphEdges: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bimq_graph_edges",
				Help: "Edges in the loaded building graph by relation",
			},
			[]string{"relation"},
		),
	}
}

// Registry returns the registry the instruments live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
