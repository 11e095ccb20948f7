package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Independent(t *testing.T) {
	a := New()
	b := New()

	a.SessionsTotal.WithLabelValues("passed").Inc()
	a.StepFailuresTotal.WithLabelValues("evaluate", "timeout").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SessionsTotal.WithLabelValues("passed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.StepFailuresTotal.WithLabelValues("evaluate", "timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsTotal.WithLabelValues("passed")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.GraphElements.Set(3)
	m.GraphEdges.WithLabelValues("adjacent_to").Set(1)
	m.SessionAttempts.Observe(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bimq_graph_elements 3")
	assert.Contains(t, string(body), `bimq_graph_edges{relation="adjacent_to"} 1`)
	assert.Contains(t, string(body), "bimq_session_attempts_count 1")
	assert.Contains(t, string(body), "go_goroutines")
}
