package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bimq/geometry"
	"github.com/zero-day-ai/bimq/workflow"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, workflow.DefaultMaxAttempts, c.Workflow.GetMaxAttempts())
	assert.Equal(t, DefaultStepTimeout, c.Workflow.GetStepTimeout())
	assert.Equal(t, DefaultAuditFile, c.Audit.File)
	assert.Equal(t, EvaluatorLLM, c.Workflow.Evaluator)
	assert.Equal(t, geometry.ModeTouch, c.Graph.Detector().Mode)
	assert.Zero(t, c.LLM.Temperature)
}

func TestLoad(t *testing.T) {
	t.Setenv("BIMQ_MODEL", "")
	t.Setenv("BIMQ_LLM_MODEL", "")
	dir := t.TempDir()
	doc := `
model: data/house.json
llm:
  model: gpt-4o-mini
  slots:
    evaluate: {model: o3}
workflow:
  max_attempts: 0
  step_timeout: 5s
  evaluator: rules
  rule: "node_count > 1"
graph:
  adjacency: overlap
audit:
  redis_url: redis://localhost:6379
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bimq.yaml"), []byte(doc), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "data/house.json", c.Model)
	assert.Equal(t, "gpt-4o-mini", c.LLM.Model)
	assert.Equal(t, "https://api.openai.com/v1", c.LLM.BaseURL, "defaults survive partial files")
	assert.Equal(t, 0, c.Workflow.GetMaxAttempts())
	assert.Equal(t, 5*time.Second, c.Workflow.GetStepTimeout())
	assert.Equal(t, EvaluatorRules, c.Workflow.Evaluator)
	assert.Equal(t, geometry.ModeOverlap, c.Graph.Detector().Mode)
	assert.Equal(t, geometry.DefaultTolerance, c.Graph.Detector().Tolerance)
	assert.Equal(t, DefaultAuditFile, c.Audit.File)
	assert.Equal(t, "redis://localhost:6379", c.Audit.RedisURL)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "DEBUG", c.Log.SlogLevel().String())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "no bimq.yaml")

	_, err = Parse([]byte("workflow: [1, 2"))
	assert.ErrorContains(t, err, "failed to parse")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BIMQ_MODEL", "env.json")
	t.Setenv("BIMQ_LLM_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("BIMQ_LLM_MODEL", "")
	c, err := Parse([]byte("model: file.json"))
	require.NoError(t, err)
	assert.Equal(t, "env.json", c.Model)
	assert.Equal(t, "http://localhost:11434/v1", c.LLM.BaseURL)
}

func TestValidate(t *testing.T) {
	neg := -1
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"negative attempts", func(c *Config) { c.Workflow.MaxAttempts = &neg }, "max_attempts"},
		{"bad timeout", func(c *Config) { c.Workflow.StepTimeout = "soon" }, "step_timeout"},
		{"bad evaluator", func(c *Config) { c.Workflow.Evaluator = "oracle" }, "workflow.evaluator"},
		{"bad adjacency", func(c *Config) { c.Graph.Adjacency = "exact" }, "graph.adjacency"},
		{"negative tolerance", func(c *Config) { c.Graph.Tolerance = -1 }, "graph.tolerance"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad transport", func(c *Config) { c.MCP.Transport = "grpc" }, "mcp.transport"},
		{"bad llm timeout", func(c *Config) { c.LLM.Timeout = "1 minute" }, "llm.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetters_FallBack(t *testing.T) {
	assert.Equal(t, DefaultStepTimeout, WorkflowConfig{StepTimeout: "x"}.GetStepTimeout())
	assert.Equal(t, "INFO", LogConfig{Level: "nope"}.SlogLevel().String())
	assert.Equal(t, geometry.ModeTouch, GraphConfig{Adjacency: "bogus"}.Detector().Mode)
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("BIMQ_MODEL", "")
	t.Setenv("BIMQ_LLM_BASE_URL", "")
	t.Setenv("BIMQ_LLM_MODEL", "")
	t.Setenv("BIMQ_LOG_LEVEL", "")

	c, err := Load("../bimq.example.yaml")
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "testdata/house.json", c.Model)
	assert.Equal(t, 2, c.Workflow.GetMaxAttempts())
	assert.Equal(t, 60*time.Second, c.Workflow.GetStepTimeout())
	assert.Equal(t, EvaluatorLLM, c.Workflow.Evaluator)
	assert.Equal(t, geometry.ModeTouch, geometry.Mode(c.Graph.Adjacency))
	assert.Equal(t, "gpt-4o", c.LLM.ForSlot("evaluate").Model)
	assert.Equal(t, "neo4j://localhost:7687", c.Neo4j.URI)
	assert.Equal(t, "bimq:audit", c.Audit.RedisKey)
}
