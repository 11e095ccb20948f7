package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bimq"
	"github.com/zero-day-ai/bimq/config"
	"github.com/zero-day-ai/bimq/export"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/query"
)

const houseModel = "../../testdata/house.json"

// execute runs the CLI and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.Code
}

// writeConfig writes a bimq.yaml into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_Usage(t *testing.T) {
	stdout, _, err := execute(t)
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, stdout, "Commands:")
	assert.Contains(t, stdout, "export")

	stdout, _, err = execute(t, "help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage:")

	_, _, err = execute(t, "fly")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), `unknown command "fly"`)

	_, _, err = execute(t, "query", "-nope")
	assert.Equal(t, 2, exitCode(t, err))

	_, stderr, err := execute(t, "query", "-h")
	require.NoError(t, err)
	assert.Contains(t, stderr, "-relation")
}

func TestRun_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "workflow:\n  evaluator: coin_flip\n")
	_, _, err := execute(t, "schema", "-config", path, "-model", houseModel)
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "workflow.evaluator")

	_, _, err = execute(t, "schema", "-config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 2, exitCode(t, err))
}

func TestQuery(t *testing.T) {
	stdout, _, err := execute(t, "query", "-model", houseModel, "-category", "room", "-relation", "adjacent_to", "-json")
	require.NoError(t, err)

	var out struct {
		Result query.Subgraph `json:"result"`
		Stats  query.Stats    `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, []string{"R1", "R2", "R3"}, out.Result.Nodes)
	assert.Len(t, out.Result.Edges, 2)
	assert.Equal(t, map[string]int{"room": 3}, out.Stats.ByCategory)

	stdout, _, err = execute(t, "query", "-model", houseModel, "-category", "wall", "-filter", "load_bearing=true")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Nodes: 1, Edges: 0"), stdout)
	assert.Contains(t, stdout, "W1 (wall)")
}

func TestQuery_Errors(t *testing.T) {
	_, _, err := execute(t, "query", "-model", houseModel)
	assert.Equal(t, 2, exitCode(t, err))

	_, _, err = execute(t, "query", "-category", "room")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "model file is required")

	_, _, err = execute(t, "query", "-filter", "novalue")
	assert.Equal(t, 2, exitCode(t, err))
}

func TestQuery_Cypher(t *testing.T) {
	stdout, _, err := execute(t, "query", "-category", "door", "-cypher")
	require.NoError(t, err)
	assert.Contains(t, stdout, "MATCH (n:Element) WHERE (n.category IN $p0)")
	assert.Contains(t, stdout, `"door"`)
}

func TestSchema(t *testing.T) {
	stdout, _, err := execute(t, "schema", "-model", houseModel)
	require.NoError(t, err)

	var s graph.Schema
	require.NoError(t, json.Unmarshal([]byte(stdout), &s))
	assert.Equal(t, []string{"door", "room", "slab", "wall"}, s.Categories)
	assert.Contains(t, s.Properties, "fire_rating")
}

func TestExport_DryRun(t *testing.T) {
	stdout, _, err := execute(t, "export", "-model", houseModel, "-dry-run")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, export.ConstraintStatement, lines[0])
	assert.Contains(t, stdout, "SET n:Room")
	assert.Contains(t, stdout, "MERGE (a)-[:CONTAINED_IN]->(b)")
	assert.Contains(t, lines[len(lines)-1], "Exported 7 nodes")
}

func TestExport_RequiresURI(t *testing.T) {
	_, _, err := execute(t, "export", "-model", houseModel)
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "neo4j.uri")
}

func TestCheck(t *testing.T) {
	llm := httptest.NewServer(http.NotFoundHandler())
	defer llm.Close()

	path := writeConfig(t, "model: "+houseModel+"\nllm:\n  base_url: "+llm.URL+"\n")
	stdout, _, err := execute(t, "check", "-config", path)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "has 7 elements")
	assert.Contains(t, stdout, "redis not configured")
	assert.Contains(t, stdout, "degraded:")

	stdout, _, err = execute(t, "check", "-config", path, "-model", filepath.Join(t.TempDir(), "none.json"))
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, stdout, "does not exist")
}

func TestAsk_Errors(t *testing.T) {
	_, _, err := execute(t, "ask", "-model", houseModel)
	assert.Equal(t, 2, exitCode(t, err))

	t.Setenv("BIMQ_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	path := writeConfig(t, "llm:\n  base_url: https://api.example.com/v1\naudit:\n  file: \"\"\n")
	_, _, err = execute(t, "ask", "-config", path, "-model", houseModel, "Which rooms are adjacent?")
	assert.ErrorIs(t, err, bimq.ErrNoProvider)
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.NotEmpty(t, req.Messages) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		system := req.Messages[0].Content
		content := `{}`
		switch {
		case strings.Contains(system, "extract structured query intent"):
			content = `{"category": ["room"], "relation": "adjacent_to"}`
		case strings.Contains(system, "query validation agent"):
			content = `{"decision": "pass"}`
		case strings.Contains(system, "summarize a subgraph"):
			content = `{"summary_text": "Three rooms form a chain."}`
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	auditFile := filepath.Join(dir, "logging.json")
	path := writeConfig(t, "model: "+houseModel+"\nllm:\n  base_url: "+srv.URL+"\naudit:\n  file: "+auditFile+"\n")

	stdout, _, err := execute(t, "ask", "-config", path, "Which", "rooms", "are", "adjacent?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Three rooms form a chain.\n"), stdout)
	assert.Contains(t, stdout, "Outcome: passed (attempts: 0, transitions: 4)")
	assert.Contains(t, stdout, "Nodes:   R1, R2, R3")
	assert.FileExists(t, auditFile)

	stdout, _, err = execute(t, "ask", "-config", path, "-json", "Which rooms are adjacent?")
	require.NoError(t, err)
	var ans bimq.Answer
	require.NoError(t, json.Unmarshal([]byte(stdout), &ans))
	assert.Equal(t, "Three rooms form a chain.", ans.Summary)
	require.NotNil(t, ans.Session)
	assert.Equal(t, "Which rooms are adjacent?", ans.Session.Text)
}

func TestFlags(t *testing.T) {
	var l listFlag
	require.NoError(t, l.Set("room, wall"))
	require.NoError(t, l.Set("door"))
	assert.Equal(t, listFlag{"room", "wall", "door"}, l)
	assert.Equal(t, "room,wall,door", l.String())

	m := mapFlag{}
	require.NoError(t, m.Set("fire_rating = EI60"))
	require.NoError(t, m.Set("note="))
	assert.Equal(t, mapFlag{"fire_rating": "EI60", "note": ""}, m)
	assert.Equal(t, "fire_rating=EI60,note=", m.String())
	assert.Error(t, m.Set("=x"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf).Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(config.LogConfig{Level: "warn"}, &buf).Info("quiet")
	assert.Empty(t, buf.String())
}
