package bimq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bimq/audit"
	"github.com/zero-day-ai/bimq/config"
	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/eval"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/intent"
	"github.com/zero-day-ai/bimq/metrics"
	"github.com/zero-day-ai/bimq/query"
	"github.com/zero-day-ai/bimq/workflow"
)

const houseModel = "testdata/house.json"

func rules(t *testing.T) eval.Evaluator {
	t.Helper()
	r, err := eval.NewRuleEvaluator("")
	require.NoError(t, err)
	return r
}

func staticCollaborators(t *testing.T, q query.Structured) workflow.Collaborators {
	return workflow.Collaborators{
		Resolver:  intent.Static{Query: q},
		Evaluator: rules(t),
		Repairer:  intent.Static{},
	}
}

func loadHouse(t *testing.T) *element.Model {
	t.Helper()
	m, err := element.LoadFile(houseModel)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	mt := metrics.New()
	a, err := New(loadHouse(t),
		WithCollaborators(staticCollaborators(t, query.Structured{Categories: []string{"room"}, Relation: "adjacent_to"})),
		WithMetrics(mt))
	require.NoError(t, err)

	assert.Equal(t, 7, a.Graph().Len())
	assert.True(t, a.Graph().HasEdge("R1", "R2", graph.AdjacentTo))
	assert.True(t, a.Graph().HasEdge("R1", "S1", graph.ContainedIn))
	assert.True(t, a.Graph().HasEdge("D1", "R3", graph.AdjacentTo))
	assert.Empty(t, a.Diagnostics())
	assert.True(t, a.Schema().HasCategory("door"))
	assert.Same(t, mt, a.Metrics())
	assert.Nil(t, a.Tokens())
	assert.Len(t, a.Elements(), 7)
	assert.NoError(t, a.Close())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, WithCollaborators(staticCollaborators(t, query.Structured{})))
	assert.ErrorIs(t, err, ErrNoGraph)
	assert.ErrorIs(t, err, &Error{Kind: KindValidation})

	_, err = New(loadHouse(t))
	assert.ErrorIs(t, err, &Error{Kind: KindConfiguration})

	_, err = New(loadHouse(t), WithCollaborators(workflow.Collaborators{Resolver: intent.Static{}}))
	assert.ErrorIs(t, err, workflow.ErrMissingCollaborator)
}

func TestAssistant_Ask(t *testing.T) {
	a, err := New(loadHouse(t),
		WithCollaborators(staticCollaborators(t, query.Structured{Categories: []string{"room"}, Relation: "adjacent_to"})))
	require.NoError(t, err)

	ans, err := a.Ask(context.Background(), "Which rooms are adjacent to each other?")
	require.NoError(t, err)
	assert.Equal(t, "passed", ans.Session.Outcome())
	assert.Equal(t, []string{"R1", "R2", "R3"}, ans.Session.Result.Nodes)
	assert.Equal(t, "Found 3 elements (3 room). They are linked by 2 edges (2 adjacent_to), forming 1 connected group.", ans.Summary)

	_, err = a.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAssistant_AskConcurrently(t *testing.T) {
	a, err := New(loadHouse(t),
		WithCollaborators(staticCollaborators(t, query.Structured{Categories: []string{"wall"}})))
	require.NoError(t, err)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ans, err := a.Ask(context.Background(), "walls")
			if assert.NoError(t, err) {
				ids[i] = ans.Session.ID
				assert.Equal(t, []string{"W1", "W2"}, ans.Session.Result.Nodes)
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "sessions are independent")
		seen[id] = true
	}
}

func TestAssistant_AskCanceled(t *testing.T) {
	a, err := New(loadHouse(t), WithCollaborators(staticCollaborators(t, query.Structured{Categories: []string{"room"}})))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ans, err := a.Ask(ctx, "rooms")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, &Error{Kind: KindCanceled})
	require.NotNil(t, ans.Session)

	resumed, err := a.Resume(context.Background(), ans.Session)
	require.NoError(t, err)
	assert.Equal(t, "passed", resumed.Session.Outcome())
}

func TestAssistant_Execute(t *testing.T) {
	a, err := New(loadHouse(t), WithCollaborators(staticCollaborators(t, query.Structured{})))
	require.NoError(t, err)

	sub := a.Execute(query.Structured{Categories: []string{"Walls"}, AttributeFilters: map[string]string{"load_bearing": "true"}})
	assert.Equal(t, []string{"W1"}, sub.Nodes)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Model = houseModel
	cfg.Audit.File = filepath.Join(dir, "logging.json")
	cfg.Audit.SQLite = filepath.Join(dir, "audit.db")

	a, err := Open(context.Background(), cfg,
		WithCollaborators(staticCollaborators(t, query.Structured{Categories: []string{"stair"}})))
	require.NoError(t, err)
	defer a.Close()

	ans, err := a.Ask(context.Background(), "Where are the stairs?")
	require.NoError(t, err)
	assert.True(t, ans.Session.GaveUp)
	assert.Equal(t, workflow.DefaultMaxAttempts, ans.Session.Attempt)

	entries, err := audit.NewFileLog(cfg.Audit.File).Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "retry", entries[0].Decision)
	assert.Contains(t, entries[0].Explanation, "no elements")
}

func TestOpen_Errors(t *testing.T) {
	cfg := config.Default()
	_, err := Open(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.Model = filepath.Join(t.TempDir(), "missing.json")
	_, err = Open(context.Background(), cfg)
	assert.ErrorIs(t, err, &Error{Kind: KindValidation})

	cfg = config.Default()
	cfg.Model = houseModel
	cfg.Graph.Adjacency = "exact"
	_, err = Open(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestCollaborators_RequiresProvider(t *testing.T) {
	t.Setenv("BIMQ_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	_, err := Collaborators(config.Default(), nil)
	assert.ErrorIs(t, err, ErrNoProvider)
}

// fakeModel answers like an OpenAI-compatible endpoint, choosing a reply by
// the system prompt of each request.
func fakeModel(t *testing.T, replies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.NotEmpty(t, req.Messages) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content := `{}`
		for marker, reply := range replies {
			if strings.Contains(req.Messages[0].Content, marker) {
				content = reply
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "fake",
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpen_WithLanguageModel(t *testing.T) {
	srv := fakeModel(t, map[string]string{
		"extract structured query intent": `{"category": ["room"], "include_node_names": [], "filter": {}, "relation": "adjacent_to"}`,
		"query validation agent":          `{"decision": "pass"}`,
		"summarize a subgraph":            `{"summary_text": "Three rooms form a chain."}`,
	})

	cfg := config.Default()
	cfg.Model = houseModel
	cfg.LLM.BaseURL = srv.URL
	cfg.Audit.File = filepath.Join(t.TempDir(), "logging.json")
	cfg.Output.Visualize = true
	cfg.Output.Dir = t.TempDir()

	a, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	ans, err := a.Ask(context.Background(), "Which rooms are adjacent?")
	require.NoError(t, err)
	assert.Equal(t, "Three rooms form a chain.", ans.Summary)
	assert.Equal(t, "passed", ans.Session.Outcome())
	assert.Empty(t, ans.Session.Failures)
	assert.FileExists(t, ans.Visualization)

	require.NotNil(t, a.Tokens())
	assert.Equal(t, 45, a.Tokens().Total().TotalTokens)
	assert.Equal(t, []string{"evaluate", "generate_query", "summarize"}, a.Tokens().Slots())
}

func TestOpen_JudgeFailureFallsBackToRules(t *testing.T) {
	srv := fakeModel(t, map[string]string{
		"extract structured query intent": `{"category": ["door"], "relation": ""}`,
		"query validation agent":          `no idea`,
		"summarize a subgraph":            `{"summary_text": "One door."}`,
	})

	cfg := config.Default()
	cfg.Model = houseModel
	cfg.LLM.BaseURL = srv.URL
	cfg.Audit.File = ""

	a, err := Open(context.Background(), cfg)
	require.NoError(t, err)

	ans, err := a.Ask(context.Background(), "Show the doors")
	require.NoError(t, err)
	assert.Equal(t, "passed", ans.Session.Outcome())
	assert.Equal(t, "rules", ans.Session.Evaluator)
	assert.Contains(t, ans.Session.Explanation, "primary evaluator failed")
}
