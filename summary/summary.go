package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zero-day-ai/bimq/llm"
	"github.com/zero-day-ai/bimq/query"
	"github.com/zero-day-ai/bimq/steperr"
)

// FallbackText replaces the summary when summarization fails.
const FallbackText = "Failed to summarize result."

// Request is the summarizer input.
type Request struct {
	// Text is the user's question.
	Text string `json:"text"`

	// Stats counts the result.
	Stats query.Stats `json:"stats"`

	// Components is the number of connected groups among the result edges.
	// Zero means unknown.
	Components int `json:"components,omitempty"`

	// GaveUp reports that the evaluator never accepted a result.
	GaveUp bool `json:"gave_up,omitempty"`
}

// Summarizer renders a result as prose.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, req Request) (string, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// LLMSummarizer asks a model for a short summary.
type LLMSummarizer struct {
	Provider    llm.Provider
	Temperature float64
}

const summarizePrompt = `You are a BIM graph assistant. Your job is to summarize a subgraph extracted from a building model.

Summarize the result using natural language. Mention:
- How many nodes were found
- What types of nodes and how many of each
- How many edges and their types
- Keep it short and useful (1-3 sentences max)

Respond with valid JSON: {"summary_text": "<summary>"}`

type summaryResponse struct {
	SummaryText string `json:"summary_text"`
}

// Summarize implements Summarizer. A reply without JSON is accepted as
// plain text when it is not empty.
func (s LLMSummarizer) Summarize(ctx context.Context, req Request) (string, error) {
	if s.Provider == nil {
		return "", errors.New("summary: no provider")
	}

	nodes, _ := json.Marshal(nonNil(req.Stats.ByCategory))
	edges, _ := json.Marshal(nonNil(req.Stats.ByRelation))

	var sb strings.Builder
	sb.WriteString("User question:\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n\nNode type counts:\n")
	sb.Write(nodes)
	sb.WriteString("\n\nEdge type counts:\n")
	sb.Write(edges)
	if req.GaveUp {
		sb.WriteString("\n\nNote: the query could not be validated; say that the answer may be incomplete.")
	}

	resp, err := s.Provider.Complete(ctx,
		[]llm.Message{llm.SystemMessage(summarizePrompt), llm.UserMessage(sb.String())},
		llm.WithTemperature(s.Temperature), llm.WithJSONMode())
	if err != nil {
		return "", steperr.Classify(string(llm.SlotSummarize), err)
	}

	raw, err := llm.ExtractJSON(resp.Content)
	if err != nil {
		if text := strings.TrimSpace(resp.Content); text != "" {
			return text, nil
		}
		return "", steperr.Malformed(string(llm.SlotSummarize), "empty summary")
	}
	var out summaryResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", steperr.Classify(string(llm.SlotSummarize), err)
	}
	text := strings.TrimSpace(out.SummaryText)
	if text == "" {
		return "", steperr.Malformed(string(llm.SlotSummarize), `missing "summary_text"`)
	}
	return text, nil
}

// TemplateSummarizer builds the summary from counts alone.
type TemplateSummarizer struct{}

// Summarize implements Summarizer.
func (TemplateSummarizer) Summarize(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	st := req.Stats
	var sentences []string
	if st.Nodes == 0 {
		sentences = append(sentences, "No matching elements were found.")
	} else {
		s := fmt.Sprintf("Found %s", plural(st.Nodes, "element"))
		if breakdown := counts(st.ByCategory); breakdown != "" {
			s += " (" + breakdown + ")"
		}
		sentences = append(sentences, s+".")

		switch {
		case st.Edges > 0:
			s := fmt.Sprintf("They are linked by %s", plural(st.Edges, "edge"))
			if breakdown := counts(st.ByRelation); breakdown != "" {
				s += " (" + breakdown + ")"
			}
			if req.Components > 0 {
				s += fmt.Sprintf(", forming %s", plural(req.Components, "connected group"))
			}
			sentences = append(sentences, s+".")
		case st.Nodes > 1:
			sentences = append(sentences, "No relations connect them.")
		}
	}
	if req.GaveUp {
		sentences = append(sentences, "Low confidence: the query could not be validated after repeated attempts.")
	}
	return strings.Join(sentences, " "), nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func counts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d %s", m[k], k)
	}
	return strings.Join(parts, ", ")
}

func nonNil(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
