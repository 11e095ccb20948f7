package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zero-day-ai/bimq/llm"
	"github.com/zero-day-ai/bimq/steperr"
)

// JudgeOptions configures a JudgeEvaluator.
type JudgeOptions struct {
	// Provider is the LLM to use for judging (required).
	Provider llm.Provider

	// SystemPrompt is an optional custom system prompt.
	// If empty, a default prompt instructing JSON output is used.
	SystemPrompt string

	// MaxRetries is the number of re-prompts on JSON parse failures (default: 2).
	MaxRetries int

	// Temperature controls randomness in judgments (default: 0.0).
	Temperature float64
}

// JudgeEvaluator evaluates results with an LLM as a judge.
type JudgeEvaluator struct {
	provider     llm.Provider
	systemPrompt string
	maxRetries   int
	temperature  float64
}

// judgeResponse is the JSON the judge is asked for.
type judgeResponse struct {
	Decision         string `json:"decision"`
	ErrorExplanation string `json:"error_explanation"`
	Explanation      string `json:"explanation"`
}

// ErrJudgeProvider is returned by NewJudgeEvaluator without a provider.
var ErrJudgeProvider = errors.New("eval: JudgeOptions.Provider is required")

// NewJudgeEvaluator creates a judge. Returns an error if Provider is nil.
func NewJudgeEvaluator(opts JudgeOptions) (*JudgeEvaluator, error) {
	if opts.Provider == nil {
		return nil, ErrJudgeProvider
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultJudgePrompt
	}

	return &JudgeEvaluator{
		provider:     opts.Provider,
		systemPrompt: systemPrompt,
		maxRetries:   maxRetries,
		temperature:  opts.Temperature,
	}, nil
}

const defaultJudgePrompt = `You are a BIM query validation agent. Your job is to evaluate whether the graph query result correctly answers the user's original prompt.

Consider:
- Is the result empty?
- Does the generated query reflect the user's true intent?
- Do the node/edge types and filters seem appropriate?

You must respond with valid JSON in the following format:
{"decision": "pass" or "retry", "error_explanation": "<if retry, why the result is wrong>"}`

// Name identifies the evaluator in verdicts and audit entries.
func (j *JudgeEvaluator) Name() string {
	return "llm_judge"
}

// Evaluate implements Evaluator.
func (j *JudgeEvaluator) Evaluate(ctx context.Context, req Request) (Verdict, error) {
	messages := []llm.Message{
		llm.SystemMessage(j.systemPrompt),
		llm.UserMessage(buildJudgePrompt(req)),
	}

	var lastErr error
	for attempt := 0; attempt <= j.maxRetries; attempt++ {
		resp, err := j.provider.Complete(ctx, messages,
			llm.WithTemperature(j.temperature), llm.WithJSONMode())
		if err != nil {
			return Verdict{}, steperr.Classify(string(llm.SlotEvaluate), err)
		}

		verdict, err := parseJudgeResponse(resp.Content)
		if err == nil {
			verdict.Evaluator = j.Name()
			return verdict, nil
		}
		lastErr = fmt.Errorf("parse judge response (attempt %d/%d): %w", attempt+1, j.maxRetries+1, err)

		if attempt < j.maxRetries {
			messages = append(messages,
				llm.AssistantMessage(resp.Content),
				llm.UserMessage(fmt.Sprintf("Invalid JSON format. Error: %v\nPlease respond with valid JSON: {\"decision\": \"pass\" or \"retry\", \"error_explanation\": \"<explanation>\"}", err)),
			)
		}
	}

	return Verdict{}, steperr.New(string(llm.SlotEvaluate), steperr.KindMalformed,
		fmt.Sprintf("judge failed after %d attempts", j.maxRetries+1)).
		WithCause(fmt.Errorf("%w: %w", steperr.ErrMalformed, lastErr))
}

func buildJudgePrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("User's original query:\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n\nStructured graph query:\n")
	sb.WriteString(req.Query.String())
	sb.WriteString("\n\nQuery result summary:\n")
	sb.WriteString(req.Stats.String())
	if line := countsLine(req.Stats.ByCategory); line != "" {
		sb.WriteString("\nNodes by category: ")
		sb.WriteString(line)
	}
	if line := countsLine(req.Stats.ByRelation); line != "" {
		sb.WriteString("\nEdges by relation: ")
		sb.WriteString(line)
	}
	sb.WriteString("\n\nRespond with valid JSON: {\"decision\": \"pass\" or \"retry\", \"error_explanation\": \"<explanation>\"}")

	return sb.String()
}

func countsLine(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func parseJudgeResponse(content string) (Verdict, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return Verdict{}, err
	}

	var r judgeResponse
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Verdict{}, err
	}
	if strings.TrimSpace(r.Decision) == "" {
		return Verdict{}, errors.New(`missing "decision"`)
	}

	explanation := r.ErrorExplanation
	if explanation == "" {
		explanation = r.Explanation
	}
	return Verdict{Decision: ParseDecision(r.Decision), Explanation: strings.TrimSpace(explanation)}, nil
}
