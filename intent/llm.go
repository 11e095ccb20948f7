package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/llm"
	"github.com/zero-day-ai/bimq/query"
	"github.com/zero-day-ai/bimq/steperr"
)

// DefaultMaxRetries is the number of corrective re-prompts after a
// malformed answer.
const DefaultMaxRetries = 2

// ErrNoProvider is returned when an LLM-backed collaborator is built without
// a provider.
var ErrNoProvider = errors.New("intent: provider is required")

// Options configures LLMResolver and LLMRepairer.
type Options struct {
	// Provider is the model to prompt (required).
	Provider llm.Provider

	// SystemPrompt replaces the built-in instructions when set.
	SystemPrompt string

	// MaxRetries is the number of re-prompts when the answer cannot be
	// parsed (default: DefaultMaxRetries).
	MaxRetries int

	// Temperature for every request (default 0).
	Temperature float64

	// Strict treats schema warnings (unknown category, relation or
	// attribute) as malformed output and re-prompts.
	Strict bool
}

func (o Options) withDefaults(system string) (Options, error) {
	if o.Provider == nil {
		return o, ErrNoProvider
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = system
	}
	return o, nil
}

// LLMResolver resolves questions by prompting a model.
type LLMResolver struct {
	opts Options
}

// NewLLMResolver creates a resolver. Returns ErrNoProvider if opts.Provider
// is nil.
func NewLLMResolver(opts Options) (*LLMResolver, error) {
	o, err := opts.withDefaults(resolveSystemPrompt)
	if err != nil {
		return nil, err
	}
	return &LLMResolver{opts: o}, nil
}

// Resolve implements Resolver. Failures are *steperr.Error values for the
// generate_query step.
func (r *LLMResolver) Resolve(ctx context.Context, text string, schema graph.Schema) (query.Structured, error) {
	var sb strings.Builder
	sb.WriteString("Available schema: ")
	sb.WriteString(schemaJSON(schema))
	sb.WriteString("\n\nUser prompt:\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(resolveFormat)

	return ask(ctx, r.opts, string(llm.SlotGenerate), schema, sb.String())
}

// LLMRepairer repairs rejected queries by prompting a model.
type LLMRepairer struct {
	opts Options
}

// NewLLMRepairer creates a repairer. Returns ErrNoProvider if opts.Provider
// is nil.
func NewLLMRepairer(opts Options) (*LLMRepairer, error) {
	o, err := opts.withDefaults(repairSystemPrompt)
	if err != nil {
		return nil, err
	}
	return &LLMRepairer{opts: o}, nil
}

// Repair implements Repairer. Failures are *steperr.Error values for the
// repair step.
func (r *LLMRepairer) Repair(ctx context.Context, req RepairRequest) (query.Structured, error) {
	var sb strings.Builder
	sb.WriteString("Original user prompt:\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n\nPrevious generated query:\n")
	sb.WriteString(req.Previous.String())
	sb.WriteString("\n\nExplanation of failure:\n")
	if req.Explanation == "" {
		sb.WriteString("(none given)")
	} else {
		sb.WriteString(req.Explanation)
	}
	sb.WriteString("\n\nAvailable schema: ")
	sb.WriteString(schemaJSON(req.Schema))
	sb.WriteString("\n\n")
	sb.WriteString(repairFormat)

	return ask(ctx, r.opts, string(llm.SlotRepair), req.Schema, sb.String())
}

// ask runs the prompt and decodes the answer, feeding parse errors back to
// the model up to opts.MaxRetries times. Transport errors are not retried.
func ask(ctx context.Context, opts Options, step string, schema graph.Schema, prompt string) (query.Structured, error) {
	messages := []llm.Message{
		llm.SystemMessage(opts.SystemPrompt),
		llm.UserMessage(prompt),
	}

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		resp, err := opts.Provider.Complete(ctx, messages,
			llm.WithTemperature(opts.Temperature), llm.WithJSONMode())
		if err != nil {
			return query.Structured{}, steperr.Classify(step, err)
		}

		q, err := decode(resp.Content, schema, opts.Strict)
		if err == nil {
			return q, nil
		}
		lastErr = err

		if attempt < opts.MaxRetries {
			messages = append(messages,
				llm.AssistantMessage(resp.Content),
				llm.UserMessage(fmt.Sprintf("Invalid answer. Error: %v\n%s", err, retryReminder)),
			)
		}
	}

	msg := fmt.Sprintf("no usable query after %d attempts", opts.MaxRetries+1)
	return query.Structured{}, steperr.New(step, steperr.KindMalformed, msg).
		WithCause(fmt.Errorf("%w: %w", steperr.ErrMalformed, lastErr))
}

func decode(content string, schema graph.Schema, strict bool) (query.Structured, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return query.Structured{}, err
	}
	q, err := query.Parse([]byte(raw))
	if err != nil {
		return query.Structured{}, err
	}
	q = q.Normalize()
	if strict {
		if warnings := q.Validate(schema); len(warnings) > 0 {
			return query.Structured{}, fmt.Errorf("%w: %s", query.ErrMalformedQuery, strings.Join(warnings, "; "))
		}
	}
	return q, nil
}

// schemaJSON renders the schema shown to the model.
func schemaJSON(s graph.Schema) string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}
