package bimq

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/zero-day-ai/bimq/audit"
	"github.com/zero-day-ai/bimq/config"
	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/eval"
	"github.com/zero-day-ai/bimq/graph"
	"github.com/zero-day-ai/bimq/intent"
	"github.com/zero-day-ai/bimq/llm"
	"github.com/zero-day-ai/bimq/summary"
	"github.com/zero-day-ai/bimq/workflow"
)

// Open loads cfg.Model and wires an assistant from cfg: one language model
// client per slot, the configured evaluator, every configured audit sink
// and the DOT visualizer when enabled. Options are applied after the
// configuration, so WithCollaborators replaces the language model wiring.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Assistant, error) {
	const op = "bimq.Open"
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	if cfg.Model == "" {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: model path is required", ErrInvalidConfig))
	}
	model, err := element.LoadFile(cfg.Model)
	if err != nil {
		return nil, NewValidationError(op, err).WithContext(map[string]any{"model": cfg.Model})
	}
	return OpenModel(ctx, cfg, model, opts...)
}

// OpenModel is Open for a model that is already loaded.
func OpenModel(ctx context.Context, cfg *config.Config, model *element.Model, opts ...Option) (*Assistant, error) {
	const op = "bimq.Open"
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	sinks, closers, err := openAudit(ctx, cfg.Audit)
	if err != nil {
		closeAll(closers)
		return nil, NewConfigurationError(op, err)
	}

	var tokens *llm.TokenTracker
	if o.collaborators == nil {
		tokens = llm.NewTokenTracker()
		c, err := Collaborators(cfg, tokens)
		if err != nil {
			closeAll(closers)
			return nil, NewConfigurationError(op, err)
		}
		o.collaborators = &c
	}

	base := []workflow.Option{
		workflow.WithMaxAttempts(cfg.Workflow.GetMaxAttempts()),
		workflow.WithStepTimeout(cfg.Workflow.GetStepTimeout()),
	}
	if len(sinks) > 0 {
		base = append(base, workflow.WithAudit(sinks))
	}
	o.machineOpts = append(base, o.machineOpts...)
	o.buildOpts = append([]graph.Option{graph.WithDetector(cfg.Graph.Detector())}, o.buildOpts...)

	a, err := newAssistant(model, o)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	a.tokens = tokens
	a.closers = closers
	return a, nil
}

// Collaborators builds the language model collaborators described by cfg.
// Usage is recorded in tokens when it is non-nil.
func Collaborators(cfg *config.Config, tokens *llm.TokenTracker) (workflow.Collaborators, error) {
	var c workflow.Collaborators
	if !cfg.LLM.Enabled() {
		return c, ErrNoProvider
	}

	provider := func(slot llm.Slot) (llm.Provider, llm.Config, error) {
		sc := cfg.LLM.ForSlot(slot)
		p, err := llm.NewOpenAIProvider(sc)
		if err != nil {
			return nil, sc, fmt.Errorf("%s provider: %w", slot, err)
		}
		return llm.Tracked(p, tokens, string(slot)), sc, nil
	}

	gen, genCfg, err := provider(llm.SlotGenerate)
	if err != nil {
		return c, err
	}
	if c.Resolver, err = intent.NewLLMResolver(intent.Options{Provider: gen, Temperature: genCfg.Temperature}); err != nil {
		return c, err
	}

	rep, repCfg, err := provider(llm.SlotRepair)
	if err != nil {
		return c, err
	}
	if c.Repairer, err = intent.NewLLMRepairer(intent.Options{Provider: rep, Temperature: repCfg.Temperature}); err != nil {
		return c, err
	}

	rules, err := eval.NewRuleEvaluator(cfg.Workflow.Rule)
	if err != nil {
		return c, err
	}
	c.Evaluator = rules
	if cfg.Workflow.Evaluator != config.EvaluatorRules {
		ev, evCfg, err := provider(llm.SlotEvaluate)
		if err != nil {
			return c, err
		}
		judge, err := eval.NewJudgeEvaluator(eval.JudgeOptions{Provider: ev, Temperature: evCfg.Temperature})
		if err != nil {
			return c, err
		}
		c.Evaluator = eval.Fallback{Primary: judge, Secondary: rules}
	}

	sum, sumCfg, err := provider(llm.SlotSummarize)
	if err != nil {
		return c, err
	}
	c.Summarizer = summary.LLMSummarizer{Provider: sum, Temperature: sumCfg.Temperature}

	if cfg.Output.Visualize {
		c.Visualizer = summary.DOTVisualizer{Dir: cfg.Output.Dir}
	}
	return c, nil
}

// openAudit opens every configured sink. The returned closers must be
// closed even when err is non-nil.
func openAudit(ctx context.Context, cfg config.AuditConfig) (audit.Multi, []io.Closer, error) {
	var sinks audit.Multi
	var closers []io.Closer

	if cfg.File != "" {
		sinks = append(sinks, audit.NewFileLog(filepath.Clean(cfg.File)))
	}
	if cfg.RedisURL != "" {
		rs, err := audit.NewRedisSink(audit.RedisOptions{URL: cfg.RedisURL, Key: cfg.RedisKey, MaxLen: cfg.RedisMaxLen})
		if err != nil {
			return nil, closers, fmt.Errorf("audit redis: %w", err)
		}
		sinks = append(sinks, rs)
		closers = append(closers, rs)
	}
	if cfg.SQLite != "" {
		ss, err := audit.OpenSQLite(cfg.SQLite)
		if err != nil {
			return nil, closers, fmt.Errorf("audit sqlite: %w", err)
		}
		sinks = append(sinks, ss)
		closers = append(closers, ss)
	}
	if err := ctx.Err(); err != nil {
		return nil, closers, err
	}
	return sinks, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		CloseWithLog(c, nil, "audit sink")
	}
}
