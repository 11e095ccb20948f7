// Package config loads the bimq YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/bimq/export"
	"github.com/zero-day-ai/bimq/geometry"
	"github.com/zero-day-ai/bimq/llm"
	"github.com/zero-day-ai/bimq/workflow"
)

// Defaults.
const (
	DefaultAuditFile   = "logging.json"
	DefaultOutputDir   = "out"
	DefaultStepTimeout = 60 * time.Second
	DefaultMCPAddr     = "localhost:8090"
	DefaultFileName    = "bimq.yaml"
)

// Evaluator kinds.
const (
	EvaluatorLLM   = "llm"
	EvaluatorRules = "rules"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root of bimq.yaml.
type Config struct {
	// Model is the path to the building model JSON file.
	Model string `yaml:"model"`

	LLM      llm.Config         `yaml:"llm"`
	Workflow WorkflowConfig     `yaml:"workflow"`
	Graph    GraphConfig        `yaml:"graph"`
	Audit    AuditConfig        `yaml:"audit"`
	Output   OutputConfig       `yaml:"output"`
	Neo4j    export.Neo4jConfig `yaml:"neo4j"`
	Log      LogConfig          `yaml:"log"`
	Metrics  MetricsConfig      `yaml:"metrics"`
	MCP      MCPConfig          `yaml:"mcp"`
}

// WorkflowConfig tunes the state machine.
type WorkflowConfig struct {
	// MaxAttempts is the repair budget. nil means workflow.DefaultMaxAttempts;
	// an explicit 0 disables repair.
	MaxAttempts *int `yaml:"max_attempts,omitempty"`

	// StepTimeout bounds each collaborator call.
	// Format: Go duration string (e.g., "60s")
	// Default: 60s
	StepTimeout string `yaml:"step_timeout,omitempty"`

	// Evaluator is "llm" or "rules". With "llm" the rule evaluator is
	// still used when the model call fails.
	Evaluator string `yaml:"evaluator,omitempty"`

	// Rule is the CEL acceptance rule used by the rules evaluator. Empty
	// means eval.DefaultRule.
	Rule string `yaml:"rule,omitempty"`
}

// GetMaxAttempts returns the repair budget.
func (w WorkflowConfig) GetMaxAttempts() int {
	if w.MaxAttempts == nil || *w.MaxAttempts < 0 {
		return workflow.DefaultMaxAttempts
	}
	return *w.MaxAttempts
}

// GetStepTimeout parses the step timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w WorkflowConfig) GetStepTimeout() time.Duration {
	if w.StepTimeout == "" {
		return DefaultStepTimeout
	}
	d, err := time.ParseDuration(w.StepTimeout)
	if err != nil || d < 0 {
		return DefaultStepTimeout
	}
	return d
}

// GraphConfig tunes graph construction.
type GraphConfig struct {
	// Tolerance is the per-axis slack for adjacency. Zero means
	// geometry.DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Adjacency is "touch" (default) or "overlap".
	Adjacency string `yaml:"adjacency,omitempty"`
}

// Detector returns the configured adjacency detector. Call Validate first;
// an unknown mode falls back to touch.
func (g GraphConfig) Detector() geometry.BoxDetector {
	mode, err := geometry.ParseMode(g.Adjacency)
	if err != nil {
		mode = geometry.ModeTouch
	}
	return geometry.NewBoxDetector(g.Tolerance).WithMode(mode)
}

// AuditConfig selects the audit sinks. Every non-empty destination is
// written.
type AuditConfig struct {
	File        string `yaml:"file,omitempty"`
	RedisURL    string `yaml:"redis_url,omitempty"`
	RedisKey    string `yaml:"redis_key,omitempty"`
	RedisMaxLen int64  `yaml:"redis_max_len,omitempty"`
	SQLite      string `yaml:"sqlite,omitempty"`
}

// OutputConfig controls rendered artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir,omitempty"`

	// Visualize writes a DOT file per answer.
	Visualize bool `yaml:"visualize"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// SlogLevel returns the parsed level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `yaml:"addr,omitempty"`
}

// MCPConfig controls the MCP server.
type MCPConfig struct {
	// Transport is "stdio" (default) or "http".
	Transport string `yaml:"transport,omitempty"`
	Addr      string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LLM: llm.DefaultConfig(),
		Workflow: WorkflowConfig{
			StepTimeout: DefaultStepTimeout.String(),
			Evaluator:   EvaluatorLLM,
		},
		Graph: GraphConfig{
			Tolerance: geometry.DefaultTolerance,
			Adjacency: string(geometry.ModeTouch),
		},
		Audit:  AuditConfig{File: DefaultAuditFile},
		Output: OutputConfig{Dir: DefaultOutputDir},
		Log:    LogConfig{Level: "info", Format: "text"},
		MCP:    MCPConfig{Transport: "stdio", Addr: DefaultMCPAddr},
	}
}

// Load reads path over the defaults. If path is a directory, bimq.yaml (or
// bimq.yml) inside it is used. Environment overrides are applied after the
// file.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range []string{DefaultFileName, "bimq.yml"} {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no %s found in %s", DefaultFileName, path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from BIMQ_MODEL, BIMQ_LLM_BASE_URL,
// BIMQ_LLM_MODEL and BIMQ_LOG_LEVEL. API keys are resolved by the llm
// package at connect time.
func (c *Config) ApplyEnv() {
	set := func(dst *string, name string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	set(&c.Model, "BIMQ_MODEL")
	set(&c.LLM.BaseURL, "BIMQ_LLM_BASE_URL")
	set(&c.LLM.Model, "BIMQ_LLM_MODEL")
	set(&c.Log.Level, "BIMQ_LOG_LEVEL")
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Workflow.MaxAttempts != nil && *c.Workflow.MaxAttempts < 0 {
		add("workflow.max_attempts must not be negative")
	}
	if c.Workflow.StepTimeout != "" {
		if d, err := time.ParseDuration(c.Workflow.StepTimeout); err != nil || d < 0 {
			add("workflow.step_timeout %q is not a duration", c.Workflow.StepTimeout)
		}
	}
	switch c.Workflow.Evaluator {
	case "", EvaluatorLLM, EvaluatorRules:
	default:
		add("workflow.evaluator must be %q or %q, got %q", EvaluatorLLM, EvaluatorRules, c.Workflow.Evaluator)
	}
	if c.Graph.Tolerance < 0 {
		add("graph.tolerance must not be negative")
	}
	if _, err := geometry.ParseMode(c.Graph.Adjacency); err != nil {
		add("graph.adjacency: %v", err)
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			add("llm.timeout %q is not a duration", c.LLM.Timeout)
		}
	}
	if err := c.LLM.ValidateSlots(); err != nil {
		add("llm.slots: %v", err)
	}
	if c.Audit.RedisMaxLen < 0 {
		add("audit.redis_max_len must not be negative")
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); c.Log.Level != "" && err != nil {
		add("log.level %q is unknown", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		add("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.MCP.Transport {
	case "", "stdio", "http":
	default:
		add("mcp.transport must be stdio or http, got %q", c.MCP.Transport)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
