package llm

import (
	"os"
	"strings"
	"time"
)

// Default provider settings. Temperature 0 keeps query generation as
// deterministic as the provider allows.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 60 * time.Second
)

// apiKeyEnv lists the environment variables consulted for an API key, in
// order.
var apiKeyEnv = []string{"BIMQ_LLM_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"}

// Config configures an OpenAI-compatible provider.
type Config struct {
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	APIKey      string  `yaml:"api_key" json:"-"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`

	// Timeout is a duration string such as "60s". Empty or invalid values
	// use DefaultTimeout.
	Timeout string `yaml:"timeout" json:"timeout"`

	// Slots holds per-collaborator overrides keyed by slot name.
	Slots map[string]SlotOverride `yaml:"slots" json:"slots,omitempty"`
}

// DefaultConfig returns the default provider settings without an API key.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Model:   DefaultModel,
		Timeout: DefaultTimeout.String(),
	}
}

// GetTimeout parses Timeout, falling back to DefaultTimeout.
func (c Config) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// ResolveAPIKey returns the configured key, or the first non-empty key from
// the environment.
func (c Config) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	for _, name := range apiKeyEnv {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// Enabled reports whether a provider can be built from c.
func (c Config) Enabled() bool {
	return c.ResolveAPIKey() != "" || isLocal(c.BaseURL)
}

// isLocal reports whether base points at a local endpoint that typically
// needs no key (Ollama, vLLM, LocalAI).
func isLocal(base string) bool {
	return strings.Contains(base, "://localhost") || strings.Contains(base, "://127.0.0.1")
}
