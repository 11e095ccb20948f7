package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the subset of the response body that is used.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIProvider talks to any OpenAI-compatible /chat/completions endpoint:
// OpenAI, OpenRouter, Ollama, vLLM and LocalAI.
type OpenAIProvider struct {
	cfg        Config
	apiKey     string
	httpClient *http.Client
}

// ProviderOption configures an OpenAIProvider.
type ProviderOption func(*OpenAIProvider)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *OpenAIProvider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// NewOpenAIProvider creates a provider. It fails when no API key is
// configured for a remote endpoint.
func NewOpenAIProvider(cfg Config, opts ...ProviderOption) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if !cfg.Enabled() {
		return nil, ErrNoAPIKey
	}

	p := &OpenAIProvider{
		cfg:        cfg,
		apiKey:     cfg.ResolveAPIKey(),
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.cfg.Model
}

// Complete sends a blocking completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts ...CompletionOption) (*CompletionResponse, error) {
	req := NewCompletionRequest(messages, opts...)

	body := chatRequest{
		Model:       p.cfg.Model,
		Messages:    req.Messages,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		Stop:        req.Stop,
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		body.MaxTokens = *req.MaxTokens
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm connection failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("provider error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &CompletionResponse{
		Content:      chat.Choices[0].Message.Content,
		FinishReason: chat.Choices[0].FinishReason,
		Model:        chat.Model,
		Usage: TokenUsage{
			InputTokens:  chat.Usage.PromptTokens,
			OutputTokens: chat.Usage.CompletionTokens,
			TotalTokens:  chat.Usage.TotalTokens,
		},
	}, nil
}
