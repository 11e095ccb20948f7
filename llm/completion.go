package llm

// CompletionRequest is a request for a chat completion.
type CompletionRequest struct {
	// Messages contains the conversation.
	Messages []Message

	// Temperature controls randomness (0.0 to 2.0). Nil leaves the
	// provider default in place.
	Temperature *float64

	// MaxTokens limits the number of generated tokens.
	MaxTokens *int

	// Stop contains sequences that end generation.
	Stop []string

	// JSONMode asks the provider for a JSON object response when it
	// supports response_format.
	JSONMode bool
}

// CompletionResponse is the model's answer.
type CompletionResponse struct {
	// Content is the generated text.
	Content string

	// FinishReason indicates why generation stopped ("stop", "length", ...).
	FinishReason string

	// Model is the model that actually served the request.
	Model string

	// Usage contains token counts.
	Usage TokenUsage
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add combines two usages.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// CompletionOption configures a CompletionRequest.
type CompletionOption func(*CompletionRequest)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CompletionOption {
	return func(r *CompletionRequest) {
		r.Temperature = &t
	}
}

// WithMaxTokens sets the generation limit.
func WithMaxTokens(n int) CompletionOption {
	return func(r *CompletionRequest) {
		r.MaxTokens = &n
	}
}

// WithStopSequences sets the stop sequences.
func WithStopSequences(stops ...string) CompletionOption {
	return func(r *CompletionRequest) {
		r.Stop = stops
	}
}

// WithJSONMode requests a JSON object response.
func WithJSONMode() CompletionOption {
	return func(r *CompletionRequest) {
		r.JSONMode = true
	}
}

// NewCompletionRequest creates a request from messages and options.
func NewCompletionRequest(messages []Message, opts ...CompletionOption) *CompletionRequest {
	req := &CompletionRequest{Messages: messages}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// IsComplete reports whether generation finished normally.
func (r *CompletionResponse) IsComplete() bool {
	return r.FinishReason == "" || r.FinishReason == "stop"
}
