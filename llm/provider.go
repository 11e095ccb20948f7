package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Provider produces chat completions.
type Provider interface {
	Complete(ctx context.Context, messages []Message, opts ...CompletionOption) (*CompletionResponse, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, messages []Message, opts ...CompletionOption) (*CompletionResponse, error)

// Complete calls f.
func (f ProviderFunc) Complete(ctx context.Context, messages []Message, opts ...CompletionOption) (*CompletionResponse, error) {
	return f(ctx, messages, opts...)
}

// Sentinel errors for provider responses.
var (
	// ErrNoChoices indicates a response without any completion choice.
	ErrNoChoices = errors.New("llm: empty response")

	// ErrNoJSON indicates content that holds no JSON object.
	ErrNoJSON = errors.New("llm: no JSON object in response")

	// ErrNoAPIKey indicates a provider configured without credentials.
	ErrNoAPIKey = errors.New("llm: api key not configured")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm api error (status %d): %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status suggests a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// Scripted is a Provider that replays canned responses in order. After the
// script is exhausted the last entry repeats. It is intended for tests and
// offline demos.
type Scripted struct {
	Responses []string
	Err       error
	Requests  [][]Message

	mu    sync.Mutex
	calls int
}

// Complete returns the next scripted response.
func (s *Scripted) Complete(ctx context.Context, messages []Message, opts ...CompletionOption) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, append([]Message(nil), messages...))
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Responses) == 0 {
		return nil, ErrNoChoices
	}
	i := s.calls
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	}
	s.calls++
	return &CompletionResponse{Content: s.Responses[i], FinishReason: "stop"}, nil
}

// Calls returns how many requests were served.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
