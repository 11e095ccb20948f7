package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/bimq/query"
)

// Entry is one evaluation record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`

	// Query is the user's question.
	Query string `json:"query"`

	// Structured is the query that was evaluated.
	Structured query.Structured `json:"generated_query"`

	Attempt     int    `json:"attempt"`
	Decision    string `json:"decision"`
	Explanation string `json:"error_explanation"`
	Evaluator   string `json:"evaluator,omitempty"`
}

// Stamped returns e with a fresh ID and the current UTC time filled in
// where they are empty.
func (e Entry) Stamped() Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}

// Sink stores entries.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Entry) error

// Append calls f.
func (f SinkFunc) Append(ctx context.Context, e Entry) error {
	return f(ctx, e)
}

// Discard drops every entry.
var Discard Sink = SinkFunc(func(context.Context, Entry) error { return nil })

// Multi appends to every sink, in order, and joins their errors. A failing
// sink does not stop the others.
type Multi []Sink

// Append implements Sink.
func (m Multi) Append(ctx context.Context, e Entry) error {
	e = e.Stamped()
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
