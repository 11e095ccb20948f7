package bimq

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "ErrNoGraph", err: ErrNoGraph, want: "no building graph"},
		{name: "ErrInvalidConfig", err: ErrInvalidConfig, want: "invalid configuration"},
		{name: "ErrEmptyQuestion", err: ErrEmptyQuestion, want: "question is empty"},
		{name: "ErrNoProvider", err: ErrNoProvider, want: "no language model configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "basic error",
			err:  NewExecutionError("Assistant.Ask", errors.New("boom")),
			want: "bimq: Assistant.Ask (execution): boom",
		},
		{
			name: "error with context",
			err:  NewValidationError("bimq.Open", ErrInvalidConfig).WithContext(map[string]any{"model": "house.json"}),
			want: "bimq: bimq.Open (validation): invalid configuration [context: map[model:house.json]]",
		},
		{
			name: "no underlying error",
			err:  &Error{Op: "op", Kind: KindValidation},
			want: "bimq: op: validation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Is(t *testing.T) {
	err := NewConfigurationError("bimq.Open", fmt.Errorf("wiring: %w", ErrNoProvider))

	tests := []struct {
		name   string
		target error
		want   bool
	}{
		{name: "same kind", target: &Error{Kind: KindConfiguration}, want: true},
		{name: "same kind and op", target: &Error{Kind: KindConfiguration, Op: "bimq.Open"}, want: true},
		{name: "same kind other op", target: &Error{Kind: KindConfiguration, Op: "bimq.New"}, want: false},
		{name: "other kind", target: &Error{Kind: KindExecution}, want: false},
		{name: "wrapped sentinel", target: ErrNoProvider, want: true},
		{name: "other sentinel", target: ErrNoGraph, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(err, tt.target))
		})
	}
	assert.False(t, err.Is(nil))
}

func TestError_WithContextCopies(t *testing.T) {
	base := NewExecutionError("Assistant.Ask", errors.New("boom")).WithContext(map[string]any{"a": 1})
	derived := base.WithContext(map[string]any{"b": 2})

	assert.Equal(t, map[string]any{"a": 1}, base.Context)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, derived.Context)

	var target *Error
	assert.True(t, errors.As(fmt.Errorf("outer: %w", derived), &target))
	assert.Equal(t, KindExecution, target.Kind)
}

type failingCloser struct{ closed bool }

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("close failed")
}

func TestCloseWithLog(t *testing.T) {
	c := &failingCloser{}
	CloseWithLog(c, nil, "thing")
	assert.True(t, c.closed)
	CloseWithLog(nil, nil, "nothing")
}
