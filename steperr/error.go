package steperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of collaborator failure kinds.
type Kind string

const (
	// KindMalformed indicates the collaborator answered but its output could
	// not be parsed into the expected shape.
	KindMalformed Kind = "malformed_output"

	// KindTimeout indicates the per-step deadline expired.
	KindTimeout Kind = "timeout"

	// KindUpstream indicates the collaborator or its transport failed.
	KindUpstream Kind = "upstream_error"

	// KindCanceled indicates the caller canceled the session.
	KindCanceled Kind = "canceled"
)

// Kinds returns every kind.
func Kinds() []Kind {
	return []Kind{KindMalformed, KindTimeout, KindUpstream, KindCanceled}
}

// Retryable reports whether a fresh attempt of the same step may succeed.
// Cancellation is final; the other kinds are worth another try.
func Retryable(k Kind) bool {
	return k != KindCanceled
}

// ErrMalformed marks parse and shape failures. Collaborators wrap it so
// Classify maps the failure to KindMalformed.
var ErrMalformed = errors.New("malformed collaborator output")

// Error is a failure of one workflow step.
type Error struct {
	// Step names the collaborator call ("generate_query", "evaluate", ...).
	Step string `json:"step"`

	// Kind classifies the failure.
	Kind Kind `json:"kind"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Cause is the underlying error.
	Cause error `json:"-"`
}

// New creates a step error.
func New(step string, kind Kind, message string) *Error {
	return &Error{Step: step, Kind: kind, Message: message}
}

// Malformed creates a KindMalformed error wrapping ErrMalformed.
func Malformed(step, message string) *Error {
	return New(step, KindMalformed, message).WithCause(ErrMalformed)
}

// WithCause sets the underlying error and returns e for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// Error formats the error as "step [kind]: message: cause".
func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("%s [%s]", e.Step, e.Kind)}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same Kind, and the same Step when the
// target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Step != "" && t.Step != e.Step {
		return false
	}
	return e.Kind == t.Kind
}
