package bimq

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Sentinel errors for common failure conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrNoGraph indicates the assistant was created without a model.
	ErrNoGraph = errors.New("no building graph")

	// ErrInvalidConfig indicates the provided configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyQuestion indicates Ask was called with blank text.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrNoProvider indicates no language model endpoint is configured.
	ErrNoProvider = errors.New("no language model configured")
)

// Error kinds categorize errors by their type.
const (
	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindExecution represents errors that occur while answering.
	KindExecution = "execution"

	// KindCanceled represents sessions abandoned because the caller's
	// context ended.
	KindCanceled = "canceled"
)

// Error is a structured error that wraps underlying errors with the
// operation that failed and the category of error.
//
// Example usage:
//
//	err := &Error{
//		Op:   "Assistant.Ask",
//		Kind: KindValidation,
//		Err:  ErrEmptyQuestion,
//	}
type Error struct {
	// Op is the operation that failed (e.g., "bimq.New", "Assistant.Ask").
	Op string

	// Kind categorizes the error (e.g., KindValidation).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bimq: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("bimq: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("bimq: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a target *Error by Kind (and Op when the target sets one),
// and otherwise delegates to the underlying error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*Error); ok && t.Kind != "" && e.Kind == t.Kind {
		if t.Op == "" || e.Op == t.Op {
			return true
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of e with ctx merged into its context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	newErr.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		newErr.Context[k] = v
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewValidationError creates an Error with KindValidation.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewConfigurationError creates an Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// NewExecutionError creates an Error with KindExecution.
func NewExecutionError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindExecution, Err: err}
}

// CloseWithLog closes closer and logs any error at warning level. If
// logger is nil, slog.Default() is used.
//
//	defer bimq.CloseWithLog(sink, logger, "audit sink")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
