package steperr

import (
	"context"
	"encoding/json"
	"errors"
	"net"
)

// Classify converts any error into a step error. A *Error already in the
// chain is returned with its step filled in when missing. Otherwise:
// context.DeadlineExceeded and network timeouts become KindTimeout,
// context.Canceled becomes KindCanceled, ErrMalformed and JSON decoding
// failures become KindMalformed, and anything else is KindUpstream.
// Classify returns nil for a nil error.
func Classify(step string, err error) *Error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		if se.Step == "" {
			cp := *se
			cp.Step = step
			return &cp
		}
		return se
	}

	return New(step, kindOf(err), err.Error()).WithCause(err)
}

// KindOf returns the kind Classify would assign to err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return kindOf(err)
}

func kindOf(err error) Kind {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		netErr    net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, ErrMalformed),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return KindMalformed
	default:
		return KindUpstream
	}
}
