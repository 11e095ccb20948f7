package query

import "errors"

// ErrMalformedQuery indicates a structured query document that could not be
// decoded.
var ErrMalformedQuery = errors.New("malformed structured query")
