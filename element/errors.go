package element

import "errors"

// Sentinel errors for element loading and validation.
var (
	// ErrUnknownCategory indicates a collection key that maps to no category.
	ErrUnknownCategory = errors.New("unknown element category")

	// ErrDuplicateID indicates two elements share a global id.
	ErrDuplicateID = errors.New("duplicate element id")

	// ErrMissingID indicates an element record without a global id.
	ErrMissingID = errors.New("element id is required")

	// ErrInvalidBox indicates a bounding box that cannot be used for
	// adjacency testing.
	ErrInvalidBox = errors.New("invalid bounding box")

	// ErrMissingBox indicates an element record without a bounding box.
	ErrMissingBox = errors.New("missing bounding box")

	// ErrUnsupportedValue indicates a property value outside the closed set
	// of boolean, number and string.
	ErrUnsupportedValue = errors.New("unsupported property value")
)
