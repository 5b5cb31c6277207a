package parser

import "errors"

// Reasons a recognized line is rejected.
var (
	// ErrTooFewFields indicates a typed line without a value field.
	ErrTooFewFields = errors.New("rule needs at least type and value")

	// ErrUnsupportedKind indicates a rule type outside the five supported kinds.
	ErrUnsupportedKind = errors.New("unsupported rule type")

	// ErrInvalidValue indicates a value that fails its kind's validator.
	ErrInvalidValue = errors.New("invalid rule value")
)
