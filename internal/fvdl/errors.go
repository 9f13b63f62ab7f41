package fvdl

import "errors"

var (
	// ErrMalformedDocument is returned when the input is not well-formed XML.
	ErrMalformedDocument = errors.New("malformed findings document")

	// ErrMissingField is returned when a Vulnerability element lacks one of
	// the values a Finding is built from.
	ErrMissingField = errors.New("vulnerability is missing a required field")
)
