package step

import "errors"

var (
	// ErrSyntax is returned when the input is not a well-formed exchange structure.
	ErrSyntax = errors.New("step: syntax error")

	// ErrComplexInstance is returned for complex (multi-leaf) entity instances.
	ErrComplexInstance = errors.New("step: complex entity instances are not supported")

	// ErrUnencodable is returned when a value has no clear text encoding (NaN, Inf).
	ErrUnencodable = errors.New("step: value cannot be encoded")

	// ErrWriterClosed is returned by writes after Close.
	ErrWriterClosed = errors.New("step: writer closed")
)
