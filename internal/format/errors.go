package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadState indicates a header state word other than free or allocated.
	ErrBadState = errors.New("format: unknown region state")
)
