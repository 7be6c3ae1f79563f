package dense

import (
	"errors"
	"fmt"
)

// Sentinel errors for view and buffer operations. All fallible operations
// wrap one of these; callers test with errors.Is.
var (
	// ErrShape indicates incompatible dimensions for the requested operation.
	ErrShape = errors.New("dense: shape mismatch")

	// ErrIndex indicates an out-of-range element access.
	ErrIndex = errors.New("dense: index out of range")

	// ErrLayout indicates a reshape or view request incompatible with the
	// current stride/contiguity of the source.
	ErrLayout = errors.New("dense: non-contiguous layout")

	// ErrPrecision indicates mixed 32/64-bit operands on an untyped boundary.
	ErrPrecision = errors.New("dense: mixed precision")

	// ErrBackend indicates a failure reported by the numeric backend.
	ErrBackend = errors.New("dense: backend failure")
)

// IndexError carries the offending indices of an out-of-range access.
// Element accessors panic with *IndexError; errors.Is(err, ErrIndex) holds.
type IndexError struct {
	I, J       int
	Rows, Cols int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("dense: index (%d,%d) out of range for %dx%d", e.I, e.J, e.Rows, e.Cols)
}

func (e *IndexError) Unwrap() error { return ErrIndex }
