// Package dense provides typed, precision-aware vector and matrix values
// over a shared numeric buffer. Structural transforms (transpose, reshape,
// slicing) are zero-copy views; the heavy numeric work is delegated to a
// kernel backend, see the kernel package.
package dense

// Float is the closed set of element types a view can carry. Mixing the two
// widths inside one operation is a compile error; crossing between them goes
// through the explicit To32/To64 conversions.
type Float interface {
	float32 | float64
}

// Order is the memory layout convention of a view.
type Order int

const (
	// ColMajor is the default order for fresh allocations.
	ColMajor Order = iota
	RowMajor
)

func (o Order) String() string {
	switch o {
	case ColMajor:
		return "col-major"
	case RowMajor:
		return "row-major"
	default:
		return "unknown"
	}
}

// strides returns the canonical (contiguous) strides for a rows x cols
// matrix in this order.
func (o Order) strides(rows, cols int) (rowStride, colStride int) {
	if o == RowMajor {
		return cols, 1
	}
	return 1, rows
}

// Precision identifies the element width of a buffer when the static type
// is not available, e.g. on the device boundary.
type Precision int

const (
	Float32 Precision = iota
	Float64
)

// Size returns the element size in bytes.
func (p Precision) Size() int {
	if p == Float32 {
		return 4
	}
	return 8
}

func (p Precision) String() string {
	if p == Float32 {
		return "float32"
	}
	return "float64"
}

// PrecisionOf returns the runtime precision tag for the element type T.
func PrecisionOf[T Float]() Precision {
	var z T
	if _, ok := any(z).(float32); ok {
		return Float32
	}
	return Float64
}
