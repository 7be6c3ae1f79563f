package dense

import (
	"fmt"
	"math"
)

// Vector is a 1-D view into a shared Buffer: a length, an element stride
// and an offset. Rows and columns of a matrix are vector views.
type Vector[T Float] struct {
	n   int
	inc int
	off int
	buf *Buffer[T]
}

// RawVector exposes the storage of a vector view for kernel dispatch. Data
// starts at the view's offset.
type RawVector[T Float] struct {
	N    int
	Inc  int
	Data []T
}

// Len returns the number of elements.
func (v Vector[T]) Len() int { return v.n }

// Inc returns the stride between adjacent elements.
func (v Vector[T]) Inc() int { return v.inc }

// Precision returns the element width tag of the view.
func (v Vector[T]) Precision() Precision { return PrecisionOf[T]() }

// Raw returns the storage descriptor of the view.
func (v Vector[T]) Raw() RawVector[T] {
	return RawVector[T]{N: v.n, Inc: v.inc, Data: v.buf.data[v.off:]}
}

func (v Vector[T]) checkIndex(i int) {
	if i < 0 || i >= v.n {
		panic(&IndexError{I: i, J: 0, Rows: v.n, Cols: 1})
	}
}

// At returns element i. It panics with an *IndexError when out of range.
func (v Vector[T]) At(i int) T {
	v.checkIndex(i)
	return v.buf.data[v.off+i*v.inc]
}

// Set writes element i. It panics with an *IndexError when out of range.
func (v Vector[T]) Set(i int, x T) {
	v.checkIndex(i)
	v.buf.data[v.off+i*v.inc] = x
}

// Slice returns the sub-vector [i:k) as a view sharing the buffer.
func (v Vector[T]) Slice(i, k int) (Vector[T], error) {
	if i < 0 || k > v.n || i > k {
		return Vector[T]{}, fmt.Errorf("dense: slice [%d:%d) of length %d: %w", i, k, v.n, ErrShape)
	}
	return Vector[T]{n: k - i, inc: v.inc, off: v.off + i*v.inc, buf: v.buf}, nil
}

// AsColumn reinterprets the vector as an n x 1 column matrix view over the
// same buffer.
func (v Vector[T]) AsColumn() Matrix[T] {
	return Matrix[T]{
		rows:      v.n,
		cols:      1,
		rowStride: v.inc,
		colStride: v.n * v.inc,
		order:     ColMajor,
		off:       v.off,
		buf:       v.buf,
	}
}

// AsMatrix reinterprets a unit-stride vector as a rows x cols matrix view.
// It fails with ErrShape for a size mismatch and ErrLayout for a strided
// vector, which has no contiguous matrix interpretation.
func (v Vector[T]) AsMatrix(rows, cols int, opts ...Option) (Matrix[T], error) {
	if rows < 0 || cols < 0 || rows*cols != v.n {
		return Matrix[T]{}, fmt.Errorf("dense: %d elements as %dx%d: %w", v.n, rows, cols, ErrShape)
	}
	if v.inc != 1 {
		return Matrix[T]{}, fmt.Errorf("dense: strided vector (inc %d) as matrix: %w", v.inc, ErrLayout)
	}
	o := buildOpts(opts)
	rs, cs := o.order.strides(rows, cols)
	return Matrix[T]{
		rows:      rows,
		cols:      cols,
		rowStride: rs,
		colStride: cs,
		order:     o.order,
		off:       v.off,
		buf:       v.buf,
	}, nil
}

// Clone copies the visible elements into a fresh unit-stride buffer,
// breaking aliasing.
func (v Vector[T]) Clone() Vector[T] {
	out := NewVector[T](v.n)
	for i := 0; i < v.n; i++ {
		out.buf.data[i] = v.buf.data[v.off+i*v.inc]
	}
	return out
}

// Map applies f to every element into a fresh unit-stride buffer.
func (v Vector[T]) Map(f func(T) T) Vector[T] {
	out := NewVector[T](v.n)
	for i := 0; i < v.n; i++ {
		out.buf.data[i] = f(v.buf.data[v.off+i*v.inc])
	}
	return out
}

// Equal reports exact equality: lengths match and every element pair has
// identical bits.
func (v Vector[T]) Equal(other Vector[T]) bool {
	if v.n != other.n {
		return false
	}
	for i := 0; i < v.n; i++ {
		if !bitsEqual(v.buf.data[v.off+i*v.inc], other.buf.data[other.off+i*other.inc]) {
			return false
		}
	}
	return true
}

// ApproxEqual reports whether lengths match and the largest absolute
// element difference is within eps.
func (v Vector[T]) ApproxEqual(other Vector[T], eps float64) bool {
	if v.n != other.n {
		return false
	}
	for i := 0; i < v.n; i++ {
		d := float64(v.buf.data[v.off+i*v.inc]) - float64(other.buf.data[other.off+i*other.inc])
		if math.Abs(d) > eps {
			return false
		}
	}
	return true
}

func (v Vector[T]) String() string {
	return fmt.Sprintf("Vector[%s] len %d inc %d", PrecisionOf[T](), v.n, v.inc)
}
