package dense

import (
	"fmt"
	"math/rand"
)

// Option configures a constructor.
type Option func(*ctorOpts)

type ctorOpts struct {
	order Order
}

// WithOrder selects the memory layout of the new allocation. The default is
// ColMajor.
func WithOrder(o Order) Option {
	return func(c *ctorOpts) { c.order = o }
}

func buildOpts(opts []Option) ctorOpts {
	c := ctorOpts{order: ColMajor}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func newMatrix[T Float](rows, cols int, order Order) Matrix[T] {
	if rows < 0 || cols < 0 {
		panic(&IndexError{I: rows, J: cols, Rows: rows, Cols: cols})
	}
	rs, cs := order.strides(rows, cols)
	return Matrix[T]{
		rows:      rows,
		cols:      cols,
		rowStride: rs,
		colStride: cs,
		order:     order,
		buf:       newBuffer[T](rows*cols, order),
	}
}

// Zeros allocates a rows x cols matrix of zeroes.
func Zeros[T Float](rows, cols int, opts ...Option) Matrix[T] {
	return newMatrix[T](rows, cols, buildOpts(opts).order)
}

// Ones allocates a rows x cols matrix of ones.
func Ones[T Float](rows, cols int, opts ...Option) Matrix[T] {
	return Constant[T](rows, cols, 1, opts...)
}

// Constant allocates a rows x cols matrix filled with v.
func Constant[T Float](rows, cols int, v T, opts ...Option) Matrix[T] {
	m := newMatrix[T](rows, cols, buildOpts(opts).order)
	for i := range m.buf.data {
		m.buf.data[i] = v
	}
	return m
}

// FromSlice copies data into a fresh rows x cols matrix. The slice is read
// as the contiguous storage of the new matrix in its order: row by row for
// RowMajor, column by column for ColMajor.
func FromSlice[T Float](rows, cols int, data []T, opts ...Option) (Matrix[T], error) {
	if len(data) != rows*cols {
		return Matrix[T]{}, fmt.Errorf("dense: %d elements for %dx%d matrix: %w", len(data), rows, cols, ErrShape)
	}
	m := newMatrix[T](rows, cols, buildOpts(opts).order)
	copy(m.buf.data, data)
	return m, nil
}

// Wrap builds a matrix view over a caller-provided slice without copying.
// Mutations through the view are visible in the slice and vice versa.
func Wrap[T Float](rows, cols int, data []T, opts ...Option) (Matrix[T], error) {
	if len(data) != rows*cols {
		return Matrix[T]{}, fmt.Errorf("dense: %d elements for %dx%d matrix: %w", len(data), rows, cols, ErrShape)
	}
	order := buildOpts(opts).order
	rs, cs := order.strides(rows, cols)
	return Matrix[T]{
		rows:      rows,
		cols:      cols,
		rowStride: rs,
		colStride: cs,
		order:     order,
		buf:       wrapBuffer(data, order),
	}, nil
}

// FromFunc allocates a rows x cols matrix with element (i, j) set to
// f(i, j).
func FromFunc[T Float](rows, cols int, f func(i, j int) T, opts ...Option) Matrix[T] {
	m := newMatrix[T](rows, cols, buildOpts(opts).order)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.buf.data[m.index(i, j)] = f(i, j)
		}
	}
	return m
}

// Random allocates a rows x cols matrix with elements drawn uniformly from
// [-bound, bound). A nil rng falls back to the shared math/rand source.
func Random[T Float](rows, cols int, bound T, rng *rand.Rand, opts ...Option) Matrix[T] {
	m := newMatrix[T](rows, cols, buildOpts(opts).order)
	for i := range m.buf.data {
		m.buf.data[i] = T(2*uniform(rng)-1) * bound
	}
	return m
}

// NewVector allocates a zeroed unit-stride vector of length n.
func NewVector[T Float](n int) Vector[T] {
	if n < 0 {
		panic(&IndexError{I: n, J: 0, Rows: n, Cols: 1})
	}
	return Vector[T]{n: n, inc: 1, buf: newBuffer[T](n, ColMajor)}
}

// VectorFromSlice copies data into a fresh unit-stride vector.
func VectorFromSlice[T Float](data []T) Vector[T] {
	v := NewVector[T](len(data))
	copy(v.buf.data, data)
	return v
}

// WrapVector builds a vector view over a caller-provided slice without
// copying.
func WrapVector[T Float](data []T) Vector[T] {
	return Vector[T]{n: len(data), inc: 1, buf: wrapBuffer(data, ColMajor)}
}

// RandomVector allocates a length-n vector with elements drawn uniformly
// from [-bound, bound).
func RandomVector[T Float](n int, bound T, rng *rand.Rand) Vector[T] {
	v := NewVector[T](n)
	for i := range v.buf.data {
		v.buf.data[i] = T(2*uniform(rng)-1) * bound
	}
	return v
}

func uniform(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}
