package dense

import (
	"fmt"
	"math"
)

// Matrix is a typed, shaped window into a shared Buffer. The zero value is
// not usable; construct matrices with the package constructors or by
// deriving views from an existing matrix. Matrices are small value types;
// copying one copies the descriptor, never the data.
type Matrix[T Float] struct {
	rows, cols           int
	rowStride, colStride int
	order                Order
	off                  int
	buf                  *Buffer[T]
}

// RawMatrix exposes the storage of a view for kernel dispatch. Data starts
// at the view's offset and extends to the end of the underlying buffer.
type RawMatrix[T Float] struct {
	Rows, Cols           int
	RowStride, ColStride int
	Order                Order
	Data                 []T
}

// Dims returns the logical (rows, cols) of the view.
func (m Matrix[T]) Dims() (r, c int) { return m.rows, m.cols }

// Rows returns the number of rows.
func (m Matrix[T]) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m Matrix[T]) Cols() int { return m.cols }

// Order returns the layout convention of the view.
func (m Matrix[T]) Order() Order { return m.order }

// Strides returns the (rowStride, colStride) of the view in elements.
func (m Matrix[T]) Strides() (rowStride, colStride int) {
	return m.rowStride, m.colStride
}

// Precision returns the element width tag of the view.
func (m Matrix[T]) Precision() Precision { return PrecisionOf[T]() }

// Raw returns the storage descriptor of the view.
func (m Matrix[T]) Raw() RawMatrix[T] {
	return RawMatrix[T]{
		Rows:      m.rows,
		Cols:      m.cols,
		RowStride: m.rowStride,
		ColStride: m.colStride,
		Order:     m.order,
		Data:      m.buf.data[m.off:],
	}
}

func (m Matrix[T]) index(i, j int) int {
	return m.off + i*m.rowStride + j*m.colStride
}

func (m Matrix[T]) checkIndex(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(&IndexError{I: i, J: j, Rows: m.rows, Cols: m.cols})
	}
}

// At returns the element at (i, j). It panics with an *IndexError when the
// indices are out of range.
func (m Matrix[T]) At(i, j int) T {
	m.checkIndex(i, j)
	return m.buf.data[m.index(i, j)]
}

// Set writes the element at (i, j). The write is visible through every view
// sharing the buffer. It panics with an *IndexError when out of range.
func (m Matrix[T]) Set(i, j int, v T) {
	m.checkIndex(i, j)
	m.buf.data[m.index(i, j)] = v
}

// T returns the transpose as a view over the same buffer: shape and strides
// swap and the order flips. Constant time, no copy.
func (m Matrix[T]) T() Matrix[T] {
	order := RowMajor
	if m.order == RowMajor {
		order = ColMajor
	}
	return Matrix[T]{
		rows:      m.cols,
		cols:      m.rows,
		rowStride: m.colStride,
		colStride: m.rowStride,
		order:     order,
		off:       m.off,
		buf:       m.buf,
	}
}

// Contiguous reports whether the view's strides are the canonical strides
// for its shape and order.
func (m Matrix[T]) Contiguous() bool {
	rs, cs := m.order.strides(m.rows, m.cols)
	return m.rowStride == rs && m.colStride == cs
}

// Reshape returns a (rows x cols) view over the same memory. It fails with
// ErrShape when the element counts differ and with ErrLayout when the view
// is not contiguous, or when its order differs from the order the buffer was
// allocated in (a transposed view): reinterpreting memory across a different
// traversal order would silently permute elements.
func (m Matrix[T]) Reshape(rows, cols int) (Matrix[T], error) {
	if rows < 0 || cols < 0 || rows*cols != m.rows*m.cols {
		return Matrix[T]{}, fmt.Errorf("dense: reshape %dx%d to %dx%d: %w", m.rows, m.cols, rows, cols, ErrShape)
	}
	if !m.Contiguous() || m.order != m.buf.order {
		return Matrix[T]{}, fmt.Errorf("dense: reshape of %s view with strides (%d,%d): %w",
			m.order, m.rowStride, m.colStride, ErrLayout)
	}
	rs, cs := m.order.strides(rows, cols)
	return Matrix[T]{
		rows:      rows,
		cols:      cols,
		rowStride: rs,
		colStride: cs,
		order:     m.order,
		off:       m.off,
		buf:       m.buf,
	}, nil
}

// Slice returns the sub-block [i:k, j:l) as a view: the shape narrows, the
// offset shifts and the parent strides are kept. The view aliases the
// parent's buffer.
func (m Matrix[T]) Slice(i, k, j, l int) (Matrix[T], error) {
	if i < 0 || k > m.rows || j < 0 || l > m.cols || i > k || j > l {
		return Matrix[T]{}, fmt.Errorf("dense: slice [%d:%d, %d:%d) of %dx%d: %w", i, k, j, l, m.rows, m.cols, ErrShape)
	}
	return Matrix[T]{
		rows:      k - i,
		cols:      l - j,
		rowStride: m.rowStride,
		colStride: m.colStride,
		order:     m.order,
		off:       m.index(i, j),
		buf:       m.buf,
	}, nil
}

// Row returns row i as a vector view sharing the buffer.
func (m Matrix[T]) Row(i int) Vector[T] {
	if i < 0 || i >= m.rows {
		panic(&IndexError{I: i, J: 0, Rows: m.rows, Cols: m.cols})
	}
	return Vector[T]{
		n:   m.cols,
		inc: m.colStride,
		off: m.off + i*m.rowStride,
		buf: m.buf,
	}
}

// Col returns column j as a vector view sharing the buffer.
func (m Matrix[T]) Col(j int) Vector[T] {
	if j < 0 || j >= m.cols {
		panic(&IndexError{I: 0, J: j, Rows: m.rows, Cols: m.cols})
	}
	return Vector[T]{
		n:   m.rows,
		inc: m.rowStride,
		off: m.off + j*m.colStride,
		buf: m.buf,
	}
}

// AsVector reinterprets a single-row or single-column matrix as a vector
// view over the same buffer. It fails with ErrShape otherwise.
func (m Matrix[T]) AsVector() (Vector[T], error) {
	switch {
	case m.cols == 1:
		return m.Col(0), nil
	case m.rows == 1:
		return m.Row(0), nil
	default:
		return Vector[T]{}, fmt.Errorf("dense: %dx%d matrix is not a vector: %w", m.rows, m.cols, ErrShape)
	}
}

// Clone copies the logical elements visible through the view into a fresh
// contiguous buffer in the view's own order, breaking aliasing.
func (m Matrix[T]) Clone() Matrix[T] {
	out := newMatrix[T](m.rows, m.cols, m.order)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.buf.data[out.index(i, j)] = m.buf.data[m.index(i, j)]
		}
	}
	return out
}

// CloneTo is Clone into a target order. The logical elements are unchanged;
// only the memory layout of the copy differs.
func (m Matrix[T]) CloneTo(order Order) Matrix[T] {
	out := newMatrix[T](m.rows, m.cols, order)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.buf.data[out.index(i, j)] = m.buf.data[m.index(i, j)]
		}
	}
	return out
}

// Map applies f to every element and returns the result in a fresh buffer
// with the same shape and order. The source is never mutated.
func (m Matrix[T]) Map(f func(T) T) Matrix[T] {
	out := newMatrix[T](m.rows, m.cols, m.order)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.buf.data[out.index(i, j)] = f(m.buf.data[m.index(i, j)])
		}
	}
	return out
}

// Fill sets every element of the view to v.
func (m Matrix[T]) Fill(v T) {
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			m.buf.data[m.index(i, j)] = v
		}
	}
}

// Equal reports exact equality: shapes match and every element pair has
// identical bits. NaNs at matching positions compare equal; -0 and +0 do
// not.
func (m Matrix[T]) Equal(other Matrix[T]) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if !bitsEqual(m.buf.data[m.index(i, j)], other.buf.data[other.index(i, j)]) {
				return false
			}
		}
	}
	return true
}

// ApproxEqual reports whether the shapes match and the largest absolute
// element difference is within eps.
func (m Matrix[T]) ApproxEqual(other Matrix[T], eps float64) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			d := float64(m.buf.data[m.index(i, j)]) - float64(other.buf.data[other.index(i, j)])
			if math.Abs(d) > eps {
				return false
			}
		}
	}
	return true
}

func (m Matrix[T]) String() string {
	return fmt.Sprintf("Matrix[%s] %dx%d %s", PrecisionOf[T](), m.rows, m.cols, m.order)
}

func bitsEqual[T Float](a, b T) bool {
	switch x := any(a).(type) {
	case float32:
		return math.Float32bits(x) == math.Float32bits(any(b).(float32))
	case float64:
		return math.Float64bits(x) == math.Float64bits(any(b).(float64))
	}
	return false
}
