// Package kernel is the seam between the view/expression layers and the
// numeric backend. It translates resolved operations (kind, operand layout,
// scalar coefficients) into single backend calls. The default backend routes
// through gonum's BLAS; building with cgo swaps in the system BLAS via
// netlib. A naive reference backend is provided for deterministic tests.
package kernel

import (
	"fmt"

	"github.com/23skdu/longbow-vane/dense"
)

// Op identifies a dispatched kernel class.
type Op string

const (
	OpScal  Op = "scal"
	OpAxpy  Op = "axpy"
	OpDot   Op = "dot"
	OpGemv  Op = "gemv"
	OpGemm  Op = "gemm"
	OpEMul  Op = "emul"
	OpApply Op = "apply"
)

// Vec describes a strided vector operand.
type Vec[T dense.Float] struct {
	N    int
	Inc  int
	Data []T
}

// Mat describes a matrix operand normalized to row-major storage. Trans
// marks the operand as the transpose of the storage; Rows, Cols and Stride
// always describe the storage, not the logical operand.
type Mat[T dense.Float] struct {
	Rows, Cols int
	Stride     int
	Trans      bool
	Data       []T
}

// Dims returns the logical dimensions of the operand.
func (m Mat[T]) Dims() (r, c int) {
	if m.Trans {
		return m.Cols, m.Rows
	}
	return m.Rows, m.Cols
}

// Backend performs the numeric kernels. Implementations write results into
// caller-provided storage and never allocate. Every method is a single
// kernel call.
type Backend[T dense.Float] interface {
	Name() string

	// Scal performs x *= alpha.
	Scal(alpha T, x Vec[T])
	// Axpy performs y += alpha * x.
	Axpy(alpha T, x, y Vec[T])
	// Dot returns x . y.
	Dot(x, y Vec[T]) T
	// Gemv performs y = alpha * A * x + beta * y.
	Gemv(alpha T, a Mat[T], x Vec[T], beta T, y Vec[T])
	// Gemm performs C = alpha * A * B + beta * C.
	Gemm(alpha T, a, b Mat[T], beta T, c Mat[T])
	// EMul performs dst = x ⊙ y element-wise.
	EMul(x, y, dst Vec[T])
	// Apply performs dst = f(x) element-wise.
	Apply(f func(T) T, x, dst Vec[T])
}

// VecOperand builds a kernel descriptor from a dense vector view without
// copying.
func VecOperand[T dense.Float](v dense.Vector[T]) Vec[T] {
	raw := v.Raw()
	return Vec[T]{N: raw.N, Inc: raw.Inc, Data: raw.Data}
}

// MatOperand normalizes a dense matrix view to row-major storage plus a
// transpose flag, without copying. A view with unit column stride is
// row-major storage as-is; a view with unit row stride is the transpose of
// row-major storage. Anything else has no BLAS-expressible layout and fails
// with dense.ErrLayout — the caller must materialize a contiguous copy
// first.
func MatOperand[T dense.Float](m dense.Matrix[T]) (Mat[T], error) {
	raw := m.Raw()
	switch {
	case raw.ColStride == 1:
		return fixStride(Mat[T]{Rows: raw.Rows, Cols: raw.Cols, Stride: raw.RowStride, Data: raw.Data}), nil
	case raw.RowStride == 1:
		return fixStride(Mat[T]{Rows: raw.Cols, Cols: raw.Rows, Stride: raw.ColStride, Trans: true, Data: raw.Data}), nil
	default:
		return Mat[T]{}, fmt.Errorf("kernel: strides (%d,%d) have no BLAS layout: %w",
			raw.RowStride, raw.ColStride, dense.ErrLayout)
	}
}

// fixStride widens the leading dimension of single-row storage, where the
// row stride is never exercised but BLAS still validates lda >= cols.
func fixStride[T dense.Float](m Mat[T]) Mat[T] {
	if m.Rows <= 1 && m.Stride < m.Cols {
		m.Stride = m.Cols
	}
	if m.Stride < 1 {
		m.Stride = 1
	}
	return m
}
