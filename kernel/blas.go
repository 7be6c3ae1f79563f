package kernel

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/23skdu/longbow-vane/dense"
	"github.com/23skdu/longbow-vane/internal/simd"
)

// BLAS returns the backend bound to the process-wide gonum BLAS
// implementation for T: the pure Go implementation by default, the system
// BLAS registered by the cgo build (see blas_cgo.go).
func BLAS[T dense.Float]() Backend[T] {
	var z T
	if _, ok := any(z).(float32); ok {
		return any(blasF32{}).(Backend[T])
	}
	return any(blasF64{}).(Backend[T])
}

func transFlag(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

// gemmArgs resolves the output-transpose case. BLAS cannot write a
// transposed C, but C = A*B written through transposed storage is exactly
// C' = B'*A' written through the storage directly.
func gemmArgs[T dense.Float](a, b, c Mat[T]) (ra, rb, rc Mat[T], m, n, k int) {
	if c.Trans {
		a, b = b, a
		a.Trans = !a.Trans
		b.Trans = !b.Trans
		c.Trans = false
	}
	_, k = a.Dims()
	return a, b, c, c.Rows, c.Cols, k
}

type blasF64 struct{}

func (blasF64) Name() string { return "blas64" }

func (blasF64) Scal(alpha float64, x Vec[float64]) {
	blas64.Implementation().Dscal(x.N, alpha, x.Data, x.Inc)
}

func (blasF64) Axpy(alpha float64, x, y Vec[float64]) {
	blas64.Implementation().Daxpy(x.N, alpha, x.Data, x.Inc, y.Data, y.Inc)
}

func (blasF64) Dot(x, y Vec[float64]) float64 {
	return blas64.Implementation().Ddot(x.N, x.Data, x.Inc, y.Data, y.Inc)
}

func (blasF64) Gemv(alpha float64, a Mat[float64], x Vec[float64], beta float64, y Vec[float64]) {
	blas64.Implementation().Dgemv(transFlag(a.Trans), a.Rows, a.Cols,
		alpha, a.Data, a.Stride, x.Data, x.Inc, beta, y.Data, y.Inc)
}

func (blasF64) Gemm(alpha float64, a, b Mat[float64], beta float64, c Mat[float64]) {
	a, b, c, m, n, k := gemmArgs(a, b, c)
	blas64.Implementation().Dgemm(transFlag(a.Trans), transFlag(b.Trans), m, n, k,
		alpha, a.Data, a.Stride, b.Data, b.Stride, beta, c.Data, c.Stride)
}

func (blasF64) EMul(x, y, dst Vec[float64]) {
	simd.MulInc(dst.N, x.Data, x.Inc, y.Data, y.Inc, dst.Data, dst.Inc)
}

func (blasF64) Apply(f func(float64) float64, x, dst Vec[float64]) {
	simd.ApplyInc(dst.N, f, x.Data, x.Inc, dst.Data, dst.Inc)
}

type blasF32 struct{}

func (blasF32) Name() string { return "blas32" }

func (blasF32) Scal(alpha float32, x Vec[float32]) {
	blas32.Implementation().Sscal(x.N, alpha, x.Data, x.Inc)
}

func (blasF32) Axpy(alpha float32, x, y Vec[float32]) {
	blas32.Implementation().Saxpy(x.N, alpha, x.Data, x.Inc, y.Data, y.Inc)
}

func (blasF32) Dot(x, y Vec[float32]) float32 {
	return blas32.Implementation().Sdot(x.N, x.Data, x.Inc, y.Data, y.Inc)
}

func (blasF32) Gemv(alpha float32, a Mat[float32], x Vec[float32], beta float32, y Vec[float32]) {
	blas32.Implementation().Sgemv(transFlag(a.Trans), a.Rows, a.Cols,
		alpha, a.Data, a.Stride, x.Data, x.Inc, beta, y.Data, y.Inc)
}

func (blasF32) Gemm(alpha float32, a, b Mat[float32], beta float32, c Mat[float32]) {
	a, b, c, m, n, k := gemmArgs(a, b, c)
	blas32.Implementation().Sgemm(transFlag(a.Trans), transFlag(b.Trans), m, n, k,
		alpha, a.Data, a.Stride, b.Data, b.Stride, beta, c.Data, c.Stride)
}

func (blasF32) EMul(x, y, dst Vec[float32]) {
	simd.MulInc(dst.N, x.Data, x.Inc, y.Data, y.Inc, dst.Data, dst.Inc)
}

func (blasF32) Apply(f func(float32) float32, x, dst Vec[float32]) {
	simd.ApplyInc(dst.N, f, x.Data, x.Inc, dst.Data, dst.Inc)
}
