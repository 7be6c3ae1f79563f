package kernel

import (
	"github.com/23skdu/longbow-vane/dense"
	"github.com/23skdu/longbow-vane/internal/simd"
)

// Reference returns a naive, deterministic backend with no BLAS dependency.
// It exists so tests can substitute a known-simple implementation and so
// fusion results can be checked against sequential evaluation.
func Reference[T dense.Float]() Backend[T] {
	return reference[T]{}
}

type reference[T dense.Float] struct{}

func (reference[T]) Name() string { return "reference" }

func (reference[T]) Scal(alpha T, x Vec[T]) {
	simd.ScalInc(x.N, alpha, x.Data, x.Inc)
}

func (reference[T]) Axpy(alpha T, x, y Vec[T]) {
	simd.AxpyInc(x.N, alpha, x.Data, x.Inc, y.Data, y.Inc)
}

func (reference[T]) Dot(x, y Vec[T]) T {
	return simd.DotInc(x.N, x.Data, x.Inc, y.Data, y.Inc)
}

// at resolves a logical (i, j) into the row-major storage of m.
func (m Mat[T]) at(i, j int) T {
	if m.Trans {
		i, j = j, i
	}
	return m.Data[i*m.Stride+j]
}

func (reference[T]) Gemv(alpha T, a Mat[T], x Vec[T], beta T, y Vec[T]) {
	rows, cols := a.Dims()
	for i := 0; i < rows; i++ {
		var sum T
		ix := 0
		for k := 0; k < cols; k++ {
			sum += a.at(i, k) * x.Data[ix]
			ix += x.Inc
		}
		y.Data[i*y.Inc] = alpha*sum + beta*y.Data[i*y.Inc]
	}
}

func (reference[T]) Gemm(alpha T, a, b Mat[T], beta T, c Mat[T]) {
	m, n := c.Dims()
	_, k := a.Dims()
	ct := c
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum T
			for p := 0; p < k; p++ {
				sum += a.at(i, p) * b.at(p, j)
			}
			ci, cj := i, j
			if ct.Trans {
				ci, cj = cj, ci
			}
			ct.Data[ci*ct.Stride+cj] = alpha*sum + beta*ct.Data[ci*ct.Stride+cj]
		}
	}
}

func (reference[T]) EMul(x, y, dst Vec[T]) {
	simd.MulInc(dst.N, x.Data, x.Inc, y.Data, y.Inc, dst.Data, dst.Inc)
}

func (reference[T]) Apply(f func(T) T, x, dst Vec[T]) {
	simd.ApplyInc(dst.N, f, x.Data, x.Inc, dst.Data, dst.Inc)
}
