package kernel

import (
	"sync/atomic"

	"github.com/23skdu/longbow-vane/dense"
)

// Instrumented wraps a backend and counts every kernel call, both into the
// process-wide prometheus counters and into a local total the fusion engine
// reads to report per-evaluation call counts.
type Instrumented[T dense.Float] struct {
	inner Backend[T]
	calls atomic.Uint64
}

// Instrument wraps b. The same wrapper may be reused across evaluations;
// callers interested in a delta read Calls before and after.
func Instrument[T dense.Float](b Backend[T]) *Instrumented[T] {
	return &Instrumented[T]{inner: b}
}

// Calls returns the total number of kernel calls dispatched through this
// wrapper.
func (b *Instrumented[T]) Calls() uint64 { return b.calls.Load() }

func (b *Instrumented[T]) record(op Op) {
	b.calls.Add(1)
	dispatchTotal.WithLabelValues(b.inner.Name(), string(op)).Inc()
}

func (b *Instrumented[T]) Name() string { return b.inner.Name() }

func (b *Instrumented[T]) Scal(alpha T, x Vec[T]) {
	b.record(OpScal)
	b.inner.Scal(alpha, x)
}

func (b *Instrumented[T]) Axpy(alpha T, x, y Vec[T]) {
	b.record(OpAxpy)
	b.inner.Axpy(alpha, x, y)
}

func (b *Instrumented[T]) Dot(x, y Vec[T]) T {
	b.record(OpDot)
	return b.inner.Dot(x, y)
}

func (b *Instrumented[T]) Gemv(alpha T, a Mat[T], x Vec[T], beta T, y Vec[T]) {
	b.record(OpGemv)
	b.inner.Gemv(alpha, a, x, beta, y)
}

func (b *Instrumented[T]) Gemm(alpha T, a, b2 Mat[T], beta T, c Mat[T]) {
	b.record(OpGemm)
	b.inner.Gemm(alpha, a, b2, beta, c)
}

func (b *Instrumented[T]) EMul(x, y, dst Vec[T]) {
	b.record(OpEMul)
	b.inner.EMul(x, y, dst)
}

func (b *Instrumented[T]) Apply(f func(T) T, x, dst Vec[T]) {
	b.record(OpApply)
	b.inner.Apply(f, x, dst)
}
