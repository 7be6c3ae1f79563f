package expr

import (
	"sync"

	"github.com/23skdu/longbow-vane/dense"
)

// scratch pools flattening and packing buffers so repeated Eval calls on
// strided views do not allocate per dispatch.
type scratch[T dense.Float] struct {
	pool sync.Pool
}

func newScratch[T dense.Float]() *scratch[T] {
	return &scratch[T]{}
}

func (s *scratch[T]) get(n int) []T {
	if v := s.pool.Get(); v != nil {
		buf := v.([]T)
		if cap(buf) >= n {
			scratchHits.Inc()
			return buf[:n]
		}
	}
	scratchMisses.Inc()
	return make([]T, n)
}

func (s *scratch[T]) put(buf []T) {
	s.pool.Put(buf)
}
