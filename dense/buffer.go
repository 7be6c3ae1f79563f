package dense

// Buffer is the shared numeric allocation referenced by one or more views.
// Sharing is structural: transpose, reshape and slicing return new views over
// the same buffer, and mutation through one view is visible through every
// other view of an overlapping region. Lifetime is handled by the garbage
// collector: the longest-lived view keeps the buffer alive.
type Buffer[T Float] struct {
	data []T
	// order the buffer was filled in at allocation time. Reshape refuses to
	// reinterpret memory across a different traversal order.
	order Order
}

func newBuffer[T Float](n int, order Order) *Buffer[T] {
	return &Buffer[T]{data: make([]T, n), order: order}
}

// wrapBuffer adopts an existing slice without copying.
func wrapBuffer[T Float](data []T, order Order) *Buffer[T] {
	return &Buffer[T]{data: data, order: order}
}

// Len returns the number of elements in the allocation.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Precision returns the element width tag of the buffer.
func (b *Buffer[T]) Precision() Precision { return PrecisionOf[T]() }
