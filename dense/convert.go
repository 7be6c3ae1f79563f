package dense

// To32 converts a 64-bit matrix to 32-bit, rounding each element. The
// conversion is total and allocates a fresh contiguous buffer in the source
// view's order.
func To32(m Matrix[float64]) Matrix[float32] {
	out := newMatrix[float32](m.rows, m.cols, m.order)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.buf.data[out.index(i, j)] = float32(m.buf.data[m.index(i, j)])
		}
	}
	return out
}

// To64 converts a 32-bit matrix to 64-bit exactly.
func To64(m Matrix[float32]) Matrix[float64] {
	out := newMatrix[float64](m.rows, m.cols, m.order)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.buf.data[out.index(i, j)] = float64(m.buf.data[m.index(i, j)])
		}
	}
	return out
}

// VectorTo32 converts a 64-bit vector to 32-bit, rounding each element.
func VectorTo32(v Vector[float64]) Vector[float32] {
	out := NewVector[float32](v.n)
	for i := 0; i < v.n; i++ {
		out.buf.data[i] = float32(v.buf.data[v.off+i*v.inc])
	}
	return out
}

// VectorTo64 converts a 32-bit vector to 64-bit exactly.
func VectorTo64(v Vector[float32]) Vector[float64] {
	out := NewVector[float64](v.n)
	for i := 0; i < v.n; i++ {
		out.buf.data[i] = float64(v.buf.data[v.off+i*v.inc])
	}
	return out
}
