// Package simd provides portable unrolled vector primitives used by the
// reference kernel backend. These are deliberately naive: deterministic,
// allocation-free loops for correctness checking, not a substitute for a
// tuned BLAS.
package simd

// Float is the element set the primitives operate on.
type Float interface {
	float32 | float64
}

// Dot computes the dot product of two equal-length unit-stride vectors.
func Dot[T Float](a, b []T) T {
	var sum T
	i := 0
	for ; i <= len(a)-4; i += 4 {
		sum += a[i] * b[i]
		sum += a[i+1] * b[i+1]
		sum += a[i+2] * b[i+2]
		sum += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// DotInc computes the dot product of two strided vectors of n elements.
func DotInc[T Float](n int, x []T, incX int, y []T, incY int) T {
	if incX == 1 && incY == 1 {
		return Dot(x[:n], y[:n])
	}
	var sum T
	ix, iy := 0, 0
	for i := 0; i < n; i++ {
		sum += x[ix] * y[iy]
		ix += incX
		iy += incY
	}
	return sum
}

// Add performs dst += src element-wise.
func Add[T Float](dst, src []T) {
	i := 0
	for ; i <= len(dst)-4; i += 4 {
		dst[i] += src[i]
		dst[i+1] += src[i+1]
		dst[i+2] += src[i+2]
		dst[i+3] += src[i+3]
	}
	for ; i < len(dst); i++ {
		dst[i] += src[i]
	}
}

// AddScaled performs dst += src * scale element-wise.
func AddScaled[T Float](dst, src []T, scale T) {
	i := 0
	for ; i <= len(dst)-4; i += 4 {
		dst[i] += src[i] * scale
		dst[i+1] += src[i+1] * scale
		dst[i+2] += src[i+2] * scale
		dst[i+3] += src[i+3] * scale
	}
	for ; i < len(dst); i++ {
		dst[i] += src[i] * scale
	}
}

// AxpyInc performs y += alpha * x on strided vectors of n elements.
func AxpyInc[T Float](n int, alpha T, x []T, incX int, y []T, incY int) {
	if incX == 1 && incY == 1 {
		AddScaled(y[:n], x[:n], alpha)
		return
	}
	ix, iy := 0, 0
	for i := 0; i < n; i++ {
		y[iy] += alpha * x[ix]
		ix += incX
		iy += incY
	}
}

// ScalInc performs x *= alpha on a strided vector of n elements.
func ScalInc[T Float](n int, alpha T, x []T, incX int) {
	ix := 0
	for i := 0; i < n; i++ {
		x[ix] *= alpha
		ix += incX
	}
}

// MulInc performs dst[i] = x[i] * y[i] on strided vectors of n elements.
func MulInc[T Float](n int, x []T, incX int, y []T, incY int, dst []T, incDst int) {
	ix, iy, id := 0, 0, 0
	for i := 0; i < n; i++ {
		dst[id] = x[ix] * y[iy]
		ix += incX
		iy += incY
		id += incDst
	}
}

// ApplyInc performs dst[i] = f(x[i]) on strided vectors of n elements.
func ApplyInc[T Float](n int, f func(T) T, x []T, incX int, dst []T, incDst int) {
	ix, id := 0, 0
	for i := 0; i < n; i++ {
		dst[id] = f(x[ix])
		ix += incX
		id += incDst
	}
}
