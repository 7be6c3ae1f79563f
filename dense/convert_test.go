package dense

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrecisionConversion(t *testing.T) {
	t.Run("RoundTrip32", func(t *testing.T) {
		// float32 values survive widening and narrowing unchanged.
		m, err := FromSlice(2, 2, []float32{1.5, -2.25, 3.125, 0}, WithOrder(RowMajor))
		require.NoError(t, err)
		back := To32(To64(m))
		require.True(t, m.Equal(back))
	})

	t.Run("NarrowingRounds", func(t *testing.T) {
		const v = 1 + 1e-12 // not representable in float32
		m := Constant[float64](1, 1, v)
		n := To32(m)
		require.Equal(t, float32(1), n.At(0, 0))
		// Source unchanged.
		require.Equal(t, v, m.At(0, 0))
	})

	t.Run("ConversionCopiesStridedViews", func(t *testing.T) {
		m := FromFunc(3, 3, func(i, j int) float64 { return float64(i*3 + j) })
		tr := To32(m.T())
		require.True(t, tr.Contiguous())
		require.Equal(t, float32(5), tr.At(2, 1))

		tr.Set(0, 0, -1)
		require.Equal(t, 0.0, m.At(0, 0))
	})

	t.Run("Overflow", func(t *testing.T) {
		m := Constant[float64](1, 1, math.MaxFloat64)
		require.True(t, math.IsInf(float64(To32(m).At(0, 0)), 1))
	})

	t.Run("Vectors", func(t *testing.T) {
		v := VectorFromSlice([]float64{1, 2, 3})
		require.True(t, v.Equal(VectorTo64(VectorTo32(v))))

		// Strided source reads through the stride.
		w := VectorFromSlice([]float64{1, 2, 3, 4, 5, 6})
		m, err := w.AsMatrix(2, 3, WithOrder(RowMajor))
		require.NoError(t, err)
		col := VectorTo32(m.Col(1))
		require.Equal(t, 1, col.Inc())
		require.Equal(t, float32(5), col.At(1))
	})
}
