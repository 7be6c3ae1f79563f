package dense

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorViews(t *testing.T) {
	v := VectorFromSlice([]float64{1, 2, 3, 4, 5, 6})

	t.Run("Slice", func(t *testing.T) {
		s, err := v.Slice(2, 5)
		require.NoError(t, err)
		require.Equal(t, 3, s.Len())
		require.Equal(t, 4.0, s.At(1))

		s.Set(0, -3)
		require.Equal(t, -3.0, v.At(2))
		v.Set(2, 3)

		_, err = v.Slice(4, 2)
		require.ErrorIs(t, err, ErrShape)
		_, err = v.Slice(0, 7)
		require.ErrorIs(t, err, ErrShape)
	})

	t.Run("StridedThroughMatrix", func(t *testing.T) {
		m, err := v.AsMatrix(2, 3, WithOrder(RowMajor))
		require.NoError(t, err)
		col := m.Col(1)
		require.Equal(t, 2, col.Len())
		require.Equal(t, 3, col.Inc())
		require.Equal(t, 2.0, col.At(0))
		require.Equal(t, 5.0, col.At(1))

		// Clone of a strided view is unit stride and independent.
		c := col.Clone()
		require.Equal(t, 1, c.Inc())
		c.Set(0, 99)
		require.Equal(t, 2.0, v.At(1))
	})

	t.Run("AsColumn", func(t *testing.T) {
		col := v.AsColumn()
		r, c := col.Dims()
		require.Equal(t, 6, r)
		require.Equal(t, 1, c)
		require.Equal(t, 4.0, col.At(3, 0))
	})

	t.Run("AsMatrixStrided", func(t *testing.T) {
		m, err := v.AsMatrix(2, 3, WithOrder(RowMajor))
		require.NoError(t, err)
		_, err = m.Col(0).AsMatrix(2, 1)
		require.ErrorIs(t, err, ErrLayout)

		_, err = v.AsMatrix(4, 2)
		require.ErrorIs(t, err, ErrShape)
	})

	t.Run("IndexPanics", func(t *testing.T) {
		require.Panics(t, func() { v.At(6) })
		require.Panics(t, func() { v.Set(-1, 0) })
	})
}

func TestVectorEqual(t *testing.T) {
	a := VectorFromSlice([]float32{1, 2, 3})
	b := VectorFromSlice([]float32{1, 2, 3})
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(VectorFromSlice([]float32{1, 2})))

	b.Set(2, 3.0001)
	require.False(t, a.Equal(b))
	require.True(t, a.ApproxEqual(b, 1e-3))
}

func TestVectorMap(t *testing.T) {
	v := VectorFromSlice([]float64{1, -2, 3})
	doubled := v.Map(func(x float64) float64 { return 2 * x })
	require.Equal(t, -4.0, doubled.At(1))
	require.Equal(t, -2.0, v.At(1))
}
