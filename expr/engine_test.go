package expr

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/longbow-vane/dense"
	"github.com/23skdu/longbow-vane/kernel"
)

func newEngine(t *testing.T) *Engine[float64] {
	t.Helper()
	return New(kernel.Reference[float64]())
}

// toGonum copies a view into a gonum dense matrix for oracle arithmetic.
func toGonum(m dense.Matrix[float64]) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}

func requireMatEqual(t *testing.T, want mat.Matrix, got dense.Matrix[float64], eps float64) {
	t.Helper()
	rows, cols := got.Dims()
	wr, wc := want.Dims()
	require.Equal(t, wr, rows)
	require.Equal(t, wc, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), eps)
		}
	}
}

func TestEvalAxpyFusion(t *testing.T) {
	e := newEngine(t)

	v1 := dense.VectorFromSlice([]float64{1, 2, 3})
	v2 := dense.VectorFromSlice([]float64{4, 5, 6})

	res, err := e.Eval(context.Background(), Add(Vec(v1), Scale(2.0, Vec(v2))))
	require.NoError(t, err)
	require.Equal(t, KindVector, res.Kind)
	require.Equal(t, 1, res.KernelCalls)
	require.True(t, res.Vector.Equal(dense.VectorFromSlice([]float64{9, 12, 15})))

	// Leaves are never written.
	require.True(t, v1.Equal(dense.VectorFromSlice([]float64{1, 2, 3})))
	require.True(t, v2.Equal(dense.VectorFromSlice([]float64{4, 5, 6})))
}

func TestEvalSub(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	v1 := dense.VectorFromSlice([]float64{5, 5, 5})
	v2 := dense.VectorFromSlice([]float64{1, 2, 3})

	t.Run("Plain", func(t *testing.T) {
		res, err := e.Eval(ctx, Sub(Vec(v1), Vec(v2)))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)
		require.True(t, res.Vector.Equal(dense.VectorFromSlice([]float64{4, 3, 2})))
	})

	t.Run("BothScaled", func(t *testing.T) {
		// 2*v1 - 3*v2 needs a Scal then an Axpy.
		res, err := e.Eval(ctx, Sub(Scale(2.0, Vec(v1)), Scale(3.0, Vec(v2))))
		require.NoError(t, err)
		require.Equal(t, 2, res.KernelCalls)
		require.True(t, res.Vector.Equal(dense.VectorFromSlice([]float64{7, 4, 1})))
	})
}

func TestEvalGemvFusion(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	a, err := dense.FromSlice(2, 3, []float64{1, 2, 3, 4, 5, 6}, dense.WithOrder(dense.RowMajor))
	require.NoError(t, err)
	x := dense.VectorFromSlice([]float64{1, 1, 1})

	t.Run("Plain", func(t *testing.T) {
		res, err := e.Eval(ctx, MatVec(Leaf(a), Vec(x)))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)
		require.True(t, res.Vector.Equal(dense.VectorFromSlice([]float64{6, 15})))
	})

	t.Run("TransposedOperand", func(t *testing.T) {
		// transpose(a) * y dispatches a single call with the transpose
		// flag; the view is never materialized.
		y := dense.VectorFromSlice([]float64{1, 1})
		res, err := e.Eval(ctx, MatVec(Leaf(a.T()), Vec(y)))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)
		require.True(t, res.Vector.Equal(dense.VectorFromSlice([]float64{5, 7, 9})))
	})

	t.Run("ScaledAccumulate", func(t *testing.T) {
		// 2*a*x + y fuses into one GEMV with alpha=2, beta=1.
		y := dense.VectorFromSlice([]float64{1, 2})
		res, err := e.Eval(ctx, Add(Scale(2.0, MatVec(Leaf(a), Vec(x))), Vec(y)))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)
		require.True(t, res.Vector.Equal(dense.VectorFromSlice([]float64{13, 32})))
	})
}

func TestEvalGemmFusion(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(3))

	a := dense.Random[float64](4, 3, 1, rng)
	b := dense.Random[float64](3, 5, 1, rng)
	c := dense.Random[float64](4, 5, 1, rng)

	t.Run("Plain", func(t *testing.T) {
		res, err := e.Eval(ctx, MatMul(Leaf(a), Leaf(b)))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)

		var want mat.Dense
		want.Mul(toGonum(a), toGonum(b))
		requireMatEqual(t, &want, res.Matrix, 1e-12)
	})

	t.Run("Accumulate", func(t *testing.T) {
		// 2*a*b + c is one GEMM; the copy of c is a memory op.
		res, err := e.Eval(ctx, Add(Scale(2.0, MatMul(Leaf(a), Leaf(b))), Leaf(c)))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)

		var prod mat.Dense
		prod.Mul(toGonum(a), toGonum(b))
		prod.Scale(2, &prod)
		prod.Add(&prod, toGonum(c))
		requireMatEqual(t, &prod, res.Matrix, 1e-12)
	})

	t.Run("AccumulateRight", func(t *testing.T) {
		// c - a*b fuses with the product on the right: beta stays 1 and
		// the sign folds into alpha.
		res, err := e.Eval(ctx, Sub(Leaf(c), MatMul(Leaf(a), Leaf(b))))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)

		var prod mat.Dense
		prod.Mul(toGonum(a), toGonum(b))
		var want mat.Dense
		want.Sub(toGonum(c), &prod)
		requireMatEqual(t, &want, res.Matrix, 1e-12)
	})

	t.Run("TransposedOperand", func(t *testing.T) {
		// a' has legal BLAS layout through the transpose flag.
		res, err := e.Eval(ctx, MatMul(Leaf(a.T()), Leaf(c)))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)

		var want mat.Dense
		want.Mul(toGonum(a).T(), toGonum(c))
		requireMatEqual(t, &want, res.Matrix, 1e-12)
	})

	t.Run("NestedScaleFolding", func(t *testing.T) {
		// 2*(3*(a*b)) folds to alpha=6, still one call.
		res, err := e.Eval(ctx, Scale(2.0, Scale(3.0, MatMul(Leaf(a), Leaf(b)))))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)

		var want mat.Dense
		want.Mul(toGonum(a), toGonum(b))
		want.Scale(6, &want)
		requireMatEqual(t, &want, res.Matrix, 1e-12)
	})
}

func TestEvalDot(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	u := dense.VectorFromSlice([]float64{1, 2, 3})
	v := dense.VectorFromSlice([]float64{4, 5, 6})

	s, err := e.EvalScalar(ctx, Dot(Vec(u), Vec(v)))
	require.NoError(t, err)
	require.Equal(t, 32.0, s)

	t.Run("ScaleFoldsIntoResult", func(t *testing.T) {
		res, err := e.Eval(ctx, Scale(0.5, Dot(Vec(u), Vec(v))))
		require.NoError(t, err)
		require.Equal(t, KindScalar, res.Kind)
		require.Equal(t, 1, res.KernelCalls)
		require.Equal(t, 16.0, res.Scalar)
	})
}

func TestEvalHadamard(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	t.Run("Vector", func(t *testing.T) {
		u := dense.VectorFromSlice([]float64{1, 2, 3})
		v := dense.VectorFromSlice([]float64{4, 5, 6})
		res, err := e.Eval(ctx, Hadamard(Vec(u), Vec(v)))
		require.NoError(t, err)
		require.Equal(t, 1, res.KernelCalls)
		require.True(t, res.Vector.Equal(dense.VectorFromSlice([]float64{4, 10, 18})))
	})

	t.Run("MatrixMixedOrders", func(t *testing.T) {
		a := dense.Constant[float64](2, 3, 3)
		b := dense.Constant[float64](2, 3, 4, dense.WithOrder(dense.RowMajor))
		m, err := e.EvalMatrix(ctx, Hadamard(Leaf(a), Leaf(b)))
		require.NoError(t, err)
		require.True(t, m.Equal(dense.Constant[float64](2, 3, 12)))
	})
}

func TestEvalFallbackEquivalence(t *testing.T) {
	// A deliberately awkward tree: ((a*b) . hadamard) compositions that
	// exercise the recursive fallback. The result must match gonum's
	// sequential evaluation regardless of how many calls fusion saved.
	e := newEngine(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(9))

	a := dense.Random[float64](3, 3, 1, rng)
	b := dense.Random[float64](3, 3, 1, rng)
	c := dense.Random[float64](3, 3, 1, rng)

	expr := Sub(
		Hadamard(MatMul(Leaf(a), Leaf(b)), Leaf(c)),
		Scale(0.5, Add(Leaf(a), MatMul(Leaf(b), Leaf(c)))),
	)
	got, err := e.EvalMatrix(ctx, expr)
	require.NoError(t, err)

	ga, gb, gc := toGonum(a), toGonum(b), toGonum(c)
	var ab, bc, left, right, want mat.Dense
	ab.Mul(ga, gb)
	left.MulElem(&ab, gc)
	bc.Mul(gb, gc)
	right.Add(ga, &bc)
	right.Scale(0.5, &right)
	want.Sub(&left, &right)
	requireMatEqual(t, &want, got, 1e-12)
}

func TestEvalValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	t.Run("ShapeMismatch", func(t *testing.T) {
		_, err := e.Eval(ctx, Add(Leaf(dense.Zeros[float64](2, 2)), Leaf(dense.Zeros[float64](2, 3))))
		require.ErrorIs(t, err, dense.ErrShape)
	})

	t.Run("InnerDimMismatch", func(t *testing.T) {
		_, err := e.Eval(ctx, MatMul(Leaf(dense.Zeros[float64](2, 3)), Leaf(dense.Zeros[float64](2, 3))))
		require.ErrorIs(t, err, dense.ErrShape)
	})

	t.Run("KindMismatch", func(t *testing.T) {
		_, err := e.Eval(ctx, Add(Leaf(dense.Zeros[float64](3, 1)), Vec(dense.NewVector[float64](3))))
		require.ErrorIs(t, err, dense.ErrShape)
	})

	t.Run("EvalMatrixOnVectorExpr", func(t *testing.T) {
		_, err := e.EvalMatrix(ctx, Vec(dense.NewVector[float64](2)))
		require.ErrorIs(t, err, dense.ErrShape)
	})

	t.Run("NoPartialDispatch", func(t *testing.T) {
		before := e.backend.Calls()
		_, err := e.Eval(ctx, Add(
			MatMul(Leaf(dense.Zeros[float64](2, 3)), Leaf(dense.Zeros[float64](3, 2))),
			Leaf(dense.Zeros[float64](3, 3)),
		))
		require.Error(t, err)
		require.Equal(t, before, e.backend.Calls())
	})
}

func TestEvalResultNeverAliases(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	v := dense.VectorFromSlice([]float64{1, 2, 3})
	res, err := e.Eval(ctx, Vec(v))
	require.NoError(t, err)
	require.Equal(t, 0, res.KernelCalls)

	res.Vector.Set(0, 42)
	require.Equal(t, 1.0, v.At(0))
}

func TestEvalInto(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	a := dense.Constant[float64](2, 2, 2)
	dst := dense.Zeros[float64](2, 2, dense.WithOrder(dense.RowMajor))
	require.NoError(t, e.EvalInto(ctx, dst, Scale(3.0, Leaf(a))))
	require.True(t, dst.Equal(dense.Constant[float64](2, 2, 6)))

	err := e.EvalInto(ctx, dense.Zeros[float64](1, 2), Leaf(a))
	require.ErrorIs(t, err, dense.ErrShape)
}

func TestNodeHelpersInferElementType(t *testing.T) {
	// Builders and the tree helpers compose without explicit
	// instantiation; the element type flows through the node interface.
	m := dense.Zeros[float32](2, 2)
	x := Sub(MatMul(Leaf(m), Leaf(m)), Scale(float32(2), Leaf(m)))

	require.NoError(t, validate(x))
	require.Equal(t, 3, depth(x))
	require.Equal(t, KindMatrix, x.Kind())

	var c float32 = 1
	core := peel(Scale(float32(4), x), &c)
	require.Equal(t, float32(4), c)
	require.True(t, core == x)

	prod := mulCore(Scale(float32(3), MatMul(Leaf(m), Leaf(m))))
	require.IsType(t, &matMul[float32]{}, prod)
}

func TestEvalFloat32(t *testing.T) {
	e := New(kernel.BLAS[float32]())
	ctx := context.Background()

	a := dense.Constant[float32](2, 2, 2)
	b := dense.Constant[float32](2, 2, 3)
	res, err := e.Eval(ctx, MatMul(Leaf(a), Leaf(b)))
	require.NoError(t, err)
	require.Equal(t, 1, res.KernelCalls)
	require.True(t, res.Matrix.Equal(dense.Constant[float32](2, 2, 12)))
	require.Equal(t, "blas32", e.Backend())
}
