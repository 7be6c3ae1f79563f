package expr

import (
	"fmt"

	"github.com/23skdu/longbow-vane/dense"
	"github.com/23skdu/longbow-vane/kernel"
)

func nop() {}

// eval dispatches one node, applying the fusion rules in order. Children
// that match no rule are evaluated recursively first (rule of last resort).
func (e *Engine[T]) eval(x Expr[T]) (value[T], error) {
	switch n := x.(type) {
	case *leaf[T]:
		return value[T]{kind: KindMatrix, mat: n.m}, nil
	case *vecLeaf[T]:
		return value[T]{kind: KindVector, vec: n.v}, nil
	case *scale[T]:
		return e.evalScale(n.c, n.x)
	case *add[T]:
		return e.evalSum(n.a, n.b, 1)
	case *sub[T]:
		return e.evalSum(n.a, n.b, -1)
	case *hadamard[T]:
		return e.evalHadamard(n)
	case *dot[T]:
		return e.evalDot(n)
	case *matVec[T]:
		return e.evalMatVec(1, n)
	case *matMul[T]:
		return e.evalMatMul(1, n)
	default:
		return value[T]{}, fmt.Errorf("expr: unknown node %T: %w", x, dense.ErrShape)
	}
}

// evalScale folds the coefficient into whatever kernel evaluates the
// child: the alpha of a product, the result of a dot, or a single Scal on
// a fresh copy.
func (e *Engine[T]) evalScale(c T, x Expr[T]) (value[T], error) {
	switch n := x.(type) {
	case *scale[T]:
		return e.evalScale(c*n.c, n.x)
	case *matMul[T]:
		return e.evalMatMul(c, n)
	case *matVec[T]:
		return e.evalMatVec(c, n)
	case *dot[T]:
		v, err := e.evalDot(n)
		if err != nil {
			return value[T]{}, err
		}
		v.scalar *= c
		return v, nil
	}

	v, err := e.eval(x)
	if err != nil {
		return value[T]{}, err
	}
	switch v.kind {
	case KindMatrix:
		out := e.ownedMat(v)
		e.logRule("scal-copy")
		e.backend.Scal(c, flatVec(out))
		return value[T]{kind: KindMatrix, mat: out, owned: true}, nil
	case KindVector:
		out := e.ownedVec(v)
		e.logRule("scal-copy")
		e.backend.Scal(c, kernel.VecOperand(out))
		return value[T]{kind: KindVector, vec: out, owned: true}, nil
	default:
		v.scalar *= c
		return v, nil
	}
}

// evalSum computes a + sign*b. A product subtree on either side fuses into
// a single accumulating GEMM/GEMV; otherwise the sum collapses to one AXPY
// (plus one Scal when both sides carry non-unit coefficients).
func (e *Engine[T]) evalSum(a, b Expr[T], sign T) (value[T], error) {
	coreA, coreB := mulCore(a), mulCore(b)
	if coreA != nil || coreB != nil {
		// The deeper product subtree is fused; ties go left.
		if coreA != nil && (coreB == nil || depth(a) >= depth(b)) {
			base, err := e.eval(b)
			if err != nil {
				return value[T]{}, err
			}
			return e.accumulate(a, 1, base, sign)
		}
		base, err := e.eval(a)
		if err != nil {
			return value[T]{}, err
		}
		return e.accumulate(b, sign, base, 1)
	}

	ca, cb := T(1), sign
	pa := peel(a, &ca)
	pb := peel(b, &cb)
	va, err := e.eval(pa)
	if err != nil {
		return value[T]{}, err
	}
	vb, err := e.eval(pb)
	if err != nil {
		return value[T]{}, err
	}

	// Accumulate onto the side whose coefficient is one, saving a Scal.
	switch {
	case ca == 1:
		return e.axpy(cb, vb, va)
	case cb == 1:
		return e.axpy(ca, va, vb)
	}
	if va.kind == KindMatrix {
		out := e.ownedMat(va)
		e.backend.Scal(ca, flatVec(out))
		return e.axpy(cb, vb, value[T]{kind: KindMatrix, mat: out, owned: true})
	}
	out := e.ownedVec(va)
	e.backend.Scal(ca, kernel.VecOperand(out))
	return e.axpy(cb, vb, value[T]{kind: KindVector, vec: out, owned: true})
}

// axpy computes base + alpha*x in one kernel call, accumulating into an
// owned copy of base.
func (e *Engine[T]) axpy(alpha T, x, base value[T]) (value[T], error) {
	if base.kind == KindVector {
		out := e.ownedVec(base)
		e.logRule("axpy")
		e.backend.Axpy(alpha, kernel.VecOperand(x.vec), kernel.VecOperand(out))
		return value[T]{kind: KindVector, vec: out, owned: true}, nil
	}
	out := e.ownedMat(base)
	xv, release := e.matAsVec(x.mat, out.Order())
	e.logRule("axpy")
	e.backend.Axpy(alpha, xv, flatVec(out))
	release()
	return value[T]{kind: KindMatrix, mat: out, owned: true}, nil
}

// accumulate computes alpha*product(x) + beta*base in a single fused
// GEMM/GEMV call, accumulating into an owned copy of base.
func (e *Engine[T]) accumulate(x Expr[T], alpha T, base value[T], beta T) (value[T], error) {
	core := peel(x, &alpha)
	switch n := core.(type) {
	case *matMul[T]:
		out := e.ownedMat(base)
		aOp, relA, err := e.matOperand(n.a, &alpha)
		if err != nil {
			return value[T]{}, err
		}
		bOp, relB, err := e.matOperand(n.b, &alpha)
		if err != nil {
			relA()
			return value[T]{}, err
		}
		cOp, err := kernel.MatOperand(out)
		if err != nil {
			relA()
			relB()
			return value[T]{}, err
		}
		e.logRule("gemm-acc")
		e.log.Debug().Bool("ta", aOp.Trans).Bool("tb", bOp.Trans).Msg("fused gemm accumulate")
		e.backend.Gemm(alpha, aOp, bOp, beta, cOp)
		relA()
		relB()
		return value[T]{kind: KindMatrix, mat: out, owned: true}, nil
	case *matVec[T]:
		out := e.ownedVec(base)
		aOp, relA, err := e.matOperand(n.a, &alpha)
		if err != nil {
			return value[T]{}, err
		}
		xOp, relX, err := e.vecOperand(n.x, &alpha)
		if err != nil {
			relA()
			return value[T]{}, err
		}
		e.logRule("gemv-acc")
		e.backend.Gemv(alpha, aOp, xOp, beta, kernel.VecOperand(out))
		relA()
		relX()
		return value[T]{kind: KindVector, vec: out, owned: true}, nil
	default:
		return value[T]{}, fmt.Errorf("expr: accumulate on %T: %w", core, dense.ErrShape)
	}
}

func (e *Engine[T]) evalMatMul(alpha T, n *matMul[T]) (value[T], error) {
	aOp, relA, err := e.matOperand(n.a, &alpha)
	if err != nil {
		return value[T]{}, err
	}
	bOp, relB, err := e.matOperand(n.b, &alpha)
	if err != nil {
		relA()
		return value[T]{}, err
	}
	rows, cols := n.Dims()
	out := dense.Zeros[T](rows, cols)
	cOp, err := kernel.MatOperand(out)
	if err != nil {
		relA()
		relB()
		return value[T]{}, err
	}
	e.logRule("gemm")
	e.log.Debug().Bool("ta", aOp.Trans).Bool("tb", bOp.Trans).Msg("fused gemm dispatch")
	e.backend.Gemm(alpha, aOp, bOp, 0, cOp)
	relA()
	relB()
	return value[T]{kind: KindMatrix, mat: out, owned: true}, nil
}

func (e *Engine[T]) evalMatVec(alpha T, n *matVec[T]) (value[T], error) {
	aOp, relA, err := e.matOperand(n.a, &alpha)
	if err != nil {
		return value[T]{}, err
	}
	xOp, relX, err := e.vecOperand(n.x, &alpha)
	if err != nil {
		relA()
		return value[T]{}, err
	}
	rows, _ := n.Dims()
	out := dense.NewVector[T](rows)
	e.logRule("gemv")
	e.backend.Gemv(alpha, aOp, xOp, 0, kernel.VecOperand(out))
	relA()
	relX()
	return value[T]{kind: KindVector, vec: out, owned: true}, nil
}

func (e *Engine[T]) evalDot(n *dot[T]) (value[T], error) {
	alpha := T(1)
	xOp, relX, err := e.vecOperand(n.a, &alpha)
	if err != nil {
		return value[T]{}, err
	}
	yOp, relY, err := e.vecOperand(n.b, &alpha)
	if err != nil {
		relX()
		return value[T]{}, err
	}
	e.logRule("dot")
	s := e.backend.Dot(xOp, yOp)
	relX()
	relY()
	return value[T]{kind: KindScalar, scalar: alpha * s}, nil
}

func (e *Engine[T]) evalHadamard(n *hadamard[T]) (value[T], error) {
	va, err := e.eval(n.a)
	if err != nil {
		return value[T]{}, err
	}
	vb, err := e.eval(n.b)
	if err != nil {
		return value[T]{}, err
	}
	if va.kind == KindVector {
		out := dense.NewVector[T](va.vec.Len())
		e.logRule("emul")
		e.backend.EMul(kernel.VecOperand(va.vec), kernel.VecOperand(vb.vec), kernel.VecOperand(out))
		return value[T]{kind: KindVector, vec: out, owned: true}, nil
	}
	order := va.mat.Order()
	rows, cols := va.mat.Dims()
	xv, relX := e.matAsVec(va.mat, order)
	yv, relY := e.matAsVec(vb.mat, order)
	out := dense.Zeros[T](rows, cols, dense.WithOrder(order))
	e.logRule("emul")
	e.backend.EMul(xv, yv, flatVec(out))
	relX()
	relY()
	return value[T]{kind: KindMatrix, mat: out, owned: true}, nil
}

// matOperand resolves an expression into a zero-copy kernel matrix operand
// when possible: leaf layouts (including transposed views) dispatch in
// place with transpose flags, nested Scale coefficients fold into alpha,
// and anything else is evaluated recursively first.
func (e *Engine[T]) matOperand(x Expr[T], alpha *T) (kernel.Mat[T], func(), error) {
	x = peel(x, alpha)
	if lf, ok := x.(*leaf[T]); ok {
		op, err := kernel.MatOperand(lf.m)
		if err == nil {
			return op, nop, nil
		}
		// No BLAS-expressible layout: pack into scratch storage.
		return e.packMat(lf.m)
	}
	v, err := e.eval(x)
	if err != nil {
		return kernel.Mat[T]{}, nop, err
	}
	op, err := kernel.MatOperand(v.mat)
	if err != nil {
		return kernel.Mat[T]{}, nop, err
	}
	return op, nop, nil
}

// vecOperand resolves an expression into a kernel vector operand. Leaf
// vectors dispatch in place whatever their stride.
func (e *Engine[T]) vecOperand(x Expr[T], alpha *T) (kernel.Vec[T], func(), error) {
	x = peel(x, alpha)
	if vl, ok := x.(*vecLeaf[T]); ok {
		return kernel.VecOperand(vl.v), nop, nil
	}
	v, err := e.eval(x)
	if err != nil {
		return kernel.Vec[T]{}, nop, err
	}
	return kernel.VecOperand(v.vec), nop, nil
}

// flatVec views an engine-owned contiguous matrix as a unit-stride vector.
func flatVec[T dense.Float](m dense.Matrix[T]) kernel.Vec[T] {
	rows, cols := m.Dims()
	raw := m.Raw()
	return kernel.Vec[T]{N: rows * cols, Inc: 1, Data: raw.Data[:rows*cols]}
}

// matAsVec flattens a matrix into a unit-stride vector traversed in the
// given order. Views already contiguous in that order flatten in place;
// anything else is copied into scratch storage, released by the returned
// func after dispatch.
func (e *Engine[T]) matAsVec(m dense.Matrix[T], order dense.Order) (kernel.Vec[T], func()) {
	if m.Contiguous() && m.Order() == order {
		return flatVec(m), nop
	}
	rows, cols := m.Dims()
	buf := e.scratch.get(rows * cols)
	idx := 0
	if order == dense.RowMajor {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				buf[idx] = m.At(i, j)
				idx++
			}
		}
	} else {
		for j := 0; j < cols; j++ {
			for i := 0; i < rows; i++ {
				buf[idx] = m.At(i, j)
				idx++
			}
		}
	}
	return kernel.Vec[T]{N: rows * cols, Inc: 1, Data: buf}, func() { e.scratch.put(buf) }
}

// packMat copies a view with no BLAS-expressible strides into scratch
// row-major storage.
func (e *Engine[T]) packMat(m dense.Matrix[T]) (kernel.Mat[T], func(), error) {
	rows, cols := m.Dims()
	buf := e.scratch.get(rows * cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			buf[i*cols+j] = m.At(i, j)
		}
	}
	op := kernel.Mat[T]{Rows: rows, Cols: cols, Stride: max(cols, 1), Data: buf}
	return op, func() { e.scratch.put(buf) }, nil
}

func (e *Engine[T]) logRule(rule string) {
	fusionDispatches.WithLabelValues(rule).Inc()
	e.log.Debug().Str("rule", rule).Msg("fusion dispatch")
}
