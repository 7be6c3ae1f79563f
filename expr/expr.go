// Package expr provides a lazy algebraic expression layer over dense views
// and the fusion engine that evaluates it. Building an expression performs
// no arithmetic; evaluation pattern-matches the tree and rewrites it into
// the fewest kernel calls that produce the same result.
package expr

import (
	"fmt"

	"github.com/23skdu/longbow-vane/dense"
)

// Kind classifies what an expression evaluates to.
type Kind int

const (
	KindMatrix Kind = iota
	KindVector
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindMatrix:
		return "matrix"
	case KindVector:
		return "vector"
	case KindScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// Expr is an immutable expression node. Nodes own no buffers until
// evaluation; leaves reference the caller's views without copying.
type Expr[T dense.Float] interface {
	// Kind returns the result class of the node.
	Kind() Kind
	// Dims returns the result dimensions. Vectors report (n, 1) and
	// scalars (1, 1).
	Dims() (rows, cols int)
	// elem pins the element type to the node, sealing the set to the
	// package builders and letting it flow through composed calls.
	elem() T
}

type leaf[T dense.Float] struct{ m dense.Matrix[T] }

func (n *leaf[T]) Kind() Kind       { return KindMatrix }
func (n *leaf[T]) Dims() (int, int) { return n.m.Dims() }
func (n *leaf[T]) elem() (_ T)      { return }

type vecLeaf[T dense.Float] struct{ v dense.Vector[T] }

func (n *vecLeaf[T]) Kind() Kind       { return KindVector }
func (n *vecLeaf[T]) Dims() (int, int) { return n.v.Len(), 1 }
func (n *vecLeaf[T]) elem() (_ T)      { return }

type scale[T dense.Float] struct {
	c T
	x Expr[T]
}

func (n *scale[T]) Kind() Kind       { return n.x.Kind() }
func (n *scale[T]) Dims() (int, int) { return n.x.Dims() }
func (n *scale[T]) elem() (_ T)      { return }

type add[T dense.Float] struct{ a, b Expr[T] }

func (n *add[T]) Kind() Kind       { return n.a.Kind() }
func (n *add[T]) Dims() (int, int) { return n.a.Dims() }
func (n *add[T]) elem() (_ T)      { return }

type sub[T dense.Float] struct{ a, b Expr[T] }

func (n *sub[T]) Kind() Kind       { return n.a.Kind() }
func (n *sub[T]) Dims() (int, int) { return n.a.Dims() }
func (n *sub[T]) elem() (_ T)      { return }

type hadamard[T dense.Float] struct{ a, b Expr[T] }

func (n *hadamard[T]) Kind() Kind       { return n.a.Kind() }
func (n *hadamard[T]) Dims() (int, int) { return n.a.Dims() }
func (n *hadamard[T]) elem() (_ T)      { return }

type dot[T dense.Float] struct{ a, b Expr[T] }

func (n *dot[T]) Kind() Kind       { return KindScalar }
func (n *dot[T]) Dims() (int, int) { return 1, 1 }
func (n *dot[T]) elem() (_ T)      { return }

type matVec[T dense.Float] struct{ a, x Expr[T] }

func (n *matVec[T]) Kind() Kind { return KindVector }
func (n *matVec[T]) Dims() (int, int) {
	r, _ := n.a.Dims()
	return r, 1
}
func (n *matVec[T]) elem() (_ T) { return }

type matMul[T dense.Float] struct{ a, b Expr[T] }

func (n *matMul[T]) Kind() Kind { return KindMatrix }
func (n *matMul[T]) Dims() (int, int) {
	r, _ := n.a.Dims()
	_, c := n.b.Dims()
	return r, c
}
func (n *matMul[T]) elem() (_ T) { return }

// Leaf lifts a matrix view into an expression without copying.
func Leaf[T dense.Float](m dense.Matrix[T]) Expr[T] { return &leaf[T]{m: m} }

// Vec lifts a vector view into an expression without copying.
func Vec[T dense.Float](v dense.Vector[T]) Expr[T] { return &vecLeaf[T]{v: v} }

// Scale multiplies an expression by a scalar coefficient.
func Scale[T dense.Float](c T, x Expr[T]) Expr[T] { return &scale[T]{c: c, x: x} }

// Add builds the element-wise sum of two expressions of equal kind and
// shape.
func Add[T dense.Float](a, b Expr[T]) Expr[T] { return &add[T]{a: a, b: b} }

// Sub builds the element-wise difference a - b.
func Sub[T dense.Float](a, b Expr[T]) Expr[T] { return &sub[T]{a: a, b: b} }

// Hadamard builds the element-wise product of two expressions of equal kind
// and shape.
func Hadamard[T dense.Float](a, b Expr[T]) Expr[T] { return &hadamard[T]{a: a, b: b} }

// Dot builds the dot product of two equal-length vector expressions.
func Dot[T dense.Float](a, b Expr[T]) Expr[T] { return &dot[T]{a: a, b: b} }

// MatVec builds the matrix-vector product a * x.
func MatVec[T dense.Float](a, x Expr[T]) Expr[T] { return &matVec[T]{a: a, x: x} }

// MatMul builds the matrix-matrix product a * b.
func MatMul[T dense.Float](a, b Expr[T]) Expr[T] { return &matMul[T]{a: a, b: b} }

// validate walks the tree bottom-up and checks kinds and shapes. It runs
// before any kernel call so an invalid expression has no partial side
// effects.
func validate[T dense.Float](x Expr[T]) error {
	switch n := x.(type) {
	case *leaf[T], *vecLeaf[T]:
		return nil
	case *scale[T]:
		return validate(n.x)
	case *add[T]:
		return validatePair[T]("add", n.a, n.b)
	case *sub[T]:
		return validatePair[T]("sub", n.a, n.b)
	case *hadamard[T]:
		return validatePair[T]("hadamard", n.a, n.b)
	case *dot[T]:
		if err := validate(n.a); err != nil {
			return err
		}
		if err := validate(n.b); err != nil {
			return err
		}
		if n.a.Kind() != KindVector || n.b.Kind() != KindVector {
			return fmt.Errorf("expr: dot of %s and %s: %w", n.a.Kind(), n.b.Kind(), dense.ErrShape)
		}
		an, _ := n.a.Dims()
		bn, _ := n.b.Dims()
		if an != bn {
			return fmt.Errorf("expr: dot of lengths %d and %d: %w", an, bn, dense.ErrShape)
		}
		return nil
	case *matVec[T]:
		if err := validate(n.a); err != nil {
			return err
		}
		if err := validate(n.x); err != nil {
			return err
		}
		if n.a.Kind() != KindMatrix || n.x.Kind() != KindVector {
			return fmt.Errorf("expr: matvec of %s and %s: %w", n.a.Kind(), n.x.Kind(), dense.ErrShape)
		}
		_, ac := n.a.Dims()
		xn, _ := n.x.Dims()
		if ac != xn {
			return fmt.Errorf("expr: matvec inner dims %d and %d: %w", ac, xn, dense.ErrShape)
		}
		return nil
	case *matMul[T]:
		if err := validate(n.a); err != nil {
			return err
		}
		if err := validate(n.b); err != nil {
			return err
		}
		if n.a.Kind() != KindMatrix || n.b.Kind() != KindMatrix {
			return fmt.Errorf("expr: matmul of %s and %s: %w", n.a.Kind(), n.b.Kind(), dense.ErrShape)
		}
		_, ac := n.a.Dims()
		br, _ := n.b.Dims()
		if ac != br {
			return fmt.Errorf("expr: matmul inner dims %d and %d: %w", ac, br, dense.ErrShape)
		}
		return nil
	default:
		return fmt.Errorf("expr: unknown node %T: %w", x, dense.ErrShape)
	}
}

func validatePair[T dense.Float](op string, a, b Expr[T]) error {
	if err := validate(a); err != nil {
		return err
	}
	if err := validate(b); err != nil {
		return err
	}
	if a.Kind() == KindScalar || a.Kind() != b.Kind() {
		return fmt.Errorf("expr: %s of %s and %s: %w", op, a.Kind(), b.Kind(), dense.ErrShape)
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return fmt.Errorf("expr: %s of %dx%d and %dx%d: %w", op, ar, ac, br, bc, dense.ErrShape)
	}
	return nil
}

// depth measures subtree height; the engine prefers fusing the deeper
// subtree when rules compete, with ties going left-to-right.
func depth[T dense.Float](x Expr[T]) int {
	switch n := x.(type) {
	case *scale[T]:
		return 1 + depth(n.x)
	case *add[T]:
		return 1 + max(depth(n.a), depth(n.b))
	case *sub[T]:
		return 1 + max(depth(n.a), depth(n.b))
	case *hadamard[T]:
		return 1 + max(depth(n.a), depth(n.b))
	case *dot[T]:
		return 1 + max(depth(n.a), depth(n.b))
	case *matVec[T]:
		return 1 + max(depth(n.a), depth(n.x))
	case *matMul[T]:
		return 1 + max(depth(n.a), depth(n.b))
	default:
		return 1
	}
}

// peel strips nested Scale nodes, folding their coefficients into alpha,
// and returns the core expression.
func peel[T dense.Float](x Expr[T], alpha *T) Expr[T] {
	for {
		s, ok := x.(*scale[T])
		if !ok {
			return x
		}
		*alpha *= s.c
		x = s.x
	}
}

// mulCore returns the product node at the root of x under any Scale
// wrappers, or nil when x is not a product subtree.
func mulCore[T dense.Float](x Expr[T]) Expr[T] {
	var one T = 1
	core := peel(x, &one)
	switch core.(type) {
	case *matMul[T], *matVec[T]:
		return core
	}
	return nil
}
