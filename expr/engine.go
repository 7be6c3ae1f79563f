package expr

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/23skdu/longbow-vane/dense"
	"github.com/23skdu/longbow-vane/kernel"
)

var tracer = otel.Tracer("vane-engine")

// Engine evaluates expressions against an injected kernel backend.
// Evaluation is synchronous: every kernel call completes before Eval
// returns. An Engine is not safe for concurrent use; the per-evaluation
// call accounting assumes a single caller.
type Engine[T dense.Float] struct {
	backend *kernel.Instrumented[T]
	log     zerolog.Logger
	scratch *scratch[T]
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	logger zerolog.Logger
}

// WithLogger attaches a zerolog logger; fusion decisions are logged at
// debug level. The default logger is disabled.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New builds an Engine over the given backend. The backend is selected once
// and injected here; tests substitute kernel.Reference for determinism.
func New[T dense.Float](b kernel.Backend[T], opts ...Option) *Engine[T] {
	cfg := config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine[T]{
		backend: kernel.Instrument(b),
		log:     cfg.logger,
		scratch: newScratch[T](),
	}
}

// Backend returns the name of the backend servicing this engine.
func (e *Engine[T]) Backend() string { return e.backend.Name() }

// Result is the output of one evaluation. Exactly one of Matrix, Vector or
// Scalar is meaningful, selected by Kind. KernelCalls is the number of
// backend calls the evaluation issued; memory copies are not kernel calls.
type Result[T dense.Float] struct {
	Kind        Kind
	Matrix      dense.Matrix[T]
	Vector      dense.Vector[T]
	Scalar      T
	KernelCalls int
}

// Eval validates the expression, rewrites it bottom-up against the fusion
// rules and dispatches the minimal kernel sequence. The result is always
// freshly allocated; it never aliases a leaf.
func (e *Engine[T]) Eval(ctx context.Context, x Expr[T]) (*Result[T], error) {
	_, span := tracer.Start(ctx, "expr.Eval")
	defer span.End()

	evalTotal.Inc()
	if err := validate(x); err != nil {
		span.RecordError(err)
		return nil, err
	}

	before := e.backend.Calls()
	v, err := e.eval(x)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	r := &Result[T]{Kind: v.kind, KernelCalls: int(e.backend.Calls() - before)}
	switch v.kind {
	case KindMatrix:
		r.Matrix = e.ownedMat(v)
	case KindVector:
		r.Vector = e.ownedVec(v)
	case KindScalar:
		r.Scalar = v.scalar
	}
	span.SetAttributes(
		attribute.String("kind", v.kind.String()),
		attribute.Int("kernel_calls", r.KernelCalls),
	)
	return r, nil
}

// EvalMatrix evaluates a matrix-kinded expression.
func (e *Engine[T]) EvalMatrix(ctx context.Context, x Expr[T]) (dense.Matrix[T], error) {
	r, err := e.Eval(ctx, x)
	if err != nil {
		return dense.Matrix[T]{}, err
	}
	if r.Kind != KindMatrix {
		return dense.Matrix[T]{}, fmt.Errorf("expr: expression evaluates to a %s: %w", r.Kind, dense.ErrShape)
	}
	return r.Matrix, nil
}

// EvalVector evaluates a vector-kinded expression.
func (e *Engine[T]) EvalVector(ctx context.Context, x Expr[T]) (dense.Vector[T], error) {
	r, err := e.Eval(ctx, x)
	if err != nil {
		return dense.Vector[T]{}, err
	}
	if r.Kind != KindVector {
		return dense.Vector[T]{}, fmt.Errorf("expr: expression evaluates to a %s: %w", r.Kind, dense.ErrShape)
	}
	return r.Vector, nil
}

// EvalScalar evaluates a scalar-kinded expression.
func (e *Engine[T]) EvalScalar(ctx context.Context, x Expr[T]) (T, error) {
	r, err := e.Eval(ctx, x)
	if err != nil {
		return 0, err
	}
	if r.Kind != KindScalar {
		return 0, fmt.Errorf("expr: expression evaluates to a %s: %w", r.Kind, dense.ErrShape)
	}
	return r.Scalar, nil
}

// EvalInto evaluates a matrix-kinded expression and writes the result into
// the caller-supplied view, which must have matching dimensions.
func (e *Engine[T]) EvalInto(ctx context.Context, dst dense.Matrix[T], x Expr[T]) error {
	xr, xc := x.Dims()
	dr, dc := dst.Dims()
	if x.Kind() != KindMatrix || xr != dr || xc != dc {
		return fmt.Errorf("expr: eval into %dx%d from %s %dx%d: %w", dr, dc, x.Kind(), xr, xc, dense.ErrShape)
	}
	m, err := e.EvalMatrix(ctx, x)
	if err != nil {
		return err
	}
	for i := 0; i < dr; i++ {
		for j := 0; j < dc; j++ {
			dst.Set(i, j, m.At(i, j))
		}
	}
	return nil
}

// value is an intermediate evaluation result. owned marks buffers the
// engine allocated itself, which are always contiguous and safe to mutate
// in place.
type value[T dense.Float] struct {
	kind   Kind
	mat    dense.Matrix[T]
	vec    dense.Vector[T]
	scalar T
	owned  bool
}

func (e *Engine[T]) ownedMat(v value[T]) dense.Matrix[T] {
	if v.owned {
		return v.mat
	}
	return v.mat.Clone()
}

func (e *Engine[T]) ownedVec(v value[T]) dense.Vector[T] {
	if v.owned {
		return v.vec
	}
	return v.vec.Clone()
}
