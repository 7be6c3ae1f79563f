package device

import (
	"fmt"
	"sync"

	"github.com/23skdu/longbow-vane/dense"
	"github.com/23skdu/longbow-vane/kernel"
)

// ensure interface compliance
var _ Device = (*HostDevice)(nil)
var _ Matrix = (*hostMatrix)(nil)

// HostDevice is the reference device: storage lives in host memory and
// every operation completes before returning. It dispatches through the
// same kernel backends the fusion engine uses.
type HostDevice struct {
	b32 kernel.Backend[float32]
	b64 kernel.Backend[float64]

	pool32 sync.Pool
	pool64 sync.Pool
}

// NewHostDevice builds a host device over the BLAS-backed kernels.
func NewHostDevice() *HostDevice {
	return &HostDevice{
		b32: kernel.BLAS[float32](),
		b64: kernel.BLAS[float64](),
	}
}

func (d *HostDevice) Name() string { return "host" }

// Synchronize is a no-op; the host device is always synchronous.
func (d *HostDevice) Synchronize() {}

func (d *HostDevice) NewMatrix(rows, cols int, p dense.Precision) (Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("device: allocate %dx%d: %w", rows, cols, dense.ErrShape)
	}
	m := &hostMatrix{dev: d, rows: rows, cols: cols, prec: p}
	size := rows * cols
	switch p {
	case dense.Float32:
		m.f32 = d.get32(size)
	case dense.Float64:
		m.f64 = d.get64(size)
	default:
		return nil, fmt.Errorf("device: allocate precision %s: %w", p, dense.ErrPrecision)
	}
	return m, nil
}

func (d *HostDevice) get32(n int) []float32 {
	if v := d.pool32.Get(); v != nil {
		buf := v.([]float32)
		if cap(buf) >= n {
			poolHits.Inc()
			buf = buf[:n]
			clear(buf)
			return buf
		}
	}
	poolMisses.Inc()
	return make([]float32, n)
}

func (d *HostDevice) get64(n int) []float64 {
	if v := d.pool64.Get(); v != nil {
		buf := v.([]float64)
		if cap(buf) >= n {
			poolHits.Inc()
			buf = buf[:n]
			clear(buf)
			return buf
		}
	}
	poolMisses.Inc()
	return make([]float64, n)
}

// hostMatrix is HostDevice's handle: a flat row-major slice in whichever
// precision the tag names.
type hostMatrix struct {
	dev        *HostDevice
	rows, cols int
	prec       dense.Precision
	f32        []float32
	f64        []float64
}

func (m *hostMatrix) Dims() (int, int)           { return m.rows, m.cols }
func (m *hostMatrix) Precision() dense.Precision { return m.prec }

func (m *hostMatrix) vec32() kernel.Vec[float32] {
	return kernel.Vec[float32]{N: len(m.f32), Inc: 1, Data: m.f32}
}

func (m *hostMatrix) vec64() kernel.Vec[float64] {
	return kernel.Vec[float64]{N: len(m.f64), Inc: 1, Data: m.f64}
}

func (m *hostMatrix) mat32() kernel.Mat[float32] {
	return kernel.Mat[float32]{Rows: m.rows, Cols: m.cols, Stride: max(m.cols, 1), Data: m.f32}
}

func (m *hostMatrix) mat64() kernel.Mat[float64] {
	return kernel.Mat[float64]{Rows: m.rows, Cols: m.cols, Stride: max(m.cols, 1), Data: m.f64}
}

// sibling checks that other is a handle on the same host device with the
// receiver's precision.
func (m *hostMatrix) sibling(other Matrix) (*hostMatrix, error) {
	o, ok := other.(*hostMatrix)
	if !ok || o.dev != m.dev {
		return nil, fmt.Errorf("device: operand resides on a different device: %w", dense.ErrBackend)
	}
	if o.prec != m.prec {
		return nil, fmt.Errorf("device: operand precision %s, want %s: %w", o.prec, m.prec, dense.ErrPrecision)
	}
	return o, nil
}

func (m *hostMatrix) Scale(alpha float64) error {
	switch m.prec {
	case dense.Float32:
		m.dev.b32.Scal(float32(alpha), m.vec32())
	default:
		m.dev.b64.Scal(alpha, m.vec64())
	}
	return nil
}

func (m *hostMatrix) Add(other Matrix) error {
	o, err := m.sibling(other)
	if err != nil {
		return err
	}
	if o.rows != m.rows || o.cols != m.cols {
		return fmt.Errorf("device: add %dx%d to %dx%d: %w", o.rows, o.cols, m.rows, m.cols, dense.ErrShape)
	}
	switch m.prec {
	case dense.Float32:
		m.dev.b32.Axpy(1, o.vec32(), m.vec32())
	default:
		m.dev.b64.Axpy(1, o.vec64(), m.vec64())
	}
	return nil
}

func (m *hostMatrix) Sub(other Matrix) error {
	o, err := m.sibling(other)
	if err != nil {
		return err
	}
	if o.rows != m.rows || o.cols != m.cols {
		return fmt.Errorf("device: sub %dx%d from %dx%d: %w", o.rows, o.cols, m.rows, m.cols, dense.ErrShape)
	}
	switch m.prec {
	case dense.Float32:
		m.dev.b32.Axpy(-1, o.vec32(), m.vec32())
	default:
		m.dev.b64.Axpy(-1, o.vec64(), m.vec64())
	}
	return nil
}

func (m *hostMatrix) Hadamard(other Matrix) error {
	o, err := m.sibling(other)
	if err != nil {
		return err
	}
	if o.rows != m.rows || o.cols != m.cols {
		return fmt.Errorf("device: hadamard %dx%d with %dx%d: %w", m.rows, m.cols, o.rows, o.cols, dense.ErrShape)
	}
	switch m.prec {
	case dense.Float32:
		m.dev.b32.EMul(m.vec32(), o.vec32(), m.vec32())
	default:
		m.dev.b64.EMul(m.vec64(), o.vec64(), m.vec64())
	}
	return nil
}

func (m *hostMatrix) Dot(other Matrix) (float64, error) {
	o, err := m.sibling(other)
	if err != nil {
		return 0, err
	}
	if o.rows != m.rows || o.cols != m.cols {
		return 0, fmt.Errorf("device: dot %dx%d with %dx%d: %w", m.rows, m.cols, o.rows, o.cols, dense.ErrShape)
	}
	switch m.prec {
	case dense.Float32:
		return float64(m.dev.b32.Dot(m.vec32(), o.vec32())), nil
	default:
		return m.dev.b64.Dot(m.vec64(), o.vec64()), nil
	}
}

func (m *hostMatrix) MatVec(a, x Matrix) error {
	ah, err := m.sibling(a)
	if err != nil {
		return err
	}
	xh, err := m.sibling(x)
	if err != nil {
		return err
	}
	if xh.cols != 1 || m.cols != 1 || ah.cols != xh.rows || ah.rows != m.rows {
		return fmt.Errorf("device: matvec %dx%d by %dx%d into %dx%d: %w",
			ah.rows, ah.cols, xh.rows, xh.cols, m.rows, m.cols, dense.ErrShape)
	}
	switch m.prec {
	case dense.Float32:
		m.dev.b32.Gemv(1, ah.mat32(), xh.vec32(), 0, m.vec32())
	default:
		m.dev.b64.Gemv(1, ah.mat64(), xh.vec64(), 0, m.vec64())
	}
	return nil
}

func (m *hostMatrix) MatMul(a, b Matrix) error {
	ah, err := m.sibling(a)
	if err != nil {
		return err
	}
	bh, err := m.sibling(b)
	if err != nil {
		return err
	}
	if ah.cols != bh.rows || ah.rows != m.rows || bh.cols != m.cols {
		return fmt.Errorf("device: matmul %dx%d by %dx%d into %dx%d: %w",
			ah.rows, ah.cols, bh.rows, bh.cols, m.rows, m.cols, dense.ErrShape)
	}
	switch m.prec {
	case dense.Float32:
		m.dev.b32.Gemm(1, ah.mat32(), bh.mat32(), 0, m.mat32())
	default:
		m.dev.b64.Gemm(1, ah.mat64(), bh.mat64(), 0, m.mat64())
	}
	return nil
}

func (m *hostMatrix) Apply(f func(float64) float64) error {
	switch m.prec {
	case dense.Float32:
		m.dev.b32.Apply(func(v float32) float32 { return float32(f(float64(v))) }, m.vec32(), m.vec32())
	default:
		m.dev.b64.Apply(f, m.vec64(), m.vec64())
	}
	return nil
}

func (m *hostMatrix) CopyFrom(data any) error {
	switch m.prec {
	case dense.Float32:
		src, ok := data.([]float32)
		if !ok {
			return fmt.Errorf("device: copy %T into float32 handle: %w", data, dense.ErrPrecision)
		}
		if len(src) != len(m.f32) {
			return fmt.Errorf("device: copy %d elements into %dx%d handle: %w", len(src), m.rows, m.cols, dense.ErrShape)
		}
		copy(m.f32, src)
	default:
		src, ok := data.([]float64)
		if !ok {
			return fmt.Errorf("device: copy %T into float64 handle: %w", data, dense.ErrPrecision)
		}
		if len(src) != len(m.f64) {
			return fmt.Errorf("device: copy %d elements into %dx%d handle: %w", len(src), m.rows, m.cols, dense.ErrShape)
		}
		copy(m.f64, src)
	}
	return nil
}

func (m *hostMatrix) CopyTo(data any) error {
	switch m.prec {
	case dense.Float32:
		dst, ok := data.([]float32)
		if !ok {
			return fmt.Errorf("device: copy float32 handle into %T: %w", data, dense.ErrPrecision)
		}
		if len(dst) != len(m.f32) {
			return fmt.Errorf("device: copy %dx%d handle into %d elements: %w", m.rows, m.cols, len(dst), dense.ErrShape)
		}
		copy(dst, m.f32)
	default:
		dst, ok := data.([]float64)
		if !ok {
			return fmt.Errorf("device: copy float64 handle into %T: %w", data, dense.ErrPrecision)
		}
		if len(dst) != len(m.f64) {
			return fmt.Errorf("device: copy %dx%d handle into %d elements: %w", m.rows, m.cols, len(dst), dense.ErrShape)
		}
		copy(dst, m.f64)
	}
	return nil
}

func (m *hostMatrix) Free() {
	switch m.prec {
	case dense.Float32:
		if m.f32 != nil {
			m.dev.pool32.Put(m.f32)
			m.f32 = nil
		}
	default:
		if m.f64 != nil {
			m.dev.pool64.Put(m.f64)
			m.f64 = nil
		}
	}
	m.rows, m.cols = 0, 0
}
