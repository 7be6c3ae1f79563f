// Package device defines the transfer boundary between typed host views
// and device-resident storage. Handles are opaque and precision-tagged;
// the host never addresses device elements directly, data moves only
// through Upload and Download.
package device

import (
	"fmt"

	"github.com/23skdu/longbow-vane/dense"
)

// Matrix is a device-resident matrix handle. Arithmetic runs where the
// data lives; operand precisions and shapes are checked at call time
// because the boundary is untyped.
type Matrix interface {
	// Dims returns the dimensions (rows, cols) of the handle.
	Dims() (int, int)

	// Precision returns the element precision recorded at allocation.
	Precision() dense.Precision

	// Scale multiplies the handle in place by alpha.
	Scale(alpha float64) error

	// Add accumulates other into the receiver element-wise.
	Add(other Matrix) error

	// Sub subtracts other from the receiver element-wise.
	Sub(other Matrix) error

	// Hadamard multiplies the receiver by other element-wise.
	Hadamard(other Matrix) error

	// Dot returns the dot product of the receiver and other, both read
	// flattened row-major.
	Dot(other Matrix) (float64, error)

	// MatVec writes a * x into the receiver; x and the receiver are
	// single-column handles.
	MatVec(a, x Matrix) error

	// MatMul writes a * b into the receiver.
	MatMul(a, b Matrix) error

	// Apply maps f over every element in place.
	Apply(f func(float64) float64) error

	// CopyFrom fills the handle from a row-major host slice. data must be
	// a []float32 or []float64 matching the handle precision.
	CopyFrom(data any) error

	// CopyTo copies the handle row-major into a host slice of matching
	// precision and length.
	CopyTo(data any) error

	// Free returns the handle's storage to the device. The handle must
	// not be used afterwards.
	Free()
}

// Device allocates and manages device-resident matrices.
type Device interface {
	Name() string

	// NewMatrix allocates a zeroed rows x cols handle of the given
	// precision.
	NewMatrix(rows, cols int, p dense.Precision) (Matrix, error)

	// Synchronize blocks until all queued operations are complete.
	Synchronize()
}

// Upload copies a host view onto the device. The handle's precision is
// taken from the view's element type; strided views are flattened
// row-major during the copy.
func Upload[T dense.Float](d Device, m dense.Matrix[T]) (Matrix, error) {
	rows, cols := m.Dims()
	h, err := d.NewMatrix(rows, cols, dense.PrecisionOf[T]())
	if err != nil {
		return nil, err
	}
	buf := make([]T, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			buf[i*cols+j] = m.At(i, j)
		}
	}
	if err := h.CopyFrom(buf); err != nil {
		h.Free()
		return nil, err
	}
	uploadsTotal.WithLabelValues(d.Name()).Inc()
	return h, nil
}

// Download copies a device handle back into a fresh host matrix. The
// requested element type must match the handle's precision tag.
func Download[T dense.Float](d Device, h Matrix) (dense.Matrix[T], error) {
	if want := dense.PrecisionOf[T](); h.Precision() != want {
		return dense.Matrix[T]{}, fmt.Errorf("device: download %s handle as %s: %w", h.Precision(), want, dense.ErrPrecision)
	}
	d.Synchronize()
	rows, cols := h.Dims()
	buf := make([]T, rows*cols)
	if err := h.CopyTo(buf); err != nil {
		return dense.Matrix[T]{}, err
	}
	m, err := dense.Wrap(rows, cols, buf, dense.WithOrder(dense.RowMajor))
	if err != nil {
		return dense.Matrix[T]{}, err
	}
	downloadsTotal.WithLabelValues(d.Name()).Inc()
	return m, nil
}
