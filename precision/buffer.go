package precision

import (
	"fmt"
	"sync"

	"github.com/x448/float16"
)

// Buffer is a dense row-major multi-dimensional array tagged with its
// precision (§3 Data Model). Buffers are single-owner on the host side
// (§3 Lifetime and ownership) — no reference counting, unlike a dynamic
// tensor framework's copy-on-write buffers, since a compiled kernel is the
// only writer during a run and the main thread is the only writer between
// runs (§5).
type Buffer struct {
	data      []byte
	dims      []int
	strides   []int
	precision Precision
}

// Create allocates a zero-filled buffer of the given dims and precision and
// applies initOp to it. A size-zero buffer ("void", §3) is legal: dims may
// contain a zero. Empty dims are legal too and give a 0-D scalar buffer of
// one element.
func Create(precision Precision, dims []int, initOp InitOp) (*Buffer, error) {
	b := &Buffer{
		dims:      append([]int(nil), dims...),
		strides:   computeStrides(dims),
		precision: precision,
	}
	n, err := numElements(dims)
	if err != nil {
		return nil, err
	}
	b.data = make([]byte, n*precision.ByteWidth())
	if initOp != nil {
		if err := initOp.apply(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func numElements(dims []int) (int, error) {
	n := 1
	for i, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("precision: negative dim %d at axis %d", d, i)
		}
		n *= d
	}
	return n, nil
}

func computeStrides(dims []int) []int {
	strides := make([]int, len(dims))
	if len(dims) == 0 {
		return strides
	}
	strides[len(dims)-1] = 1
	for i := len(dims) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * dims[i+1]
	}
	return strides
}

// Dims returns the buffer's shape.
func (b *Buffer) Dims() []int { return append([]int(nil), b.dims...) }

// Precision returns the buffer's precision.
func (b *Buffer) Precision() Precision { return b.precision }

// NumElements returns the total element count (product of dims).
func (b *Buffer) NumElements() int {
	n, _ := numElements(b.dims)
	return n
}

// SizeInBytes returns the buffer's byte footprint.
func (b *Buffer) SizeInBytes() int {
	return len(b.data)
}

// Raw exposes the underlying byte storage for backend host<->device copies.
func (b *Buffer) Raw() []byte { return b.data }

func (b *Buffer) offset(idcs []int) (int, error) {
	if len(idcs) != len(b.dims) {
		return 0, fmt.Errorf("precision: expected %d indices, got %d", len(b.dims), len(idcs))
	}
	off := 0
	for i, idx := range idcs {
		if idx < 0 || idx >= b.dims[i] {
			return 0, fmt.Errorf("precision: index %d out of bounds for axis %d (size %d)", idx, i, b.dims[i])
		}
		off += idx * b.strides[i]
	}
	return off, nil
}

// GetAsFloat reads the element at idcs, converting to float64 regardless of
// the buffer's underlying precision.
func (b *Buffer) GetAsFloat(idcs []int) (float64, error) {
	off, err := b.offset(idcs)
	if err != nil {
		return 0, err
	}
	return b.readAt(off), nil
}

// SetFromFloat writes v (converting to the buffer's precision) at idcs.
func (b *Buffer) SetFromFloat(idcs []int, v float64) error {
	off, err := b.offset(idcs)
	if err != nil {
		return err
	}
	return b.writeAt(off, v)
}

func (b *Buffer) readAt(elemOffset int) float64 {
	w := b.precision.ByteWidth()
	base := elemOffset * w
	switch b.precision {
	case Byte:
		return float64(b.data[base])
	case Half:
		bits := uint16(b.data[base]) | uint16(b.data[base+1])<<8
		return float64(float16.Frombits(bits).Float32())
	case Single:
		bits := uint32(b.data[base]) | uint32(b.data[base+1])<<8 | uint32(b.data[base+2])<<16 | uint32(b.data[base+3])<<24
		return float64(float32FromBits(bits))
	case Double:
		bits := uint64(0)
		for i := 0; i < 8; i++ {
			bits |= uint64(b.data[base+i]) << (8 * i)
		}
		return float64FromBits(bits)
	default:
		panic("precision: unknown precision")
	}
}

// writeAt converts v into the buffer's precision, rounding for Byte and
// erroring (never silently truncating, §4.A) on overflow.
func (b *Buffer) writeAt(elemOffset int, v float64) error {
	w := b.precision.ByteWidth()
	base := elemOffset * w
	switch b.precision {
	case Byte:
		r := roundHalfAwayFromZero(v)
		if r < 0 || r > 255 {
			return fmt.Errorf("precision: value %v overflows byte precision (range [0,255])", v)
		}
		b.data[base] = byte(r)
	case Half:
		h := float16.Fromfloat32(float32(v))
		bits := h.Bits()
		b.data[base] = byte(bits)
		b.data[base+1] = byte(bits >> 8)
	case Single:
		bits := float32ToBits(float32(v))
		b.data[base] = byte(bits)
		b.data[base+1] = byte(bits >> 8)
		b.data[base+2] = byte(bits >> 16)
		b.data[base+3] = byte(bits >> 24)
	case Double:
		bits := float64ToBits(v)
		for i := 0; i < 8; i++ {
			b.data[base+i] = byte(bits >> (8 * i))
		}
	default:
		panic("precision: unknown precision")
	}
	return nil
}

func roundHalfAwayFromZero(v float64) int64 {
	if v >= 0 {
		return int64(v + 0.5)
	}
	return int64(v - 0.5)
}

// Fold reduces over every element in row-major order, starting from init.
func (b *Buffer) Fold(init float64, f func(acc, v float64) float64) float64 {
	acc := init
	n := b.NumElements()
	for i := 0; i < n; i++ {
		acc = f(acc, b.readAt(i))
	}
	return acc
}

// FillFromFloat sets every element to v, fanning the writes out across
// goroutines for buffers large enough to clear parallelRange's chunk
// threshold (§6 ambient stack: buffer-fill parallelism adapted from the
// teacher's internal/parallel.For). Each goroutine only ever touches its
// own disjoint byte range of b.data, so the only shared state needing a
// lock is firstErr.
func (b *Buffer) FillFromFloat(v float64) error {
	n := b.NumElements()
	var mu sync.Mutex
	var firstErr error
	parallelRange(n, func(i int) {
		if err := b.writeAt(i, v); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}, defaultFillConfig())
	return firstErr
}

// Retrieve1D returns a float64 slice along a single axis, holding the other
// indices fixed. Used by external pretty-printers/plotting; tensorforge
// itself only needs it for debug dumps (§6).
func (b *Buffer) Retrieve1D(axis int, fixed []int) ([]float64, error) {
	if axis < 0 || axis >= len(b.dims) {
		return nil, fmt.Errorf("precision: axis %d out of range for %d-D buffer", axis, len(b.dims))
	}
	n := b.dims[axis]
	out := make([]float64, n)
	idcs := append([]int(nil), fixed...)
	if len(idcs) != len(b.dims) {
		return nil, fmt.Errorf("precision: fixed indices length %d != rank %d", len(idcs), len(b.dims))
	}
	for i := 0; i < n; i++ {
		idcs[axis] = i
		v, err := b.GetAsFloat(idcs)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Retrieve2D returns a row-major 2D float64 grid over (rowAxis, colAxis),
// holding the other indices fixed.
func (b *Buffer) Retrieve2D(rowAxis, colAxis int, fixed []int) ([][]float64, error) {
	if rowAxis < 0 || rowAxis >= len(b.dims) || colAxis < 0 || colAxis >= len(b.dims) {
		return nil, fmt.Errorf("precision: axis out of range for %d-D buffer", len(b.dims))
	}
	rows, cols := b.dims[rowAxis], b.dims[colAxis]
	idcs := append([]int(nil), fixed...)
	if len(idcs) != len(b.dims) {
		return nil, fmt.Errorf("precision: fixed indices length %d != rank %d", len(idcs), len(b.dims))
	}
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]float64, cols)
		idcs[rowAxis] = r
		for c := 0; c < cols; c++ {
			idcs[colAxis] = c
			v, err := b.GetAsFloat(idcs)
			if err != nil {
				return nil, err
			}
			out[r][c] = v
		}
	}
	return out, nil
}

// String renders a compact debug header, used by runtime error messages
// (§7 "pretty-printed tensor header") and debug dumps (§6). Full tensor
// pretty-printing is out of scope (§1); this is a header only.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer[%s]%v (%d bytes)", b.precision, b.dims, len(b.data))
}
