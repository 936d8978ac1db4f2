package precision

import (
	"fmt"
	"math/rand"
	"sync"
)

// InitOp is a buffer initialization recipe (§4.A).
type InitOp interface {
	apply(b *Buffer) error
}

// ConstantFill writes Values into the buffer in row-major order. When Strict
// is true the array length must equal the buffer's element count exactly
// (error otherwise); when false the values cycle modulo their length.
type ConstantFill struct {
	Values []float64
	Strict bool
}

func (c ConstantFill) apply(b *Buffer) error {
	if len(c.Values) == 0 {
		return fmt.Errorf("precision: ConstantFill requires a non-empty Values array")
	}
	n := b.NumElements()
	if c.Strict && len(c.Values) != n {
		return fmt.Errorf("precision: ConstantFill (strict) requires %d values, got %d", n, len(c.Values))
	}
	for i := 0; i < n; i++ {
		if err := b.writeAt(i, c.Values[i%len(c.Values)]); err != nil {
			return err
		}
	}
	return nil
}

// RangeOverOffsets writes the linear row-major offset of each cell.
type RangeOverOffsets struct{}

func (RangeOverOffsets) apply(b *Buffer) error {
	n := b.NumElements()
	for i := 0; i < n; i++ {
		if err := b.writeAt(i, float64(i)); err != nil {
			return err
		}
	}
	return nil
}

// StandardUniform draws IID U[0,1) values, seeded deterministically from the
// process-global fixed-state-for-init seed when set (§4.A, §5 Global RNG).
type StandardUniform struct{}

func (StandardUniform) apply(b *Buffer) error {
	n := b.NumElements()
	for i := 0; i < n; i++ {
		if err := b.writeAt(i, nextUniform()); err != nil {
			return err
		}
	}
	return nil
}

var rngMu sync.Mutex
var rng = rand.New(rand.NewSource(1))

// SetFixedSeedForInit seeds the process-global init-op RNG deterministically.
// Per §5, this is mutated only by the main thread, before any worker spins up.
func SetFixedSeedForInit(seed int64) {
	rngMu.Lock()
	defer rngMu.Unlock()
	rng = rand.New(rand.NewSource(seed))
}

func nextUniform() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}

// FileMapped memory-maps Path read-only and requires its on-disk precision to
// equal the buffer's own, with the file's byte length checked against the
// declared dims before any mapping is attempted (§6 Init-op file format).
type FileMapped struct {
	Path      string
	Precision Precision
}

func (f FileMapped) apply(b *Buffer) error {
	if f.Precision != b.precision {
		return fmt.Errorf("precision: file %s has precision %s, buffer expects %s", f.Path, f.Precision, b.precision)
	}
	wantBytes := b.NumElements() * b.precision.ByteWidth()
	data, err := mmapReadOnly(f.Path, wantBytes)
	if err != nil {
		return fmt.Errorf("precision: mapping %s: %w", f.Path, err)
	}
	b.data = data
	return nil
}
