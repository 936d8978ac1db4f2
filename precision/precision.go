// Package precision implements the buffer and precision layer (component A):
// typed dense n-dimensional buffers at four precisions, their initialization
// operations, and element access.
package precision

import "fmt"

// Precision is a variant over the four element widths a Buffer can be tagged
// with. Unlike the richer DataType enum a dynamic-graph framework needs,
// tensorforge only ever emits code for these four — the front-end that
// chooses precision per tensor is out of scope (spec §1).
type Precision int

// Supported precisions.
const (
	Byte Precision = iota
	Half
	Single
	Double
)

// ByteWidth returns the element width in bytes for the precision.
func (p Precision) ByteWidth() int {
	switch p {
	case Byte:
		return 1
	case Half:
		return 2
	case Single:
		return 4
	case Double:
		return 8
	default:
		panic(fmt.Sprintf("precision: unknown precision %d", int(p)))
	}
}

// String returns a human-readable precision name.
func (p Precision) String() string {
	switch p {
	case Byte:
		return "byte"
	case Half:
		return "half"
	case Single:
		return "single"
	case Double:
		return "double"
	default:
		return "unknown"
	}
}
