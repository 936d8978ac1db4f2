package symbol

import "fmt"

// Range is an optional [0, N) bound on a static binding's cell.
type Range struct {
	Valid bool
	N     int
}

// NoRange is the absence of a bound.
var NoRange = Range{}

// BoundedRange returns a Range bounding the cell to [0, n).
func BoundedRange(n int) Range { return Range{Valid: true, N: n} }

// Binding pairs a symbol with an optional range and a mutable int cell that
// the scheduler writes between kernel launches (§4.B, §5 "Static index
// bindings"). The cell is a pointer so that a compiled kernel and the
// scheduler observe the same mutable storage.
type Binding struct {
	Sym   Symbol
	Range Range
	cell  *int
}

// NewBinding creates a binding for sym with an initial cell value of 0.
func NewBinding(sym Symbol, r Range) *Binding {
	v := 0
	return &Binding{Sym: sym, Range: r, cell: &v}
}

// Get reads the binding's current value.
func (b *Binding) Get() int { return *b.cell }

// Set writes the binding's value. Per §5, writing a cell while a kernel
// using it is in flight is undefined — callers must pair this with an
// await on every device the binding was last scheduled on.
func (b *Binding) Set(v int) error {
	if b.Range.Valid && (v < 0 || v >= b.Range.N) {
		return fmt.Errorf("symbol: value %d out of range [0,%d) for binding %s", v, b.Range.N, b.Sym)
	}
	*b.cell = v
	return nil
}

// Bindings is an ordered, composable set of static bindings. Order matters
// for RoundRobin's Cartesian-product iteration (§4.H step 4).
type Bindings []*Binding

// Empty returns the empty binding context.
func Empty() Bindings { return nil }

// Extend returns a new Bindings with b appended.
func (bs Bindings) Extend(b *Binding) Bindings {
	out := make(Bindings, len(bs)+1)
	copy(out, bs)
	out[len(bs)] = b
	return out
}

// Lookup returns the binding for sym, if present.
func (bs Bindings) Lookup(sym Symbol) (*Binding, bool) {
	for _, b := range bs {
		if b.Sym.ID() == sym.ID() {
			return b, true
		}
	}
	return nil, false
}
