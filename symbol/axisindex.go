package symbol

// AxisIndex is one slot of an index tuple used to address a buffer axis
// (§4.B). It is a closed variant over the five forms spec.md names; each
// concrete type implements the marker method so callers can type-switch.
type AxisIndex interface {
	isAxisIndex()
}

// FixedIdx addresses a single constant axis position.
type FixedIdx struct{ I int }

func (FixedIdx) isAxisIndex() {}

// Iterator addresses an axis through a bound loop symbol.
type Iterator struct{ Sym Symbol }

func (Iterator) isAxisIndex() {}

// DynamicRecipient names a symbol that receives a runtime-read index value
// (the consuming side of dynamic indexing, §4.F "Dynamic indexing").
type DynamicRecipient struct{ Sym Symbol }

func (DynamicRecipient) isAxisIndex() {}

// FrozenRecipient is a dedicated, non-substitutable recipient for a frozen
// slice position.
type FrozenRecipient struct{ Sym Symbol }

func (FrozenRecipient) isAxisIndex() {}

// DynamicProvider reads TargetDims-many index values out of another tensor
// at Idcs and feeds them to the matching recipients (the producing side of
// dynamic indexing). The outermost provider in a Get wins (§4.E step 5).
type DynamicProvider struct {
	Idcs       []AxisIndex
	TargetDims []int
}

func (DynamicProvider) isAxisIndex() {}
