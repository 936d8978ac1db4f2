package shape

import (
	"fmt"

	"github.com/tensorforge/tensorforge/symbol"
)

// DimVarID identifies a dim-variable within an Env.
type DimVarID int64

// Dim is either a dim-variable or a concrete size (§3 Dim). Modeled as a
// closed interface variant, matching the style of symbol.AxisIndex.
type Dim interface {
	isDim()
	String() string
}

// DimVar is an unresolved dim-variable, optionally labeled.
type DimVar struct {
	ID    DimVarID
	Label string
}

func (DimVar) isDim() {}
func (v DimVar) String() string {
	if v.Label != "" {
		return "?" + v.Label
	}
	return fmt.Sprintf("?d%d", v.ID)
}

// ConcreteDim is a resolved dim: a size, its projection-equivalence class,
// and an optional label.
type ConcreteDim struct {
	Size  int
	Proj  symbol.ProjID
	Label string
}

func (ConcreteDim) isDim() {}
func (d ConcreteDim) String() string {
	if d.Label != "" {
		return fmt.Sprintf("%s=%d", d.Label, d.Size)
	}
	return fmt.Sprintf("%d", d.Size)
}

// NewConcreteDim makes a concrete dim with a fresh, unshared projection id.
func NewConcreteDim(size int) ConcreteDim {
	return ConcreteDim{Size: size, Proj: symbol.FreshProjID()}
}
