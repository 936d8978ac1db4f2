package shape

import (
	"fmt"

	"github.com/tensorforge/tensorforge/symbol"
)

// Projections is the derived index-space record for one assignment update
// (§4.I "derive_projections"): a shared iterator per distinct
// projection-equivalence class among the update's concrete dims with size
// greater than one, and a fixed index for every axis of size one or less.
// LHS and each RHS operand project the same shared
// iterator space onto their own axis order.
type Projections struct {
	ProductSpace     []int              // sizes of the shared iterators, in iterator order
	ProductIterators []symbol.Symbol    // one iterator symbol per ProductSpace entry
	LHSDims          []int
	RHSDims          [][]int
	ProjectLHS       []symbol.AxisIndex // one entry per LHS axis
	ProjectRHS       [][]symbol.AxisIndex // one slice per RHS operand, one entry per its axis
	DebugInfo        string
}

// concreteDimsOf demands every axis of r already be a resolved concrete
// dim — projection derivation only runs after shape inference has closed.
func concreteDimsOf(r *Row) ([]ConcreteDim, error) {
	out := make([]ConcreteDim, len(r.Dims))
	for i, d := range r.Dims {
		cd, ok := d.(ConcreteDim)
		if !ok {
			return nil, newShapeError("projections", fmt.Sprintf("axis %d is not resolved to a concrete dim", i))
		}
		out[i] = cd
	}
	return out, nil
}

// concreteDimsAll flattens a shape's batch/input/output rows, in that
// order, into one slice of concrete dims (the convention the rest of the
// package uses for "flattened" shape axes).
func concreteDimsAll(s *Shape) ([]ConcreteDim, error) {
	var out []ConcreteDim
	for _, k := range Kinds {
		cds, err := concreteDimsOf(s.Rows[k])
		if err != nil {
			return nil, Wrap(err, fmt.Sprintf("%s", k)).(*Error).WithShape(s)
		}
		out = append(out, cds...)
	}
	return out, nil
}

// DeriveProjections builds the shared-iterator index space for an update
// whose LHS has lhsDims and whose RHS operands have rhsDims (in LHS-then-
// RHS-operand-order, matching Accum-binop's two operands or Accum-unop's
// one). Two axes across any of the operands share an iterator exactly when
// their dims carry the same projection-equivalence class and size greater
// than one (§4.C invariant 6, §4.I).
func DeriveProjections(lhsDims []ConcreteDim, rhsDims [][]ConcreteDim, debugInfo string) *Projections {
	iterOf := make(map[symbol.ProjID]symbol.Symbol)
	var space []int
	var iters []symbol.Symbol

	axisIndex := func(d ConcreteDim) symbol.AxisIndex {
		if d.Size <= 1 {
			return symbol.FixedIdx{I: 0}
		}
		sym, ok := iterOf[d.Proj]
		if !ok {
			sym = symbol.New("i")
			iterOf[d.Proj] = sym
			space = append(space, d.Size)
			iters = append(iters, sym)
		}
		return symbol.Iterator{Sym: sym}
	}

	projLHS := make([]symbol.AxisIndex, len(lhsDims))
	lhsSizes := make([]int, len(lhsDims))
	for i, d := range lhsDims {
		projLHS[i] = axisIndex(d)
		lhsSizes[i] = d.Size
	}

	projRHS := make([][]symbol.AxisIndex, len(rhsDims))
	rhsSizes := make([][]int, len(rhsDims))
	for oi, dims := range rhsDims {
		row := make([]symbol.AxisIndex, len(dims))
		sizes := make([]int, len(dims))
		for i, d := range dims {
			row[i] = axisIndex(d)
			sizes[i] = d.Size
		}
		projRHS[oi] = row
		rhsSizes[oi] = sizes
	}

	return &Projections{
		ProductSpace:     space,
		ProductIterators: iters,
		LHSDims:          lhsSizes,
		RHSDims:          rhsSizes,
		ProjectLHS:       projLHS,
		ProjectRHS:       projRHS,
		DebugInfo:        debugInfo,
	}
}

// DeriveProjectionsForShapes is the Shape-level convenience entry point:
// it flattens lhs and each rhs shape's batch/input/output rows and calls
// DeriveProjections.
func DeriveProjectionsForShapes(lhs *Shape, rhs []*Shape, debugInfo string) (*Projections, error) {
	lhsDims, err := concreteDimsAll(lhs)
	if err != nil {
		return nil, err
	}
	rhsDims := make([][]ConcreteDim, len(rhs))
	for i, s := range rhs {
		dims, err := concreteDimsAll(s)
		if err != nil {
			return nil, err
		}
		rhsDims[i] = dims
	}
	return DeriveProjections(lhsDims, rhsDims, debugInfo), nil
}

func (p *Projections) String() string {
	return fmt.Sprintf("projections[space=%v lhs=%v rhs=%v %q]", p.ProductSpace, p.LHSDims, p.RHSDims, p.DebugInfo)
}
