package shape

import (
	"testing"

	"github.com/tensorforge/tensorforge/symbol"
)

func TestDeriveProjectionsSharesIteratorAcrossEqualProjection(t *testing.T) {
	shared := NewConcreteDim(8)
	lhs := []ConcreteDim{shared, NewConcreteDim(1)}
	rhs := [][]ConcreteDim{{shared, NewConcreteDim(3)}}

	p := DeriveProjections(lhs, rhs, "test")
	if len(p.ProductSpace) != 2 {
		t.Fatalf("expected two distinct iterators (shared axis + the size-3 axis), got %d: %v", len(p.ProductSpace), p.ProductSpace)
	}
	lhsIter, ok := p.ProjectLHS[0].(symbol.Iterator)
	if !ok {
		t.Fatalf("expected the shared axis to project as an Iterator, got %#v", p.ProjectLHS[0])
	}
	rhsIter := p.ProjectRHS[0][0].(symbol.Iterator)
	if lhsIter.Sym.ID() != rhsIter.Sym.ID() {
		t.Fatalf("expected the shared-projection axis to reuse the same iterator symbol on both sides")
	}
	if _, isFixed := p.ProjectLHS[1].(symbol.FixedIdx); !isFixed {
		t.Fatalf("expected the size-1 axis to project as a Fixed index, got %#v", p.ProjectLHS[1])
	}
}

func TestDeriveProjectionsFixedForSizeOneAxes(t *testing.T) {
	lhs := []ConcreteDim{NewConcreteDim(1)}
	rhs := [][]ConcreteDim{{NewConcreteDim(1)}}
	p := DeriveProjections(lhs, rhs, "ones")
	if len(p.ProductSpace) != 0 {
		t.Fatalf("expected no shared iterators for size-one axes, got %v", p.ProductSpace)
	}
}

func TestDeriveProjectionsForShapesFlattensRows(t *testing.T) {
	s := New("x", NewRow([]Dim{NewConcreteDim(2)}, FixedTerm{}), NewRow(nil, FixedTerm{}), NewRow([]Dim{NewConcreteDim(3)}, FixedTerm{}))
	p, err := DeriveProjectionsForShapes(s, nil, "solo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.LHSDims) != 2 {
		t.Fatalf("expected batch+output flattened to two axes, got %d", len(p.LHSDims))
	}
}

func TestDeriveProjectionsForShapesRejectsUnresolvedDim(t *testing.T) {
	env := NewEnv()
	s := New("x", NewRow([]Dim{env.NewDimVar("b", false)}, FixedTerm{}), NewRow(nil, FixedTerm{}), NewRow(nil, FixedTerm{}))
	if _, err := DeriveProjectionsForShapes(s, nil, "solo"); err == nil {
		t.Fatalf("expected an error for an unresolved dim-variable")
	}
}
