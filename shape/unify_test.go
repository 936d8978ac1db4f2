package shape

import (
	"testing"

	"github.com/tensorforge/tensorforge/symbol"
)

func TestUnifyDimEqualSizesShareProjection(t *testing.T) {
	env := NewEnv()
	uf := symbol.NewUnionFind()
	a := NewConcreteDim(3)
	b := NewConcreteDim(3)
	resolved, err := UnifyDim(env, a, b, uf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cd := resolved.(ConcreteDim)
	if cd.Size != 3 {
		t.Fatalf("expected size 3, got %d", cd.Size)
	}
	if !uf.Same(a.Proj, b.Proj) {
		t.Fatalf("expected equal-size dims to union their projection classes")
	}
}

func TestUnifyDimMismatchedSizesError(t *testing.T) {
	env := NewEnv()
	uf := symbol.NewUnionFind()
	_, err := UnifyDim(env, NewConcreteDim(3), NewConcreteDim(4), uf)
	if err == nil {
		t.Fatalf("expected a size mismatch error")
	}
}

func TestUnifyDimBroadcastsSizeOne(t *testing.T) {
	env := NewEnv()
	uf := symbol.NewUnionFind()
	resolved, err := UnifyDim(env, NewConcreteDim(1), NewConcreteDim(5), uf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.(ConcreteDim).Size != 5 {
		t.Fatalf("expected broadcast to size 5")
	}
}

func TestUnifyRowPairFixedAxisCountMismatch(t *testing.T) {
	env := NewEnv()
	uf := symbol.NewUnionFind()
	ra := NewRow([]Dim{NewConcreteDim(2), NewConcreteDim(3)}, FixedTerm{})
	rb := NewRow([]Dim{NewConcreteDim(2)}, FixedTerm{})
	err := unifyRowPair(env, ra, rb, false, uf)
	if err == nil {
		t.Fatalf("expected an axis-count mismatch error")
	}
}

func TestUnifyRowPairBareVarSubstitutes(t *testing.T) {
	env := NewEnv()
	uf := symbol.NewUnionFind()
	rv := env.NewRowVar(false)
	concrete := NewRow([]Dim{NewConcreteDim(4)}, FixedTerm{})
	if err := unifyRowPair(env, rv, concrete, false, uf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved := env.ResolveRow(rv)
	if len(resolved.Dims) != 1 || resolved.Dims[0].(ConcreteDim).Size != 4 {
		t.Fatalf("expected the bare row-var to resolve to the concrete row")
	}
}

func TestUnifyRowPairBroadcastAlignmentPadsLeadingOnes(t *testing.T) {
	env := NewEnv()
	uf := symbol.NewUnionFind()
	ra := NewRow([]Dim{NewConcreteDim(3)}, BroadcastableTerm{})
	rb := NewRow([]Dim{NewConcreteDim(5), NewConcreteDim(3)}, BroadcastableTerm{})
	if err := unifyRowPair(env, ra, rb, false, uf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ra.Dims) != 2 {
		t.Fatalf("expected the shorter row to be padded to two axes, got %d", len(ra.Dims))
	}
	if ra.Dims[0].(ConcreteDim).Size != 1 {
		t.Fatalf("expected the padded leading axis to be a dim of size 1, got %v", ra.Dims[0])
	}
}

func TestApplyTotalElemsSolvesTheOpenAxis(t *testing.T) {
	r := NewRow([]Dim{NewConcreteDim(4), env0().NewDimVar("n", false)}, FixedTerm{})
	r.Constraint = TotalElems{N: 12}
	if err := applyTotalElems(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Dims[1].(ConcreteDim).Size != 3 {
		t.Fatalf("expected the open axis to solve to 3, got %v", r.Dims[1])
	}
}

func TestApplyTotalElemsRejectsUnevenDivision(t *testing.T) {
	r := NewRow([]Dim{NewConcreteDim(5), env0().NewDimVar("n", false)}, FixedTerm{})
	r.Constraint = TotalElems{N: 12}
	if err := applyTotalElems(r); err == nil {
		t.Fatalf("expected an error: 12 does not divide evenly by 5")
	}
}

func env0() *Env { return NewEnv() }
