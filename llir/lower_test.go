package llir

import (
	"testing"

	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/shape"
)

func flatShape(dims ...int) *shape.Shape {
	return flatShapeOf(concreteDims(dims...))
}

func concreteDims(sizes ...int) []shape.Dim {
	dims := make([]shape.Dim, len(sizes))
	for i, s := range sizes {
		dims[i] = shape.NewConcreteDim(s)
	}
	return dims
}

func flatShapeOf(dims []shape.Dim) *shape.Shape {
	row := shape.NewRow(dims, shape.FixedTerm{})
	empty := shape.NewRow(nil, shape.FixedTerm{})
	return shape.New("t", empty, empty, row)
}

func TestLowerFetchZeroBecomesZeroOut(t *testing.T) {
	target := hlir.NewTensorRef("g", flatShape(4))
	fetch := hlir.Fetch{Target: target, Op: hlir.FetchConstant{Value: 0}}
	res, err := ToLowLevel(fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := res.Code.(ZeroOut); !ok {
		t.Fatalf("expected Fetch{Constant 0} to lower to ZeroOut, got %T", res.Code)
	}
}

func TestLowerFetchNonzeroConstantBuildsFillLoop(t *testing.T) {
	target := hlir.NewTensorRef("c", flatShape(3, 4))
	fetch := hlir.Fetch{Target: target, Op: hlir.FetchConstant{Value: 7}}
	res, err := ToLowLevel(fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer, ok := res.Code.(ForLoop)
	if !ok {
		t.Fatalf("expected a ForLoop nest, got %T", res.Code)
	}
	inner, ok := outer.Body.(ForLoop)
	if !ok {
		t.Fatalf("expected a nested ForLoop, got %T", outer.Body)
	}
	set, ok := inner.Body.(Set)
	if !ok {
		t.Fatalf("expected the innermost body to be a Set, got %T", inner.Body)
	}
	if c, ok := set.Expr.(Constant); !ok || c.Value != 7 {
		t.Fatalf("expected the fill value to be the constant 7, got %#v", set.Expr)
	}
}

func TestLowerAccumBinopBuildsExpectedTree(t *testing.T) {
	// Simulate post-unification state: all three operands' sole axis
	// shares one ConcreteDim (and so one projection-equivalence class),
	// the way shape.UnifyDim would have left them.
	shared := shape.NewConcreteDim(4)
	lhsShape := flatShapeOf([]shape.Dim{shared})
	rhs1Shape := flatShapeOf([]shape.Dim{shared})
	rhs2Shape := flatShapeOf([]shape.Dim{shared})
	lhs := hlir.NewTensorRef("lhs", lhsShape)
	rhs1 := hlir.NewTensorRef("rhs1", rhs1Shape)
	rhs2 := hlir.NewTensorRef("rhs2", rhs2Shape)

	node := hlir.AccumBinop{
		ZeroOut: true,
		Accum:   hlir.Add,
		Op:      hlir.Mul,
		LHS:     lhs,
		RHS1:    rhs1,
		RHS2:    rhs2,
		Projections: func() (*shape.Projections, error) {
			return shape.DeriveProjectionsForShapes(lhsShape, []*shape.Shape{rhs1Shape, rhs2Shape}, "test")
		},
	}

	res, err := ToLowLevel(node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.DistributesOverSum[lhs.ID] {
		t.Fatalf("expected accum=Add op=Mul to be marked value-distributes-over-sum")
	}
	lines, ok := res.Code.(Lines)
	if !ok || len(lines.Items) != 2 {
		t.Fatalf("expected zero_out to prepend a Lines[ZeroOut, loop], got %#v", res.Code)
	}
	if _, ok := lines.Items[0].(ZeroOut); !ok {
		t.Fatalf("expected the first line to be ZeroOut, got %T", lines.Items[0])
	}
	loop, ok := lines.Items[1].(ForLoop)
	if !ok {
		t.Fatalf("expected the second line to be a ForLoop, got %T", lines.Items[1])
	}
	set, ok := loop.Body.(Set)
	if !ok {
		t.Fatalf("expected the loop body to be a Set, got %T", loop.Body)
	}
	binop, ok := set.Expr.(Binop)
	if !ok || binop.Op != hlir.Add {
		t.Fatalf("expected the top expr to accumulate with Add, got %#v", set.Expr)
	}
	inner, ok := binop.B.(Binop)
	if !ok || inner.Op != hlir.Mul {
		t.Fatalf("expected the inner expr to combine with Mul, got %#v", binop.B)
	}
}

func TestLowerCompositionFlattensToLines(t *testing.T) {
	target := hlir.NewTensorRef("a", flatShape(2))
	code := hlir.Composition{Kind: hlir.Seq, Children: []hlir.Code{
		hlir.Fetch{Target: target, Op: hlir.FetchConstant{Value: 0}},
		hlir.Fetch{Target: target, Op: hlir.FetchConstant{Value: 0}},
	}}
	res, err := ToLowLevel(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines, ok := res.Code.(Lines)
	if !ok || len(lines.Items) != 2 {
		t.Fatalf("expected a two-item Lines, got %#v", res.Code)
	}
}
