package hlir

import "testing"

func TestSequentialFoldsEmptyToNoop(t *testing.T) {
	if _, ok := Sequential().(Noop); !ok {
		t.Fatalf("expected an empty Sequential to fold to Noop")
	}
}

func TestSequentialSingleUnwraps(t *testing.T) {
	f := Fetch{Target: NewTensorRef("x", nil), Op: FetchConstant{Value: 1}}
	if got := Sequential(f); got != Code(f) {
		t.Fatalf("expected a single-element Sequential to unwrap to its child")
	}
}

func TestFlatParallelFlattensNestedPar(t *testing.T) {
	a := Fetch{Target: NewTensorRef("a", nil), Op: FetchConstant{Value: 1}}
	b := Fetch{Target: NewTensorRef("b", nil), Op: FetchConstant{Value: 2}}
	c := Fetch{Target: NewTensorRef("c", nil), Op: FetchConstant{Value: 3}}
	inner := Composition{Kind: Par, Children: []Code{b, c}}
	outer := Composition{Kind: Par, Children: []Code{a, inner}}

	flat := FlatParallel(outer, false)
	if len(flat) != 3 {
		t.Fatalf("expected three flattened leaves, got %d", len(flat))
	}
}

func TestFlatParallelRespectsForceHints(t *testing.T) {
	a := Fetch{Target: NewTensorRef("a", nil), Op: FetchConstant{Value: 1}}
	inner := Composition{Kind: ParHint, Children: []Code{a, a}}
	outer := Composition{Kind: Par, Children: []Code{inner}}

	withoutForce := FlatParallel(outer, false)
	if len(withoutForce) != 1 {
		t.Fatalf("expected ParHint to stay nested without force_hints, got %d leaves", len(withoutForce))
	}
	withForce := FlatParallel(outer, true)
	if len(withForce) != 2 {
		t.Fatalf("expected ParHint to flatten with force_hints, got %d leaves", len(withForce))
	}
}

func TestRemoveUpdatesDropsMatchingLHS(t *testing.T) {
	target := NewTensorRef("y", nil)
	other := NewTensorRef("z", nil)
	code := Composition{Kind: Seq, Children: []Code{
		Fetch{Target: target, Op: FetchConstant{Value: 0}},
		Fetch{Target: other, Op: FetchConstant{Value: 1}},
	}}
	result := RemoveUpdates(target, code)
	comp, ok := result.(Composition)
	if !ok {
		t.Fatalf("expected a composition, got %T", result)
	}
	if len(comp.Children) != 1 {
		t.Fatalf("expected only the non-matching child to survive, got %d", len(comp.Children))
	}
	f, ok := comp.Children[0].(Fetch)
	if !ok || f.Target.ID != other.ID {
		t.Fatalf("expected the surviving child to target %v", other)
	}
}

func TestRemoveUpdatesCollapsesToNoopWhenAllMatch(t *testing.T) {
	target := NewTensorRef("y", nil)
	code := BlockComment{Msg: "init", Body: Fetch{Target: target, Op: FetchConstant{Value: 0}}}
	result := RemoveUpdates(target, code)
	if _, ok := result.(Noop); !ok {
		t.Fatalf("expected the whole block to collapse to Noop, got %T", result)
	}
}
