package shape

import "testing"

func TestInferTerminalConstantFillStrictSolvesBatch(t *testing.T) {
	env := NewEnv()
	s := New("x", NewRow([]Dim{env.NewDimVar("b", false)}, FixedTerm{}),
		NewRow(nil, FixedTerm{}),
		NewRow([]Dim{NewConcreteDim(4)}, FixedTerm{}))
	err := Infer(env, s, Terminal{Spec: ConstantFillSpec{Length: 12, Strict: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Rows[Batch].Dims[0].(ConcreteDim).Size; got != 3 {
		t.Fatalf("expected the batch axis to solve to 12/4 = 3, got %d", got)
	}
}

func TestInferBroadcastElementwiseUnifiesBothOperands(t *testing.T) {
	env := NewEnv()
	left := New("l", NewRow(nil, BroadcastableTerm{}), NewRow(nil, BroadcastableTerm{}), NewRow([]Dim{NewConcreteDim(1), NewConcreteDim(8)}, FixedTerm{}))
	right := New("r", NewRow(nil, BroadcastableTerm{}), NewRow(nil, BroadcastableTerm{}), NewRow([]Dim{NewConcreteDim(5), NewConcreteDim(8)}, FixedTerm{}))
	self := New("s", env.NewRowVar(false), env.NewRowVar(false), env.NewRowVar(false))

	err := Infer(env, self, Broadcast{Kind: Elementwise, Left: left, Right: right})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved := env.ResolveRow(self.Rows[Output])
	if len(resolved.Dims) != 2 {
		t.Fatalf("expected a two-axis broadcast output, got %v", resolved)
	}
	if resolved.Dims[0].(ConcreteDim).Size != 5 {
		t.Fatalf("expected the size-1 axis to broadcast to 5, got %v", resolved.Dims[0])
	}
}

func TestInferBroadcastElementwiseMismatchErrors(t *testing.T) {
	env := NewEnv()
	left := New("l", NewRow(nil, BroadcastableTerm{}), NewRow(nil, BroadcastableTerm{}), NewRow([]Dim{NewConcreteDim(3)}, FixedTerm{}))
	right := New("r", NewRow(nil, BroadcastableTerm{}), NewRow(nil, BroadcastableTerm{}), NewRow([]Dim{NewConcreteDim(4)}, FixedTerm{}))
	self := New("s", env.NewRowVar(false), env.NewRowVar(false), env.NewRowVar(false))

	err := Infer(env, self, Broadcast{Kind: Elementwise, Left: left, Right: right})
	if err == nil {
		t.Fatalf("expected a shape error for mismatched sizes 3 vs 4")
	}
}

func TestInferComposeChainsInputOutput(t *testing.T) {
	env := NewEnv()
	hidden := env.NewDimVar("h", false)
	left := New("g", NewRow(nil, BroadcastableTerm{}), NewRow([]Dim{hidden}, FixedTerm{}), NewRow([]Dim{NewConcreteDim(10)}, FixedTerm{}))
	right := New("f", NewRow(nil, BroadcastableTerm{}), NewRow([]Dim{NewConcreteDim(3)}, FixedTerm{}), NewRow([]Dim{NewConcreteDim(7)}, FixedTerm{}))
	self := New("gof", env.NewRowVar(false), env.NewRowVar(false), env.NewRowVar(false))

	err := Infer(env, self, Broadcast{Kind: Compose, Left: left, Right: right})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.ResolveDim(hidden).(ConcreteDim).Size != 7 {
		t.Fatalf("expected the connecting axis to resolve to 7")
	}
	out := env.ResolveRow(self.Rows[Output])
	if out.Dims[0].(ConcreteDim).Size != 10 {
		t.Fatalf("expected the composed output to be left's output")
	}
	in := env.ResolveRow(self.Rows[Input])
	if in.Dims[0].(ConcreteDim).Size != 3 {
		t.Fatalf("expected the composed input to be right's input")
	}
}
