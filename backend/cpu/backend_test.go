package cpu

import (
	"testing"

	"github.com/tensorforge/tensorforge/backend"
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/shape"
	"github.com/tensorforge/tensorforge/symbol"
)

func flatShape(sizes ...int) *shape.Shape {
	dims := make([]shape.Dim, len(sizes))
	for i, s := range sizes {
		dims[i] = shape.NewConcreteDim(s)
	}
	row := shape.NewRow(dims, shape.FixedTerm{})
	empty := shape.NewRow(nil, shape.FixedTerm{})
	return shape.New("t", empty, empty, row)
}

func newTestBackend(t *testing.T) (*Backend, *context) {
	t.Helper()
	b := New()
	if err := b.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	dev, err := b.GetDevice(0)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	ctx, err := b.Init(dev)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return b, ctx.(*context)
}

func TestRegisteredUnderCPUJit(t *testing.T) {
	be, err := backend.New("cpu-jit")
	if err != nil {
		t.Fatalf("backend.New(cpu-jit): %v", err)
	}
	if be.Name() != "cpu-jit" {
		t.Fatalf("expected name cpu-jit, got %s", be.Name())
	}
}

func TestCompileAndRunFillsLoop(t *testing.T) {
	b, ctx := newTestBackend(t)
	a := hlir.NewTensorRef("a", flatShape(4))
	i := symbol.New("i")
	idcs := []symbol.AxisIndex{symbol.Iterator{Sym: i}}

	code := llir.ForLoop{
		Index: i, From: 0, To: 4,
		Body: llir.Set{
			Ptr:  a,
			Idcs: idcs,
			Expr: llir.Binop{Op: hlir.Mul, A: llir.Get{Ptr: a, Idcs: idcs}, B: llir.Constant{Value: 0}},
		},
	}

	compiled, err := b.Compile(ctx, "fill", false, nil, code)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	work, err := compiled.Schedule()
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := work.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	buf, err := ctx.bufferFor(a)
	if err != nil {
		t.Fatalf("bufferFor: %v", err)
	}
	for i := 0; i < 4; i++ {
		v, err := buf.GetAsFloat([]int{i})
		if err != nil {
			t.Fatalf("GetAsFloat: %v", err)
		}
		if v != 0 {
			t.Fatalf("expected a[%d]==0, got %v", i, v)
		}
	}
}

func TestMergeSumsAcrossContexts(t *testing.T) {
	b, ctx0 := newTestBackend(t)
	dev1, err := b.GetDevice(0)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	ctxIface1, err := b.Init(dev1)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx1 := ctxIface1.(*context)

	p := hlir.NewTensorRef("p", flatShape(2))
	buf0, err := ctx0.bufferFor(p)
	if err != nil {
		t.Fatalf("bufferFor: %v", err)
	}
	buf1, err := ctx1.bufferFor(p)
	if err != nil {
		t.Fatalf("bufferFor: %v", err)
	}
	_ = buf0.SetFromFloat([]int{0}, 2)
	_ = buf0.SetFromFloat([]int{1}, 3)
	_ = buf1.SetFromFloat([]int{0}, 10)
	_ = buf1.SetFromFloat([]int{1}, 20)

	merged, err := b.Merge(p, ctx0, hlir.Add, ctx1, "")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	work, err := merged.Schedule()
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := work.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	v0, _ := buf0.GetAsFloat([]int{0})
	v1, _ := buf0.GetAsFloat([]int{1})
	if v0 != 12 || v1 != 23 {
		t.Fatalf("expected merged [12,23], got [%v,%v]", v0, v1)
	}
}

func TestDynamicIndicesBindsRecipient(t *testing.T) {
	b, ctx := newTestBackend(t)
	idx := hlir.NewTensorRef("idx", flatShape(1, 1))
	data := hlir.NewTensorRef("data", flatShape(4))
	out := hlir.NewTensorRef("out", flatShape(1))

	idxBuf, err := ctx.bufferFor(idx)
	if err != nil {
		t.Fatalf("bufferFor: %v", err)
	}
	_ = idxBuf.SetFromFloat([]int{0, 0}, 2)
	dataBuf, err := ctx.bufferFor(data)
	if err != nil {
		t.Fatalf("bufferFor: %v", err)
	}
	_ = dataBuf.SetFromFloat([]int{2}, 99)

	recv := symbol.New("r")
	code := llir.DynamicIndices{
		Tensor:     idx,
		TensorIdcs: []symbol.AxisIndex{symbol.FixedIdx{I: 0}},
		DynIdcs:    []symbol.Symbol{recv},
		TargetDims: []int{4},
		Body: llir.Set{
			Ptr:  out,
			Idcs: []symbol.AxisIndex{symbol.FixedIdx{I: 0}},
			Expr: llir.Get{Ptr: data, Idcs: []symbol.AxisIndex{symbol.DynamicRecipient{Sym: recv}}},
		},
	}

	compiled, err := b.Compile(ctx, "dyn", false, nil, code)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	work, err := compiled.Schedule()
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := work.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	outBuf, err := ctx.bufferFor(out)
	if err != nil {
		t.Fatalf("bufferFor: %v", err)
	}
	v, err := outBuf.GetAsFloat([]int{0})
	if err != nil {
		t.Fatalf("GetAsFloat: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected out[0]==99, got %v", v)
	}
}
