package llir

import (
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/symbol"
)

// LLCode is the LL IR statement variant (§3 "LL IR code").
type LLCode interface {
	isLLCode()
}

// Comment carries a debug label with no runtime effect.
type Comment struct{ Msg string }

func (Comment) isLLCode() {}

// Lines is an ordered sequence of statements.
type Lines struct{ Items []LLCode }

func (Lines) isLLCode() {}

// ForLoop iterates Index from From (inclusive) to To (exclusive) over Body.
// TraceIt marks a loop the trace passes should record visits for (used by
// dedicated, non-substitutable axes such as task-id/sample-num).
type ForLoop struct {
	Index   symbol.Symbol
	From    int
	To      int
	Body    LLCode
	TraceIt bool
}

func (ForLoop) isLLCode() {}

// ZeroOut fills Ptr's full buffer with zero — the fast path for
// Accum-*{zero_out} and Fetch{Constant 0.0} (§4.E).
type ZeroOut struct{ Ptr hlir.TensorRef }

func (ZeroOut) isLLCode() {}

// Set writes Expr into Ptr at Idcs.
type Set struct {
	Ptr  hlir.TensorRef
	Idcs []symbol.AxisIndex
	Expr LLExpr
}

func (Set) isLLCode() {}

// SetLocal writes Expr into a LocalScope's result slot.
type SetLocal struct {
	Scope ScopeID
	Expr  LLExpr
}

func (SetLocal) isLLCode() {}

// DynamicSlice records a dynamic-indexing operation's statically known
// slice target, when one is known (used by the trace pass's
// is_dynamic_slice flag, §4.F pass 1).
type DynamicSlice struct {
	Known  bool
	Offset []int
}

// DynamicIndices wraps Body so that, before running it, TensorIdcs is read
// out of Tensor and fed into the DynIdcs recipient symbols — the producing
// side of dynamic indexing (§4.B, §4.E step 5).
type DynamicIndices struct {
	Tensor     hlir.TensorRef
	TensorIdcs []symbol.AxisIndex
	DynIdcs    []symbol.Symbol
	TargetDims []int
	Body       LLCode
	Slice      *DynamicSlice
}

func (DynamicIndices) isLLCode() {}

// Rebalance groups Children under an optional Label. backend/interp runs
// the children in order, one after another, as a sequential block.
type Rebalance struct {
	Label    string
	Children []LLCode
}

func (Rebalance) isLLCode() {}

// StagedCompilation defers producing its body until the backend compiles
// the surrounding kernel, letting a pass inject backend-specific code
// late in the pipeline.
type StagedCompilation struct {
	Callback func() LLCode
}

func (StagedCompilation) isLLCode() {}
