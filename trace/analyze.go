package trace

import (
	"fmt"

	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/symbol"
)

// Analysis accumulates one TensorTrace per tensor referenced by a lowered
// program, built by Visit (§4.F Pass 1).
type Analysis struct {
	Settings     Settings
	Traces       map[hlir.TensorRefID]*TensorTrace
	hostResident map[hlir.TensorRefID]bool
}

// NewAnalysis starts a fresh pass-1 run. hostResident names tensors whose
// size on host is already > 0 (they exist in user memory already) — per
// §4.F these are forced non-virtual regardless of visit count.
func NewAnalysis(settings Settings, hostResident map[hlir.TensorRefID]bool) *Analysis {
	return &Analysis{Settings: settings, Traces: make(map[hlir.TensorRefID]*TensorTrace), hostResident: hostResident}
}

func (a *Analysis) traceFor(t hlir.TensorRef) *TensorTrace {
	tt, ok := a.Traces[t.ID]
	if !ok {
		tt = newTensorTrace(t)
		if a.hostResident[t.ID] {
			tt.NonVirtual = true
		}
		a.Traces[t.ID] = tt
	}
	return tt
}

// Visit runs pass 1 over code, populating a.Traces.
func (a *Analysis) Visit(code llir.LLCode) {
	a.walkCode(code)
}

func (a *Analysis) walkCode(code llir.LLCode) {
	switch n := code.(type) {
	case llir.Comment:
	case llir.Lines:
		for _, item := range n.Items {
			a.walkCode(item)
		}
	case llir.ForLoop:
		a.walkCode(n.Body)
	case llir.ZeroOut:
		tt := a.traceFor(n.Ptr)
		if len(tt.Assignments) == 0 && len(tt.Accesses) == 0 {
			tt.ZeroInitialized = true
		}
		tt.ZeroedOut = true
	case llir.Set:
		tt := a.traceFor(n.Ptr)
		a.walkExpr(n.Expr)
		key := formatIdcs(n.Idcs)
		tt.Assignments[key] = true
		tt.LastWriteNonUpdate = !isReadModifyWrite(n.Ptr, n.Idcs, n.Expr)
		tt.RHSSet[exprKey(n.Expr)] = n.Expr
		if dependsOnNonReplicable(n.Expr, a.Settings.SequentialMinibatch) {
			tt.IsReplicable = false
		}
	case llir.SetLocal:
		a.walkExpr(n.Expr)
	case llir.DynamicIndices:
		tt := a.traceFor(n.Tensor)
		if n.Slice != nil && n.Slice.Known {
			tt.IsDynamicSlice = true
		}
		a.walkCode(n.Body)
	case llir.Rebalance:
		for _, c := range n.Children {
			a.walkCode(c)
		}
	case llir.StagedCompilation:
		if n.Callback != nil {
			a.walkCode(n.Callback())
		}
	}
}

func (a *Analysis) walkExpr(e llir.LLExpr) {
	switch n := e.(type) {
	case llir.Constant:
	case llir.Get:
		tt := a.traceFor(n.Ptr)
		key := formatIdcs(n.Idcs)
		rec, exists := tt.Accesses[key]
		if !exists {
			// First contact at this index: Recurrent iff no assignment has
			// happened yet, else it's already a repeat visit.
			if tt.Assignments[key] {
				tt.Accesses[key] = &AccessRecord{Kind: Visited, Visits: 1}
			} else {
				tt.Accesses[key] = &AccessRecord{Kind: Recurrent}
				tt.ReadBeforeWrite = true
			}
		} else {
			rec.Kind = Visited
			rec.Visits++
		}
	case llir.GetLocal:
	case llir.GetGlobal:
	case llir.LocalScope:
		a.walkCode(n.Body)
	case llir.Binop:
		a.walkExpr(n.A)
		a.walkExpr(n.B)
	case llir.Unop:
		a.walkExpr(n.A)
	}
}

// isReadModifyWrite reports whether expr reads ptr at the same idcs it is
// about to write — the accumulator pattern last_write_non_update negates.
func isReadModifyWrite(ptr hlir.TensorRef, idcs []symbol.AxisIndex, expr llir.LLExpr) bool {
	b, ok := expr.(llir.Binop)
	if !ok {
		return false
	}
	g, ok := b.A.(llir.Get)
	return ok && g.Ptr.ID == ptr.ID && formatIdcs(g.Idcs) == formatIdcs(idcs)
}

// dependsOnNonReplicable reports whether expr indexes through a task-id
// iterator, or (when sequentialMinibatch is false) a sample-num iterator.
func dependsOnNonReplicable(expr llir.LLExpr, sequentialMinibatch bool) bool {
	found := false
	var walk func(llir.LLExpr)
	walk = func(e llir.LLExpr) {
		switch n := e.(type) {
		case llir.Get:
			for _, idx := range n.Idcs {
				it, ok := idx.(symbol.Iterator)
				if !ok {
					continue
				}
				if it.Sym.Flavor == symbol.TaskID {
					found = true
				}
				if it.Sym.Flavor == symbol.SampleNum && !sequentialMinibatch {
					found = true
				}
			}
		case llir.Binop:
			walk(n.A)
			walk(n.B)
		case llir.Unop:
			walk(n.A)
		}
	}
	walk(expr)
	return found
}

func exprKey(e llir.LLExpr) string {
	switch n := e.(type) {
	case llir.Constant:
		return fmt.Sprintf("const(%v)", n.Value)
	case llir.Get:
		return fmt.Sprintf("get(%s,%s)", n.Ptr, formatIdcs(n.Idcs))
	case llir.GetLocal:
		return fmt.Sprintf("getlocal(%d)", n.Scope)
	case llir.GetGlobal:
		return fmt.Sprintf("getglobal(%s)", n.Name)
	case llir.LocalScope:
		return fmt.Sprintf("localscope(%d)", n.ID)
	case llir.Binop:
		return fmt.Sprintf("binop(%s,%s,%s)", n.Op, exprKey(n.A), exprKey(n.B))
	case llir.Unop:
		return fmt.Sprintf("unop(%s,%s)", n.Op, exprKey(n.A))
	default:
		return "?"
	}
}
