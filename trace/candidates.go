package trace

import (
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/symbol"
)

// Candidate is a tensor whose single writing Set has been judged safe to
// inline at its Get call sites (§4.F Pass 2).
type Candidate struct {
	Tensor  hlir.TensorRef
	LHSIdcs []symbol.AxisIndex
	Expr    llir.LLExpr
	Dynamic *llir.DynamicIndices
}

// definition is one Set the definition-finding walk found for a tensor: its
// index tuple and expression, plus the innermost DynamicIndices wrapper (if
// any) active when it was found.
type definition struct {
	idcs    []symbol.AxisIndex
	expr    llir.LLExpr
	dynamic *llir.DynamicIndices
}

// CollectCandidates runs pass 2: it finds each tensor's unique writing Set
// in code and disqualifies any whose trace or index shape rules out
// inlining, returning the survivors keyed by tensor id.
func CollectCandidates(settings Settings, traces map[hlir.TensorRefID]*TensorTrace, code llir.LLCode) map[hlir.TensorRefID]*Candidate {
	defs := make(map[hlir.TensorRefID][]definition)
	collectDefinitions(code, nil, defs)

	out := make(map[hlir.TensorRefID]*Candidate)
	for id, tt := range traces {
		if !eligibleForInlining(settings, tt) {
			continue
		}
		ds, ok := defs[id]
		if !ok || len(ds) != 1 {
			// No writing block found, or more than one — the single
			// writing-block assumption this pass relies on doesn't hold.
			continue
		}
		d := ds[0]
		if !isLinear(d.idcs) {
			continue
		}
		if hasEscapingIterator(d.idcs, d.expr) {
			continue
		}
		out[id] = &Candidate{Tensor: tt.Tensor, LHSIdcs: d.idcs, Expr: d.expr, Dynamic: d.dynamic}
	}
	return out
}

func eligibleForInlining(settings Settings, tt *TensorTrace) bool {
	if tt.NonVirtual {
		return false
	}
	if tt.IsDynamicSlice && settings.AlwaysInlineDynamicIndexing {
		return true
	}
	return tt.MaxVisitCount() <= settings.MaxVisits
}

// isLinear reports whether idcs is safe for position-wise substitution: no
// iterator symbol appears twice (a diagonal-style write can't be inlined
// by simple per-position renaming).
func isLinear(idcs []symbol.AxisIndex) bool {
	seen := make(map[symbol.ID]bool)
	for _, idx := range idcs {
		it, ok := idx.(symbol.Iterator)
		if !ok {
			continue
		}
		if seen[it.Sym.ID()] {
			return false
		}
		seen[it.Sym.ID()] = true
	}
	return true
}

// hasEscapingIterator reports whether expr mentions an iterator that isn't
// one of lhsIdcs's own iterators — pass 3 only renames the LHS's positional
// iterators, so any other free iterator would otherwise escape its binder.
func hasEscapingIterator(lhsIdcs []symbol.AxisIndex, expr llir.LLExpr) bool {
	bound := make(map[symbol.ID]bool)
	for _, idx := range lhsIdcs {
		if it, ok := idx.(symbol.Iterator); ok {
			bound[it.Sym.ID()] = true
		}
	}
	escapes := false
	var walk func(llir.LLExpr)
	walk = func(e llir.LLExpr) {
		switch n := e.(type) {
		case llir.Get:
			for _, idx := range n.Idcs {
				if it, ok := idx.(symbol.Iterator); ok && it.Sym.Substitutable() && !bound[it.Sym.ID()] {
					escapes = true
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
	return escapes
}

func collectDefinitions(code llir.LLCode, dynamic *llir.DynamicIndices, defs map[hlir.TensorRefID][]definition) {
	switch n := code.(type) {
	case llir.Lines:
		for _, item := range n.Items {
			collectDefinitions(item, dynamic, defs)
		}
	case llir.ForLoop:
		collectDefinitions(n.Body, dynamic, defs)
	case llir.Set:
		defs[n.Ptr.ID] = append(defs[n.Ptr.ID], definition{idcs: n.Idcs, expr: n.Expr, dynamic: dynamic})
	case llir.DynamicIndices:
		collectDefinitions(n.Body, &n, defs)
	case llir.Rebalance:
		for _, c := range n.Children {
			collectDefinitions(c, dynamic, defs)
		}
	case llir.StagedCompilation:
		if n.Callback != nil {
			collectDefinitions(n.Callback(), dynamic, defs)
		}
	}
}
