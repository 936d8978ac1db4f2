package trace

import (
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/precision"
	"github.com/tensorforge/tensorforge/symbol"
)

// Inline runs pass 3: every Get of a candidate tensor is replaced by a
// LocalScope whose body recomputes the candidate's defining expression with
// its LHS iterators renamed position-wise to the call's own indices.
//
// LLExpr never embeds a ForLoop binder (loops live only in LLCode), so a
// substituted expression can't recapture an outer loop variable; the fresh
// ScopeID minted per call site is the only alpha-renaming substitution
// needs here.
func Inline(candidates map[hlir.TensorRefID]*Candidate, code llir.LLCode) llir.LLCode {
	return inlineCode(candidates, code)
}

func inlineCode(candidates map[hlir.TensorRefID]*Candidate, code llir.LLCode) llir.LLCode {
	switch n := code.(type) {
	case llir.Lines:
		items := make([]llir.LLCode, len(n.Items))
		for i, item := range n.Items {
			items[i] = inlineCode(candidates, item)
		}
		return llir.Lines{Items: items}
	case llir.ForLoop:
		n.Body = inlineCode(candidates, n.Body)
		return n
	case llir.Set:
		n.Expr = inlineExpr(candidates, n.Expr)
		return n
	case llir.SetLocal:
		n.Expr = inlineExpr(candidates, n.Expr)
		return n
	case llir.DynamicIndices:
		n.Body = inlineCode(candidates, n.Body)
		return n
	case llir.Rebalance:
		children := make([]llir.LLCode, len(n.Children))
		for i, c := range n.Children {
			children[i] = inlineCode(candidates, c)
		}
		n.Children = children
		return n
	default:
		return code
	}
}

func inlineExpr(candidates map[hlir.TensorRefID]*Candidate, expr llir.LLExpr) llir.LLExpr {
	switch n := expr.(type) {
	case llir.Get:
		cand, ok := candidates[n.Ptr.ID]
		if !ok {
			return n
		}
		rename := make(map[symbol.ID]symbol.AxisIndex)
		for i, lhsIdx := range cand.LHSIdcs {
			if i >= len(n.Idcs) {
				break
			}
			if it, ok := lhsIdx.(symbol.Iterator); ok {
				rename[it.Sym.ID()] = n.Idcs[i]
			}
		}
		substituted := inlineExpr(candidates, substituteExpr(cand.Expr, rename))
		scope := llir.NewScopeID()
		return llir.LocalScope{
			ID:          scope,
			Precision:   precision.Single,
			Body:        llir.SetLocal{Scope: scope, Expr: substituted},
			OrigIndices: n.Idcs,
		}
	case llir.Binop:
		return llir.Binop{Op: n.Op, A: inlineExpr(candidates, n.A), B: inlineExpr(candidates, n.B)}
	case llir.Unop:
		return llir.Unop{Op: n.Op, A: inlineExpr(candidates, n.A)}
	default:
		return expr
	}
}

func substituteExpr(expr llir.LLExpr, rename map[symbol.ID]symbol.AxisIndex) llir.LLExpr {
	switch n := expr.(type) {
	case llir.Get:
		idcs := make([]symbol.AxisIndex, len(n.Idcs))
		for i, idx := range n.Idcs {
			idcs[i] = substituteIdx(idx, rename)
		}
		return llir.Get{Ptr: n.Ptr, Idcs: idcs}
	case llir.Binop:
		return llir.Binop{Op: n.Op, A: substituteExpr(n.A, rename), B: substituteExpr(n.B, rename)}
	case llir.Unop:
		return llir.Unop{Op: n.Op, A: substituteExpr(n.A, rename)}
	default:
		return expr
	}
}

func substituteIdx(idx symbol.AxisIndex, rename map[symbol.ID]symbol.AxisIndex) symbol.AxisIndex {
	switch v := idx.(type) {
	case symbol.Iterator:
		if r, ok := rename[v.Sym.ID()]; ok {
			return r
		}
		return v
	case symbol.DynamicProvider:
		idcs := make([]symbol.AxisIndex, len(v.Idcs))
		for i, in := range v.Idcs {
			idcs[i] = substituteIdx(in, rename)
		}
		return symbol.DynamicProvider{Idcs: idcs, TargetDims: v.TargetDims}
	default:
		return idx
	}
}
