package trace

import (
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
)

// ConstantFold marks each trace whose every recorded write is the same
// literal as Scalar, then rewrites every Get of that tensor in code to the
// literal directly (§4.F pass 4 "constant-fold scalar-proven tensors").
func ConstantFold(traces map[hlir.TensorRefID]*TensorTrace, code llir.LLCode) llir.LLCode {
	folded := make(map[hlir.TensorRefID]float64)
	for id, tt := range traces {
		if len(tt.RHSSet) != 1 {
			continue
		}
		for _, expr := range tt.RHSSet {
			if c, ok := expr.(llir.Constant); ok {
				tt.Scalar = new(float64)
				*tt.Scalar = c.Value
				folded[id] = c.Value
			}
		}
	}
	if len(folded) == 0 {
		return code
	}
	return foldCode(folded, code)
}

func foldCode(folded map[hlir.TensorRefID]float64, code llir.LLCode) llir.LLCode {
	switch n := code.(type) {
	case llir.Lines:
		items := make([]llir.LLCode, len(n.Items))
		for i, item := range n.Items {
			items[i] = foldCode(folded, item)
		}
		return llir.Lines{Items: items}
	case llir.ForLoop:
		n.Body = foldCode(folded, n.Body)
		return n
	case llir.Set:
		n.Expr = foldExpr(folded, n.Expr)
		return n
	case llir.SetLocal:
		n.Expr = foldExpr(folded, n.Expr)
		return n
	case llir.DynamicIndices:
		n.Body = foldCode(folded, n.Body)
		return n
	case llir.Rebalance:
		children := make([]llir.LLCode, len(n.Children))
		for i, c := range n.Children {
			children[i] = foldCode(folded, c)
		}
		n.Children = children
		return n
	default:
		return code
	}
}

func foldExpr(folded map[hlir.TensorRefID]float64, expr llir.LLExpr) llir.LLExpr {
	switch n := expr.(type) {
	case llir.Get:
		if v, ok := folded[n.Ptr.ID]; ok {
			return llir.Constant{Value: v}
		}
		return n
	case llir.LocalScope:
		n.Body = foldCode(folded, n.Body)
		return n
	case llir.Binop:
		return llir.Binop{Op: n.Op, A: foldExpr(folded, n.A), B: foldExpr(folded, n.B)}
	case llir.Unop:
		return llir.Unop{Op: n.Op, A: foldExpr(folded, n.A)}
	default:
		return expr
	}
}

// Prune drops the original writing statements (Set, ZeroOut) of every
// tensor named in removeIDs — the tensors pass 3 fully inlined or pass 4
// constant-folded, whose definitions no longer have any remaining reader
// (§4.F pass 4 "remove original definitions of virtualized tensors").
// Empty Lines/ForLoop/DynamicIndices left behind collapse to a Comment.
func Prune(removeIDs map[hlir.TensorRefID]bool, code llir.LLCode) llir.LLCode {
	pruned, _ := pruneCode(removeIDs, code)
	return pruned
}

func pruneCode(removeIDs map[hlir.TensorRefID]bool, code llir.LLCode) (llir.LLCode, bool) {
	switch n := code.(type) {
	case llir.Lines:
		var items []llir.LLCode
		for _, item := range n.Items {
			p, dead := pruneCode(removeIDs, item)
			if dead {
				continue
			}
			items = append(items, p)
		}
		if len(items) == 0 {
			return llir.Comment{Msg: "pruned"}, true
		}
		return llir.Lines{Items: items}, false
	case llir.ForLoop:
		body, dead := pruneCode(removeIDs, n.Body)
		if dead {
			return llir.Comment{Msg: "pruned"}, true
		}
		n.Body = body
		return n, false
	case llir.ZeroOut:
		if removeIDs[n.Ptr.ID] {
			return llir.Comment{Msg: "pruned"}, true
		}
		return n, false
	case llir.Set:
		if removeIDs[n.Ptr.ID] {
			return llir.Comment{Msg: "pruned"}, true
		}
		return n, false
	case llir.DynamicIndices:
		body, dead := pruneCode(removeIDs, n.Body)
		if dead {
			return llir.Comment{Msg: "pruned"}, true
		}
		n.Body = body
		return n, false
	case llir.Rebalance:
		var children []llir.LLCode
		for _, c := range n.Children {
			p, dead := pruneCode(removeIDs, c)
			if dead {
				continue
			}
			children = append(children, p)
		}
		if len(children) == 0 {
			return llir.Comment{Msg: "pruned"}, true
		}
		n.Children = children
		return n, false
	default:
		return code, false
	}
}
