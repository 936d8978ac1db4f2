package llir

import (
	"fmt"

	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/shape"
	"github.com/tensorforge/tensorforge/symbol"
)

// Result is the output of ToLowLevel: the lowered code plus the
// value-distributes-over-sum flag computed per accumulation node,
// keyed by the node's LHS tensor (§4.E "maintained on the lhs node").
type Result struct {
	Code                LLCode
	DistributesOverSum map[hlir.TensorRefID]bool
}

// ToLowLevel translates HL IR into LL IR (§4.E `to-low-level`).
func ToLowLevel(code hlir.Code) (*Result, error) {
	res := &Result{DistributesOverSum: make(map[hlir.TensorRefID]bool)}
	c, err := lower(code, res)
	if err != nil {
		return nil, err
	}
	res.Code = c
	return res, nil
}

func lower(code hlir.Code, res *Result) (LLCode, error) {
	switch n := code.(type) {
	case hlir.Composition:
		items := make([]LLCode, 0, len(n.Children))
		for _, child := range n.Children {
			lowered, err := lower(child, res)
			if err != nil {
				return nil, err
			}
			items = append(items, lowered)
		}
		return Lines{Items: items}, nil
	case hlir.BlockComment:
		body, err := lower(n.Body, res)
		if err != nil {
			return nil, err
		}
		return Lines{Items: []LLCode{Comment{Msg: n.Msg}, body}}, nil
	case hlir.Noop:
		return Lines{}, nil
	case hlir.Fetch:
		return lowerFetch(n, res)
	case hlir.AccumBinop:
		return lowerAccumBinop(n, res)
	case hlir.AccumUnop:
		return lowerAccumUnop(n, res)
	default:
		return nil, fmt.Errorf("llir: unknown HL IR node %T", code)
	}
}

// distributesOverSum reports whether accum/op make the assignment
// distribute a product over a sum — accum=Add with op=Mul is the only
// such pattern among the closed binop set (§4.E).
func distributesOverSum(accum, op hlir.BinOp) bool {
	return accum == hlir.Add && op == hlir.Mul
}

func lowerFetch(n hlir.Fetch, res *Result) (LLCode, error) {
	switch op := n.Op.(type) {
	case hlir.FetchConstant:
		if op.Value == 0 {
			return ZeroOut{Ptr: n.Target}, nil
		}
		return fillLoop(n.Target, Constant{Value: op.Value})
	case hlir.FetchSynthetic:
		return lower(op.Code, res)
	case hlir.FetchImported:
		return nil, fmt.Errorf("llir: Fetch{Imported %q} is reserved, not yet implemented", op.Name)
	default:
		return nil, fmt.Errorf("llir: unknown fetch-op %T", n.Op)
	}
}

// fillLoop builds a full nested for-loop over target's own shape, setting
// expr at every cell — the path Fetch{Constant c != 0} takes.
func fillLoop(target hlir.TensorRef, expr LLExpr) (LLCode, error) {
	proj, err := shape.DeriveProjectionsForShapes(target.Shape, nil, fmt.Sprintf("fill(%s)", target))
	if err != nil {
		return nil, err
	}
	return buildLoopNest(proj.ProductSpace, proj.ProductIterators, func() LLCode {
		return Set{Ptr: target, Idcs: proj.ProjectLHS, Expr: expr}
	}), nil
}

func lowerAccumBinop(n hlir.AccumBinop, res *Result) (LLCode, error) {
	res.DistributesOverSum[n.LHS.ID] = distributesOverSum(n.Accum, n.Op)

	proj, err := n.Projections()
	if err != nil {
		return nil, err
	}
	if len(proj.RHSDims) != 2 {
		return nil, fmt.Errorf("llir: Accum-binop projections must carry exactly two rhs operands, got %d", len(proj.RHSDims))
	}
	rhs1Idcs, rhs2Idcs := proj.ProjectRHS[0], proj.ProjectRHS[1]

	innermost := Set{
		Ptr:  n.LHS,
		Idcs: proj.ProjectLHS,
		Expr: Binop{
			Op: n.Accum,
			A:  Get{Ptr: n.LHS, Idcs: proj.ProjectLHS},
			B: Binop{
				Op: n.Op,
				A:  Get{Ptr: n.RHS1, Idcs: rhs1Idcs},
				B:  Get{Ptr: n.RHS2, Idcs: rhs2Idcs},
			},
		},
	}

	var body LLCode = innermost
	if dp, owner, idcs, ok := findDynamicProvider(
		dynProviderCandidate{Owner: n.RHS1, Idcs: rhs1Idcs},
		dynProviderCandidate{Owner: n.RHS2, Idcs: rhs2Idcs},
	); ok {
		body = wrapDynamicIndices(dp, owner, idcs, body)
	}

	loop := buildLoopNest(proj.ProductSpace, proj.ProductIterators, func() LLCode { return body })

	if n.ZeroOut {
		return Lines{Items: []LLCode{ZeroOut{Ptr: n.LHS}, loop}}, nil
	}
	return loop, nil
}

func lowerAccumUnop(n hlir.AccumUnop, res *Result) (LLCode, error) {
	res.DistributesOverSum[n.LHS.ID] = false // unary ops never distribute a product over a sum

	proj, err := n.Projections()
	if err != nil {
		return nil, err
	}
	if len(proj.RHSDims) != 1 {
		return nil, fmt.Errorf("llir: Accum-unop projections must carry exactly one rhs operand, got %d", len(proj.RHSDims))
	}
	rhsIdcs := proj.ProjectRHS[0]

	innermost := Set{
		Ptr:  n.LHS,
		Idcs: proj.ProjectLHS,
		Expr: Binop{
			Op: n.Accum,
			A:  Get{Ptr: n.LHS, Idcs: proj.ProjectLHS},
			B:  Unop{Op: n.Op, A: Get{Ptr: n.RHS, Idcs: rhsIdcs}},
		},
	}

	var body LLCode = innermost
	if dp, owner, idcs, ok := findDynamicProvider(dynProviderCandidate{Owner: n.RHS, Idcs: rhsIdcs}); ok {
		body = wrapDynamicIndices(dp, owner, idcs, body)
	}

	loop := buildLoopNest(proj.ProductSpace, proj.ProductIterators, func() LLCode { return body })

	if n.ZeroOut {
		return Lines{Items: []LLCode{ZeroOut{Ptr: n.LHS}, loop}}, nil
	}
	return loop, nil
}

// buildLoopNest wraps build in one ForLoop per (size, iterator) pair,
// outermost first, matching product-space order.
func buildLoopNest(sizes []int, iters []symbol.Symbol, build func() LLCode) LLCode {
	body := build()
	for i := len(sizes) - 1; i >= 0; i-- {
		body = ForLoop{Index: iters[i], From: 0, To: sizes[i], Body: body, TraceIt: !iters[i].Substitutable()}
	}
	return body
}

// dynProviderCandidate pairs an operand's tensor with its derived index
// array, for the dynamic-provider scan below.
type dynProviderCandidate struct {
	Owner hlir.TensorRef
	Idcs  []symbol.AxisIndex
}

// findDynamicProvider scans each candidate in order (outermost provider
// wins, §4.E step 5) for a Dynamic-provider slot.
func findDynamicProvider(candidates ...dynProviderCandidate) (symbol.DynamicProvider, hlir.TensorRef, []symbol.AxisIndex, bool) {
	for _, c := range candidates {
		for _, idx := range c.Idcs {
			if dp, ok := idx.(symbol.DynamicProvider); ok {
				return dp, c.Owner, c.Idcs, true
			}
		}
	}
	return symbol.DynamicProvider{}, hlir.TensorRef{}, nil, false
}

// wrapDynamicIndices installs the recipients a Dynamic-provider's Idcs
// name, then runs body.
func wrapDynamicIndices(dp symbol.DynamicProvider, owner hlir.TensorRef, idcs []symbol.AxisIndex, body LLCode) LLCode {
	var recipients []symbol.Symbol
	for _, inner := range dp.Idcs {
		if rec, ok := inner.(symbol.DynamicRecipient); ok {
			recipients = append(recipients, rec.Sym)
		}
	}
	return DynamicIndices{
		Tensor:     owner,
		TensorIdcs: idcs,
		DynIdcs:    recipients,
		TargetDims: dp.TargetDims,
		Body:       body,
	}
}
