package trace

import (
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
)

// Simplify runs pass 5 to a fixpoint: the rewrite set below is applied
// repeatedly until a pass produces no further change, which also makes a
// second call on an already-simplified tree a no-op (§8 invariant 4).
func Simplify(settings Settings, code llir.LLCode) llir.LLCode {
	for i := 0; i < 64; i++ {
		next, changed := simplifyCode(settings, code)
		code = next
		if !changed {
			break
		}
	}
	return code
}

func simplifyCode(settings Settings, code llir.LLCode) (llir.LLCode, bool) {
	switch n := code.(type) {
	case llir.Lines:
		changed := false
		items := make([]llir.LLCode, len(n.Items))
		for i, item := range n.Items {
			c, ch := simplifyCode(settings, item)
			items[i] = c
			changed = changed || ch
		}
		return llir.Lines{Items: items}, changed
	case llir.ForLoop:
		body, changed := simplifyCode(settings, n.Body)
		n.Body = body
		return n, changed
	case llir.Set:
		e, changed := simplifyExpr(settings, n.Expr)
		n.Expr = e
		return n, changed
	case llir.SetLocal:
		e, changed := simplifyExpr(settings, n.Expr)
		n.Expr = e
		return n, changed
	case llir.DynamicIndices:
		body, changed := simplifyCode(settings, n.Body)
		n.Body = body
		return n, changed
	case llir.Rebalance:
		changed := false
		children := make([]llir.LLCode, len(n.Children))
		for i, c := range n.Children {
			cc, ch := simplifyCode(settings, c)
			children[i] = cc
			changed = changed || ch
		}
		n.Children = children
		return n, changed
	default:
		return code, false
	}
}

func simplifyExpr(settings Settings, expr llir.LLExpr) (llir.LLExpr, bool) {
	switch n := expr.(type) {
	case llir.LocalScope:
		body, bodyChanged := simplifyCode(settings, n.Body)
		body = liftDoubleSetLocal(n.ID, body)
		if e, ok := trivialSetLocal(n.ID, body); ok {
			return e, true
		}
		n.Body = body
		return n, bodyChanged
	case llir.Binop:
		a, ca := simplifyExpr(settings, n.A)
		b, cb := simplifyExpr(settings, n.B)
		folded, fc := simplifyBinop(settings, n.Op, a, b)
		return folded, ca || cb || fc
	case llir.Unop:
		a, ca := simplifyExpr(settings, n.A)
		if n.Op == hlir.Identity {
			return a, true
		}
		return llir.Unop{Op: n.Op, A: a}, ca
	default:
		return expr, false
	}
}

// trivialSetLocal elides a LocalScope whose body is nothing but its own
// final write — the wrapper then carries no information a direct reference
// to the inner expression doesn't already carry.
func trivialSetLocal(id llir.ScopeID, body llir.LLCode) (llir.LLExpr, bool) {
	sl, ok := body.(llir.SetLocal)
	if ok && sl.Scope == id {
		return sl.Expr, true
	}
	return nil, false
}

// liftDoubleSetLocal drops every dead write to scope id that precedes the
// last one in a statement sequence — only the final Set-local into a given
// scope is ever observed through GetLocal.
func liftDoubleSetLocal(id llir.ScopeID, body llir.LLCode) llir.LLCode {
	lines, ok := body.(llir.Lines)
	if !ok {
		return body
	}
	lastIdx := -1
	for i, item := range lines.Items {
		if sl, ok := item.(llir.SetLocal); ok && sl.Scope == id {
			lastIdx = i
		}
	}
	if lastIdx <= 0 {
		return body
	}
	var out []llir.LLCode
	for i, item := range lines.Items {
		if sl, ok := item.(llir.SetLocal); ok && sl.Scope == id && i != lastIdx {
			continue
		}
		out = append(out, item)
	}
	if len(out) == 1 {
		return out[0]
	}
	return llir.Lines{Items: out}
}

func simplifyBinop(settings Settings, op hlir.BinOp, a, b llir.LLExpr) (llir.LLExpr, bool) {
	switch op {
	case hlir.Arg1:
		return a, true
	case hlir.Arg2:
		return b, true
	case hlir.Add:
		if isZero(a) {
			return b, true
		}
		if isZero(b) {
			return a, true
		}
		if ca, ok := a.(llir.Constant); ok {
			if cb, ok := b.(llir.Constant); ok {
				return llir.Constant{Value: ca.Value + cb.Value}, true
			}
		}
	case hlir.Mul:
		if isZero(a) || isZero(b) {
			return llir.Constant{Value: 0}, true
		}
		if isOne(a) {
			return b, true
		}
		if isOne(b) {
			return a, true
		}
		if ca, ok := a.(llir.Constant); ok {
			if cb, ok := b.(llir.Constant); ok {
				return llir.Constant{Value: ca.Value * cb.Value}, true
			}
		}
	case hlir.ToPowOf:
		if settings.OptimizeIntegerPow {
			if ce, ok := b.(llir.Constant); ok {
				if n, ok := asInt(ce.Value); ok {
					return unrollIntegerPow(a, n), true
				}
			}
		}
	}
	return llir.Binop{Op: op, A: a, B: b}, false
}

func isZero(e llir.LLExpr) bool {
	c, ok := e.(llir.Constant)
	return ok && c.Value == 0
}

func isOne(e llir.LLExpr) bool {
	c, ok := e.(llir.Constant)
	return ok && c.Value == 1
}

func asInt(v float64) (int, bool) {
	n := int(v)
	return n, float64(n) == v
}

// unrollIntegerPow expands x^n into a multiplication chain. A negative
// exponent unrolls the positive magnitude and wraps it back in a
// ToPowOf(.., -1) reciprocal, since the IR has no dedicated divide op.
func unrollIntegerPow(base llir.LLExpr, n int) llir.LLExpr {
	if n == 0 {
		return llir.Constant{Value: 1}
	}
	neg := n < 0
	if neg {
		n = -n
	}
	product := base
	for i := 1; i < n; i++ {
		product = llir.Binop{Op: hlir.Mul, A: product, B: base}
	}
	if neg {
		return llir.Binop{Op: hlir.ToPowOf, A: product, B: llir.Constant{Value: -1}}
	}
	return product
}
