// Package interp implements the LL IR closure interpreter shared by
// backend/cpu and backend/gpu (§4.G): compile an already-lowered,
// already-optimized llir.LLCode tree into a tree of composed Go closures
// operating on precision.Buffer values. backend/cpu is this interpreter's
// only engine; backend/gpu uses it as the portable execution path beneath
// its WebGPU pipeline-cache demonstration layer, since emitting real WGSL
// for arbitrary LL IR is out of scope (§1).
package interp

import (
	"fmt"
	"math"

	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/precision"
	"github.com/tensorforge/tensorforge/symbol"
)

// Buffers resolves a tensor reference to its backing buffer, materializing
// it on first touch. Each backend's context implements this over its own
// buffer table.
type Buffers interface {
	BufferFor(t hlir.TensorRef) (*precision.Buffer, error)
}

// Env is the per-run mutable interpreter state threaded through a
// compiled kernel's closures: live iterator/recipient bindings and
// local-scope results.
type Env struct {
	Idx    map[symbol.ID]int
	Scopes map[llir.ScopeID]float64
}

// NewEnv starts a fresh run's interpreter state.
func NewEnv() *Env {
	return &Env{Idx: make(map[symbol.ID]int), Scopes: make(map[llir.ScopeID]float64)}
}

// CompileStmt translates one LL IR statement tree into a closure running
// it against bufs. Compilation happens once per kernel; the closure is
// what Work.Run() invokes, possibly many times across a training loop.
func CompileStmt(bufs Buffers, code llir.LLCode) (func(*Env) error, error) {
	switch n := code.(type) {
	case llir.Comment:
		return func(*Env) error { return nil }, nil

	case llir.Lines:
		runs := make([]func(*Env) error, len(n.Items))
		for i, item := range n.Items {
			run, err := CompileStmt(bufs, item)
			if err != nil {
				return nil, err
			}
			runs[i] = run
		}
		return func(e *Env) error {
			for _, run := range runs {
				if err := run(e); err != nil {
					return err
				}
			}
			return nil
		}, nil

	case llir.ForLoop:
		body, err := CompileStmt(bufs, n.Body)
		if err != nil {
			return nil, err
		}
		id := n.Index.ID()
		from, to := n.From, n.To
		return func(e *Env) error {
			for i := from; i < to; i++ {
				e.Idx[id] = i
				if err := body(e); err != nil {
					return err
				}
			}
			return nil
		}, nil

	case llir.ZeroOut:
		ptr := n.Ptr
		return func(*Env) error {
			buf, err := bufs.BufferFor(ptr)
			if err != nil {
				return err
			}
			return buf.FillFromFloat(0)
		}, nil

	case llir.Set:
		ptr := n.Ptr
		idcs := n.Idcs
		expr, err := CompileExpr(bufs, n.Expr)
		if err != nil {
			return nil, err
		}
		return func(e *Env) error {
			buf, err := bufs.BufferFor(ptr)
			if err != nil {
				return err
			}
			resolved, err := resolveIdcs(idcs, e)
			if err != nil {
				return err
			}
			v, err := expr(e)
			if err != nil {
				return err
			}
			if err := buf.SetFromFloat(resolved, v); err != nil {
				return fmt.Errorf("interp: writing %s%v: %w", ptr, resolved, err)
			}
			return nil
		}, nil

	case llir.SetLocal:
		scope := n.Scope
		expr, err := CompileExpr(bufs, n.Expr)
		if err != nil {
			return nil, err
		}
		return func(e *Env) error {
			v, err := expr(e)
			if err != nil {
				return err
			}
			e.Scopes[scope] = v
			return nil
		}, nil

	case llir.DynamicIndices:
		return compileDynamicIndices(bufs, n)

	case llir.Rebalance:
		runs := make([]func(*Env) error, len(n.Children))
		for i, c := range n.Children {
			run, err := CompileStmt(bufs, c)
			if err != nil {
				return nil, err
			}
			runs[i] = run
		}
		return func(e *Env) error {
			for _, run := range runs {
				if err := run(e); err != nil {
					return err
				}
			}
			return nil
		}, nil

	case llir.StagedCompilation:
		if n.Callback == nil {
			return func(*Env) error { return nil }, nil
		}
		return CompileStmt(bufs, n.Callback())

	default:
		return nil, fmt.Errorf("interp: unhandled LL statement %T", code)
	}
}

// compileDynamicIndices reads TensorIdcs out of Tensor at runtime and binds
// the values to DynIdcs' symbols before running Body — the consuming half
// of dynamic indexing the provider/recipient pair describes (§4.B, §4.E).
// Tensor is expected to carry one trailing axis of size len(DynIdcs),
// holding the coordinate components TensorIdcs addresses the start of.
func compileDynamicIndices(bufs Buffers, n llir.DynamicIndices) (func(*Env) error, error) {
	tensor := n.Tensor
	tensorIdcs := n.TensorIdcs
	recipients := n.DynIdcs
	body, err := CompileStmt(bufs, n.Body)
	if err != nil {
		return nil, err
	}
	return func(e *Env) error {
		buf, err := bufs.BufferFor(tensor)
		if err != nil {
			return err
		}
		base, err := resolveIdcs(tensorIdcs, e)
		if err != nil {
			return err
		}
		if len(recipients) != len(n.TargetDims) {
			return fmt.Errorf("interp: dynamic-indices %s: %d recipients, %d target dims", tensor, len(recipients), len(n.TargetDims))
		}
		full := append(append([]int(nil), base...), 0)
		for k, sym := range recipients {
			full[len(full)-1] = k
			v, err := buf.GetAsFloat(full)
			if err != nil {
				return fmt.Errorf("interp: reading dynamic index from %s%v: %w", tensor, full, err)
			}
			e.Idx[sym.ID()] = int(v)
		}
		return body(e)
	}, nil
}

// CompileExpr translates one LL expression tree into a closure yielding a
// float64.
func CompileExpr(bufs Buffers, expr llir.LLExpr) (func(*Env) (float64, error), error) {
	switch n := expr.(type) {
	case llir.Constant:
		v := n.Value
		return func(*Env) (float64, error) { return v, nil }, nil

	case llir.Get:
		ptr := n.Ptr
		idcs := n.Idcs
		return func(e *Env) (float64, error) {
			buf, err := bufs.BufferFor(ptr)
			if err != nil {
				return 0, err
			}
			resolved, err := resolveIdcs(idcs, e)
			if err != nil {
				return 0, err
			}
			v, err := buf.GetAsFloat(resolved)
			if err != nil {
				return 0, fmt.Errorf("interp: reading %s%v: %w", ptr, resolved, err)
			}
			return v, nil
		}, nil

	case llir.GetLocal:
		scope := n.Scope
		return func(e *Env) (float64, error) {
			v, ok := e.Scopes[scope]
			if !ok {
				return 0, fmt.Errorf("interp: local scope %d read before set", scope)
			}
			return v, nil
		}, nil

	case llir.GetGlobal:
		return nil, fmt.Errorf("interp: get-global %q has no binding source", n.Name)

	case llir.LocalScope:
		body, err := CompileStmt(bufs, n.Body)
		if err != nil {
			return nil, err
		}
		scope := n.ID
		return func(e *Env) (float64, error) {
			if err := body(e); err != nil {
				return 0, err
			}
			v, ok := e.Scopes[scope]
			if !ok {
				return 0, fmt.Errorf("interp: local scope %d never set", scope)
			}
			return v, nil
		}, nil

	case llir.Binop:
		a, err := CompileExpr(bufs, n.A)
		if err != nil {
			return nil, err
		}
		b, err := CompileExpr(bufs, n.B)
		if err != nil {
			return nil, err
		}
		op := n.Op
		return func(e *Env) (float64, error) {
			av, err := a(e)
			if err != nil {
				return 0, err
			}
			bv, err := b(e)
			if err != nil {
				return 0, err
			}
			return ApplyBinop(op, av, bv), nil
		}, nil

	case llir.Unop:
		a, err := CompileExpr(bufs, n.A)
		if err != nil {
			return nil, err
		}
		op := n.Op
		return func(e *Env) (float64, error) {
			av, err := a(e)
			if err != nil {
				return 0, err
			}
			return ApplyUnop(op, av), nil
		}, nil

	default:
		return nil, fmt.Errorf("interp: unhandled LL expression %T", expr)
	}
}

func resolveIdcs(idcs []symbol.AxisIndex, e *Env) ([]int, error) {
	out := make([]int, len(idcs))
	for i, idx := range idcs {
		v, err := resolveAxisIndex(idx, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func resolveAxisIndex(idx symbol.AxisIndex, e *Env) (int, error) {
	switch v := idx.(type) {
	case symbol.FixedIdx:
		return v.I, nil
	case symbol.Iterator:
		val, ok := e.Idx[v.Sym.ID()]
		if !ok {
			return 0, fmt.Errorf("interp: iterator %s read outside its loop", v.Sym)
		}
		return val, nil
	case symbol.DynamicRecipient:
		val, ok := e.Idx[v.Sym.ID()]
		if !ok {
			return 0, fmt.Errorf("interp: dynamic recipient %s read before its provider ran", v.Sym)
		}
		return val, nil
	case symbol.FrozenRecipient:
		val, ok := e.Idx[v.Sym.ID()]
		if !ok {
			return 0, fmt.Errorf("interp: frozen recipient %s never bound", v.Sym)
		}
		return val, nil
	case symbol.DynamicProvider:
		return 0, fmt.Errorf("interp: a dynamic-provider slot must be consumed by DynamicIndices lowering, not read directly")
	default:
		return 0, fmt.Errorf("interp: unhandled axis-index %T", idx)
	}
}

// ApplyBinop evaluates one closed-set binary op (§4.D/§4.E), shared by the
// interpreter and by Backend.Merge's direct buffer fold.
func ApplyBinop(op hlir.BinOp, a, b float64) float64 {
	switch op {
	case hlir.Arg1:
		return a
	case hlir.Arg2:
		return b
	case hlir.Add:
		return a + b
	case hlir.Mul:
		return a * b
	case hlir.ToPowOf:
		return math.Pow(a, b)
	case hlir.ReluGate:
		if a > 0 {
			return b
		}
		return 0
	default:
		return 0
	}
}

// ApplyUnop evaluates one closed-set unary op.
func ApplyUnop(op hlir.UnOp, a float64) float64 {
	switch op {
	case hlir.Identity:
		return a
	case hlir.Relu:
		if a > 0 {
			return a
		}
		return 0
	default:
		return 0
	}
}
