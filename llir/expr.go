package llir

import (
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/precision"
	"github.com/tensorforge/tensorforge/symbol"
)

// LLExpr is the LL IR expression variant (§3 "LL expression").
type LLExpr interface {
	isLLExpr()
}

// Constant is a literal float value.
type Constant struct{ Value float64 }

func (Constant) isLLExpr() {}

// Get reads Ptr at Idcs.
type Get struct {
	Ptr  hlir.TensorRef
	Idcs []symbol.AxisIndex
}

func (Get) isLLExpr() {}

// GetLocal reads back a scope's last Set-local value.
type GetLocal struct{ Scope ScopeID }

func (GetLocal) isLLExpr() {}

// GetGlobal reads a named external value (process-wide config/constant).
type GetGlobal struct{ Name string }

func (GetGlobal) isLLExpr() {}

// LocalScope introduces a scoped result computed by Body (whose last
// write is a Set-local(ID, ...)), to be read back through GetLocal — the
// substitution inlining installs at a virtualized tensor's call sites
// (§4.F pass 3).
type LocalScope struct {
	ID          ScopeID
	Precision   precision.Precision
	Body        LLCode
	OrigIndices []symbol.AxisIndex
}

func (LocalScope) isLLExpr() {}

// Binop applies a pointwise binary operation.
type Binop struct {
	Op   hlir.BinOp
	A, B LLExpr
}

func (Binop) isLLExpr() {}

// Unop applies a pointwise unary operation.
type Unop struct {
	Op hlir.UnOp
	A  LLExpr
}

func (Unop) isLLExpr() {}
