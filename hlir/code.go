package hlir

import (
	"github.com/tensorforge/tensorforge/shape"
)

// Code is the HL IR node variant (§4.D).
type Code interface {
	isCode()
}

// CompositionKind distinguishes Par/ParHint/Seq — they differ only in
// safety contract, never in tree shape (§4.D).
type CompositionKind int

const (
	// Par promises independence: children may run in any order or
	// concurrently.
	Par CompositionKind = iota
	// ParHint admits overlap but requires writes in an earlier child to
	// finish before reads in a later one.
	ParHint
	// Seq promises only fusion benefits — no reordering license at all,
	// but a backend may still fuse adjacent children into one kernel.
	Seq
)

func (k CompositionKind) String() string {
	switch k {
	case Par:
		return "par"
	case ParHint:
		return "par_hint"
	case Seq:
		return "seq"
	default:
		return "unknown-composition"
	}
}

// Composition holds an ordered list of children under one of the three
// safety contracts.
type Composition struct {
	Kind     CompositionKind
	Children []Code
}

func (Composition) isCode() {}

// ProjectionsThunk derives the loop-index-space projections for an
// Accum-* node lazily — shape inference for its operands may still be
// converging when the node is built, so the projections record is only
// demanded once, at lowering time (§4.E step 1).
type ProjectionsThunk func() (*shape.Projections, error)

// AccumBinop assigns lhs via a binary op over rhs1/rhs2 under an
// accumulation operator, e.g. `lhs += rhs1 * rhs2` (accum=Add, op=Mul).
type AccumBinop struct {
	ZeroOut     bool
	Accum       BinOp
	Op          BinOp
	LHS         TensorRef
	RHS1        TensorRef
	RHS2        TensorRef
	Projections ProjectionsThunk
}

func (AccumBinop) isCode() {}

// AccumUnop is Accum-binop's one-operand counterpart, e.g.
// `lhs += relu(rhs)` (accum=Add, op=Relu-as-unop).
type AccumUnop struct {
	ZeroOut     bool
	Accum       BinOp
	Op          UnOp
	LHS         TensorRef
	RHS         TensorRef
	Projections ProjectionsThunk
}

func (AccumUnop) isCode() {}

// FetchOp is Fetch's closed set of sources (§4.D).
type FetchOp interface {
	isFetchOp()
}

// FetchConstant fills the target with a single literal.
type FetchConstant struct{ Value float64 }

func (FetchConstant) isFetchOp() {}

// FetchSynthetic recomputes the target from an inner block of code on
// every access — the callback-driven fetch S1/S2 exercise.
type FetchSynthetic struct{ Code Code }

func (FetchSynthetic) isFetchOp() {}

// FetchImported names an externally supplied source; reserved (§4.D).
type FetchImported struct{ Name string }

func (FetchImported) isFetchOp() {}

// Fetch populates Target from Op.
type Fetch struct {
	Target TensorRef
	Op     FetchOp
}

func (Fetch) isCode() {}

// BlockComment attaches a debug label to Body that propagates into
// generated code and debug artifacts (§4.D, §6 debug artifacts).
type BlockComment struct {
	Msg  string
	Body Code
}

func (BlockComment) isCode() {}

// Noop performs no work; a valid fold identity for sequential/all-parallel
// over an empty list.
type Noop struct{}

func (Noop) isCode() {}

func lhsOf(c Code) (TensorRef, bool) {
	switch n := c.(type) {
	case AccumBinop:
		return n.LHS, true
	case AccumUnop:
		return n.LHS, true
	case Fetch:
		return n.Target, true
	default:
		return TensorRef{}, false
	}
}
