package hlir

// BinOp is the closed set of binary pointwise operations the IR knows
// about (§4.D/§4.E), shared between HL accum/op nodes and their LL
// lowering.
type BinOp int

const (
	// Arg1 discards its second operand.
	Arg1 BinOp = iota
	// Arg2 discards its first operand.
	Arg2
	Add
	Mul
	// ToPowOf raises its first operand to the power of its second.
	ToPowOf
	// ReluGate passes its second operand through when its first is
	// positive, else yields zero (the backward-pass gate for Relu).
	ReluGate
)

func (o BinOp) String() string {
	switch o {
	case Arg1:
		return "arg1"
	case Arg2:
		return "arg2"
	case Add:
		return "add"
	case Mul:
		return "mul"
	case ToPowOf:
		return "to_pow_of"
	case ReluGate:
		return "relu_gate"
	default:
		return "unknown-binop"
	}
}

// UnOp is the closed set of unary pointwise operations.
type UnOp int

const (
	Identity UnOp = iota
	Relu
)

func (o UnOp) String() string {
	switch o {
	case Identity:
		return "identity"
	case Relu:
		return "relu"
	default:
		return "unknown-unop"
	}
}
