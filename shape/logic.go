package shape

import (
	"github.com/tensorforge/tensorforge/symbol"
)

// Logic is the variant of shape-constraint sources a shape update carries
// (§4.C Contract: "Given a partial shape graph and a logic..."). Each
// concrete type is a closed case; Infer dispatches on it.
type Logic interface {
	isLogic()
}

// TerminalSpec narrows a Terminal logic to the little information
// inference needs from an init-op — it does not duplicate precision's
// InitOp (that package is not imported here to keep shape free of a
// dependency on buffer layout); callers translate their init-op into one
// of these before calling Infer.
type TerminalSpec interface {
	isTerminalSpec()
}

// ConstantFillSpec mirrors precision.ConstantFill's shape-relevant fields.
type ConstantFillSpec struct {
	Length int
	Strict bool
}

func (ConstantFillSpec) isTerminalSpec() {}

// FileMappedSpec mirrors precision.FileMapped's shape-relevant fields.
type FileMappedSpec struct {
	ByteLength     int
	PrecisionWidth int
}

func (FileMappedSpec) isTerminalSpec() {}

// OpaqueSpec covers init-ops that carry no shape information (Range-over-
// offsets, Standard-uniform): Infer is a no-op for these.
type OpaqueSpec struct{}

func (OpaqueSpec) isTerminalSpec() {}

// Terminal is a leaf shape constraint driven by a buffer's init-op (§4.C
// "Terminal-driven inference").
type Terminal struct {
	Spec TerminalSpec
}

func (Terminal) isLogic() {}

// Transpose reverses the dim order of this shape's row for Kind, unifying
// it against child's same-kind row read back to front.
type Transpose struct {
	Kind  Kind
	Child *Shape
}

func (Transpose) isLogic() {}

// ComposeKind distinguishes plain elementwise broadcasting from function
// composition (§8 S5's "Compose").
type ComposeKind int

const (
	// Elementwise broadcasts left and right into self row-by-row, the
	// ordinary binary-op shape rule.
	Elementwise ComposeKind = iota
	// Compose chains two shapes end to end: self's output is left's
	// output, self's input is right's input, and left's input must unify
	// with right's output (the connecting axis), like function composition
	// g compose f.
	Compose
)

// Broadcast unifies left and right into self according to Kind (§4.C).
type Broadcast struct {
	Kind  ComposeKind
	Left  *Shape
	Right *Shape
}

func (Broadcast) isLogic() {}

// Infer fills as many row/dim variables in self as the given logic allows,
// mutating self (and, transitively through Env, left/right) in place, or
// returns a Shape-error naming the participating shapes (§4.C Contract).
func Infer(env *Env, self *Shape, logic Logic) error {
	uf := symbol.NewUnionFind() // step-scoped; discarded after this call (§4.C).
	switch l := logic.(type) {
	case Terminal:
		return inferTerminal(env, self, l)
	case Transpose:
		return inferTranspose(env, self, l, uf)
	case Broadcast:
		return inferBroadcast(env, self, l, uf)
	default:
		return newShapeError("Infer", "unknown logic variant", self)
	}
}

func inferTerminal(env *Env, self *Shape, t Terminal) error {
	switch spec := t.Spec.(type) {
	case ConstantFillSpec:
		if !spec.Strict {
			return nil
		}
		ioDims, err := ioProduct(self)
		if err != nil {
			return nil // not enough information yet; defer to a later pass
		}
		if ioDims == 0 || spec.Length%ioDims != 0 {
			return newShapeError("Constant-fill", "array length does not divide evenly by the known input/output dims", self)
		}
		batchElems := spec.Length / ioDims
		self.Rows[Batch].Constraint = TotalElems{N: batchElems}
		return applyTotalElems(self.Rows[Batch])
	case FileMappedSpec:
		if spec.PrecisionWidth == 0 || spec.ByteLength%spec.PrecisionWidth != 0 {
			return newShapeError("File-mapped", "file byte length is not a multiple of the precision width", self)
		}
		length := spec.ByteLength / spec.PrecisionWidth
		ioDims, err := ioProduct(self)
		if err != nil {
			return nil
		}
		if ioDims == 0 || length%ioDims != 0 {
			return newShapeError("File-mapped", "file length does not divide evenly by the known input/output dims", self)
		}
		self.Rows[Batch].Constraint = TotalElems{N: length / ioDims}
		return applyTotalElems(self.Rows[Batch])
	default:
		return nil
	}
}

// ioProduct returns the product of self's input and output rows' known
// concrete dims, or an error if either still has unresolved variables.
func ioProduct(self *Shape) (int, error) {
	n := 1
	for _, k := range []Kind{Input, Output} {
		for _, d := range self.Rows[k].Dims {
			cd, ok := d.(ConcreteDim)
			if !ok {
				return 0, newShapeError("io-product", "unresolved dim", self)
			}
			n *= cd.Size
		}
	}
	return n, nil
}

func inferTranspose(env *Env, self *Shape, t Transpose, uf *symbol.UnionFind) error {
	childRow := env.ResolveRow(t.Child.Rows[t.Kind])
	reversed := childRow.Clone()
	for i, j := 0, len(reversed.Dims)-1; i < j; i, j = i+1, j-1 {
		reversed.Dims[i], reversed.Dims[j] = reversed.Dims[j], reversed.Dims[i]
	}
	if err := unifyRowPair(env, self.Rows[t.Kind], reversed, false, uf); err != nil {
		return Wrap(err, "Transpose").(*Error).WithShape(self).WithShape(t.Child)
	}
	return nil
}

func inferBroadcast(env *Env, self *Shape, b Broadcast, uf *symbol.UnionFind) error {
	switch b.Kind {
	case Elementwise:
		for _, k := range Kinds {
			if err := unifyRowPair(env, b.Left.Rows[k], b.Right.Rows[k], false, uf); err != nil {
				return asShapeError(err, "Elementwise / "+k.String(), self, b.Left, b.Right)
			}
			if err := unifyRowPair(env, self.Rows[k], b.Left.Rows[k], false, uf); err != nil {
				return asShapeError(err, "Elementwise / "+k.String(), self, b.Left, b.Right)
			}
		}
		return nil
	case Compose:
		if err := unifyRowPair(env, b.Left.Rows[Input], b.Right.Rows[Output], true, uf); err != nil {
			return asShapeError(err, "Compose / connecting axis", self, b.Left, b.Right)
		}
		if err := unifyRowPair(env, self.Rows[Output], b.Left.Rows[Output], false, uf); err != nil {
			return asShapeError(err, "Compose / output", self, b.Left, b.Right)
		}
		if err := unifyRowPair(env, self.Rows[Input], b.Right.Rows[Input], false, uf); err != nil {
			return asShapeError(err, "Compose / input", self, b.Left, b.Right)
		}
		if err := unifyRowPair(env, self.Rows[Batch], b.Left.Rows[Batch], false, uf); err != nil {
			return asShapeError(err, "Compose / batch", self, b.Left, b.Right)
		}
		if err := unifyRowPair(env, self.Rows[Batch], b.Right.Rows[Batch], false, uf); err != nil {
			return asShapeError(err, "Compose / batch", self, b.Left, b.Right)
		}
		return nil
	default:
		return newShapeError("Broadcast", "unknown compose kind", self, b.Left, b.Right)
	}
}

func asShapeError(err error, stage string, shapes ...*Shape) error {
	if se, ok := err.(*Error); ok {
		se.stage = stage + " / " + se.stage
		for _, s := range shapes {
			se.WithShape(s)
		}
		return se
	}
	wrapped := newShapeError(stage, err.Error(), shapes...)
	return wrapped
}
