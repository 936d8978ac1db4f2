// Package assign implements the assignment composer (component I):
// grad_update's forward/zero-grad/init-grad/backward sequencing and
// sgd_one/sgd_update's textbook SGD IR (§4.I).
package assign

import (
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/shape"
)

// scalarShape returns a 0-rank (one-element) shape: every row empty with a
// fixed terminator. A hyperparameter like a learning rate has no axes of
// its own; size-1/size-0 axes always resolve to a Fixed-idx at projection
// derivation regardless of the other operand's rank (§4.C rule 4, §4.I
// DeriveProjections), so a 0-rank tensor broadcasts against any parameter
// shape without needing to go through unification.
func scalarShape(name string) *shape.Shape {
	empty := shape.NewRow(nil, shape.FixedTerm{})
	return shape.New(name, empty.Clone(), empty.Clone(), empty.Clone())
}

// constant mints a fresh 0-rank tensor and the Fetch statement that sets
// it to v, the IR-level representation of a literal hyperparameter
// (learning rate, momentum, weight decay) used inline in an Accum-binop
// operand position, where the IR only accepts tensor references.
func constant(name string, v float64) (hlir.TensorRef, hlir.Code) {
	t := hlir.NewTensorRef(name, scalarShape(name))
	return t, hlir.Fetch{Target: t, Op: hlir.FetchConstant{Value: v}}
}

// unopProjections builds the Accum-unop Projections thunk deriving the
// shared loop-index space from lhs/rhs's already-resolved shapes (§4.I
// DeriveProjections). Component I only ever runs on tensors whose shapes
// the front-end's shape-inference pass has already closed.
func unopProjections(lhs, rhs hlir.TensorRef, debugInfo string) hlir.ProjectionsThunk {
	return func() (*shape.Projections, error) {
		return shape.DeriveProjectionsForShapes(lhs.Shape, []*shape.Shape{rhs.Shape}, debugInfo)
	}
}

// binopProjections is unopProjections' two-rhs-operand counterpart.
func binopProjections(lhs, rhs1, rhs2 hlir.TensorRef, debugInfo string) hlir.ProjectionsThunk {
	return func() (*shape.Projections, error) {
		return shape.DeriveProjectionsForShapes(lhs.Shape, []*shape.Shape{rhs1.Shape, rhs2.Shape}, debugInfo)
	}
}
