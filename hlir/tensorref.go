// Package hlir implements the high-level assignment-graph IR (component D):
// the Par/ParHint/Seq composition kinds, the Accum-binop/Accum-unop/Fetch
// leaf nodes, and the tree-rewrite operations lowering feeds on.
package hlir

import (
	"fmt"
	"sync/atomic"

	"github.com/tensorforge/tensorforge/shape"
)

// TensorRefID is a stable, process-wide unique tensor-node identifier.
type TensorRefID int64

var nextTensorRefID atomic.Int64

// TensorRef names one node of the tensor graph an IR block reads or
// writes. It carries just enough to drive shape inference and lowering —
// buffer storage itself lives in precision.Buffer, addressed elsewhere by
// the same id.
type TensorRef struct {
	ID        TensorRefID
	DebugName string
	Shape     *shape.Shape
}

// NewTensorRef mints a fresh tensor-graph node.
func NewTensorRef(debugName string, s *shape.Shape) TensorRef {
	return TensorRef{ID: TensorRefID(nextTensorRefID.Add(1)), DebugName: debugName, Shape: s}
}

func (t TensorRef) String() string {
	if t.DebugName != "" {
		return t.DebugName
	}
	return fmt.Sprintf("t%d", t.ID)
}
