package shape

import (
	"fmt"
	"sync/atomic"
)

// ShapeID is a stable, process-wide unique shape identifier.
type ShapeID int64

var nextShapeID atomic.Int64

// Shape carries three rows (batch/input/output), a stable id, and a debug
// name (§3 Shape). Rows are mutated in place during inference by Env's
// unification procedures.
type Shape struct {
	ID        ShapeID
	DebugName string
	Rows      [3]*Row // indexed by Kind
}

// New allocates a shape with the given rows (order: batch, input, output)
// and a fresh stable id.
func New(debugName string, batch, input, output *Row) *Shape {
	return &Shape{
		ID:        ShapeID(nextShapeID.Add(1)),
		DebugName: debugName,
		Rows:      [3]*Row{batch, input, output},
	}
}

// Row returns the row for the given kind.
func (s *Shape) Row(k Kind) *Row { return s.Rows[k] }

// SetRow replaces the row for the given kind. Used only by unification's
// substitution merge step (§4.C "merges only the dim and row substitutions
// back into global state").
func (s *Shape) SetRow(k Kind, r *Row) { s.Rows[k] = r }

func (s *Shape) String() string {
	name := s.DebugName
	if name == "" {
		name = fmt.Sprintf("shape#%d", s.ID)
	}
	return fmt.Sprintf("%s[%s | %s -> %s]", name, s.Rows[Batch], s.Rows[Input], s.Rows[Output])
}

// ToDims extracts a concrete positive-integer dims array for kind k, or a
// Shape-error naming s if any row/dim variable remains (§8 invariant 2).
func (s *Shape) ToDims(k Kind) ([]int, error) {
	row := s.Rows[k]
	if _, isVar := row.IsBareVar(); isVar {
		return nil, newShapeError(fmt.Sprintf("to_dims / %s", k), "row-variable has not been resolved", s)
	}
	if _, ok := row.Terminator.(RowVarTerm); ok && len(row.Dims) > 0 {
		return nil, newShapeError(fmt.Sprintf("to_dims / %s", k), "row terminator has not been resolved", s)
	}
	out := make([]int, len(row.Dims))
	for i, d := range row.Dims {
		cd, ok := d.(ConcreteDim)
		if !ok {
			return nil, newShapeError(fmt.Sprintf("to_dims / %s / axis %d", k, i), "dim-variable has not been resolved", s)
		}
		if cd.Size <= 0 {
			return nil, newShapeError(fmt.Sprintf("to_dims / %s / axis %d", k, i), "dim is not a positive integer", s)
		}
		out[i] = cd.Size
	}
	return out, nil
}

// ToDimsAll concatenates batch, input, output dims in that order — the
// convention the rest of the package (and projections) uses for a
// "flattened" shape.
func (s *Shape) ToDimsAll() ([]int, error) {
	var out []int
	for _, k := range Kinds {
		d, err := s.ToDims(k)
		if err != nil {
			return nil, err
		}
		out = append(out, d...)
	}
	return out, nil
}
