package shape

import (
	"fmt"

	"github.com/tensorforge/tensorforge/symbol"
)

// RowEquation is one {r, subr} pair from §4.C's unification core. When
// Directional is true, subr comes from a subtensor and only biases
// broadcasting (rule 2/3 alignment); it is not forced into equality both
// ways the way two equal-footing operand rows are.
type RowEquation struct {
	R          *Row
	Sub        *Row
	Directional bool
}

// UnifyDims runs unify_dims over a batch of row equations against a
// step-scoped union-find (§4.C "each shape update carries its own
// proj_classes map"). Callers merge only Env's dim/row substitutions back
// into global state; the union-find itself is discarded after the call.
func UnifyDims(env *Env, eqs []RowEquation, uf *symbol.UnionFind) error {
	for _, eq := range eqs {
		if err := unifyRowPair(env, eq.R, eq.Sub, eq.Directional, uf); err != nil {
			return err
		}
	}
	return nil
}

func unifyRowPair(env *Env, ra, rb *Row, directional bool, uf *symbol.UnionFind) error {
	ra = env.ResolveRow(ra)
	rb = env.ResolveRow(rb)

	// Rule 1: a bare row-variable on either side is substituted by the
	// other row, preferring to eliminate non-broadcast-protected variables
	// first so protected (broadcast) variables survive longer.
	if idA, isVar := ra.IsBareVar(); isVar {
		if idB, isVarB := rb.IsBareVar(); isVarB {
			if env.rowIsProtected(idA) && !env.rowIsProtected(idB) {
				env.substituteRow(idB, ra)
			} else {
				env.substituteRow(idA, rb)
			}
			return nil
		}
		if !env.rowIsProtected(idA) || directional {
			env.substituteRow(idA, rb)
			return nil
		}
		// Protected: leave open, apply constraint propagation only.
		return applyRowConstraint(ra, rb)
	}
	if idB, isVar := rb.IsBareVar(); isVar {
		if !env.rowIsProtected(idB) {
			env.substituteRow(idB, ra)
			return nil
		}
		return applyRowConstraint(rb, ra)
	}

	// Rule 2: Fixed must match axis count exactly.
	_, raFixed := ra.Terminator.(FixedTerm)
	_, rbFixed := rb.Terminator.(FixedTerm)
	if raFixed && rbFixed {
		if len(ra.Dims) != len(rb.Dims) {
			return newShapeError("Fixed row", fmt.Sprintf("axis count mismatch: %d vs %d", len(ra.Dims), len(rb.Dims)))
		}
		if err := unifyDimSlice(env, ra.Dims, rb.Dims, uf); err != nil {
			return err
		}
		if err := applyTotalElems(ra); err != nil {
			return err
		}
		return applyTotalElems(rb)
	}

	// Rule 2/3: align from the right over the common suffix; the shorter
	// side's missing leading axes are closed to dim=1 (broadcast closure).
	return unifyWithBroadcastAlignment(env, ra, rb, uf)
}

// applyRowConstraint narrows open's Constraint using closed's known dims,
// without resolving open's row-variable (used when the open side is
// protected and directional propagation alone applies).
func applyRowConstraint(open, closed *Row) error {
	if tc, ok := open.Constraint.(TotalElems); ok {
		n := 1
		for _, d := range closed.Dims {
			cd, ok := d.(ConcreteDim)
			if !ok {
				return nil // not enough information yet; defer
			}
			n *= cd.Size
		}
		if n != tc.N {
			return newShapeError("Total-elems constraint", fmt.Sprintf("expected %d elements, closed row has %d", tc.N, n))
		}
	}
	return nil
}

func unifyWithBroadcastAlignment(env *Env, ra, rb *Row, uf *symbol.UnionFind) error {
	la, lb := len(ra.Dims), len(rb.Dims)
	n := la
	if lb < n {
		n = lb
	}
	// Unify the common suffix dim-by-dim (rule 3).
	for i := 0; i < n; i++ {
		ai := ra.Dims[la-1-i]
		bi := rb.Dims[lb-1-i]
		resolved, err := UnifyDim(env, ai, bi, uf)
		if err != nil {
			return Wrap(err, "dim tail")
		}
		ra.Dims[la-1-i] = resolved
		rb.Dims[lb-1-i] = resolved
	}
	// Close missing leading axes on the shorter side to dim=1.
	if la > lb {
		pad := make([]Dim, la-lb)
		for i := range pad {
			pad[i] = NewConcreteDim(1)
		}
		rb.Dims = append(pad, rb.Dims...)
	} else if lb > la {
		pad := make([]Dim, lb-la)
		for i := range pad {
			pad[i] = NewConcreteDim(1)
		}
		ra.Dims = append(pad, ra.Dims...)
	}
	return applyTotalElems(ra)
}

func unifyDimSlice(env *Env, a, b []Dim, uf *symbol.UnionFind) error {
	for i := range a {
		resolved, err := UnifyDim(env, a[i], b[i], uf)
		if err != nil {
			return Wrap(err, fmt.Sprintf("dim %d", i))
		}
		a[i] = resolved
		b[i] = resolved
	}
	return nil
}

// UnifyDim implements unify_dim (§4.C rule 4): equal concrete sizes union
// their proj-ids; size-1 broadcasts against anything; a variable
// substitutes preferring to eliminate non-broadcast variables; label
// mismatch is a hard error.
func UnifyDim(env *Env, a, b Dim, uf *symbol.UnionFind) (Dim, error) {
	a = env.ResolveDim(a)
	b = env.ResolveDim(b)

	av, aIsVar := a.(DimVar)
	bv, bIsVar := b.(DimVar)

	switch {
	case aIsVar && bIsVar:
		if env.dimIsProtected(av.ID) && !env.dimIsProtected(bv.ID) {
			env.substituteDim(bv.ID, a)
			return a, nil
		}
		env.substituteDim(av.ID, b)
		return b, nil
	case aIsVar:
		if err := checkLabel(av.Label, labelOf(b)); err != nil {
			return nil, err
		}
		env.substituteDim(av.ID, b)
		return b, nil
	case bIsVar:
		if err := checkLabel(bv.Label, labelOf(a)); err != nil {
			return nil, err
		}
		env.substituteDim(bv.ID, a)
		return a, nil
	}

	ac, bc := a.(ConcreteDim), b.(ConcreteDim)
	if err := checkLabel(ac.Label, bc.Label); err != nil {
		return nil, err
	}
	switch {
	case ac.Size == bc.Size:
		rep := uf.Union(ac.Proj, bc.Proj)
		return ConcreteDim{Size: ac.Size, Proj: rep, Label: firstLabel(ac.Label, bc.Label)}, nil
	case ac.Size == 1:
		return bc, nil
	case bc.Size == 1:
		return ac, nil
	default:
		return nil, newShapeError("dim", fmt.Sprintf("size mismatch: %d vs %d", ac.Size, bc.Size))
	}
}

func labelOf(d Dim) string {
	switch v := d.(type) {
	case ConcreteDim:
		return v.Label
	case DimVar:
		return v.Label
	default:
		return ""
	}
}

func checkLabel(a, b string) error {
	if a != "" && b != "" && a != b {
		return newShapeError("dim label", fmt.Sprintf("label mismatch: %q vs %q", a, b))
	}
	return nil
}

func firstLabel(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// applyTotalElems implements §4.C rule 5: when the row has a concrete
// terminator and all but at most one dim is concrete, solve for the
// remaining variable (must divide evenly); if all concrete, check the
// product equals N.
func applyTotalElems(r *Row) error {
	tc, ok := r.Constraint.(TotalElems)
	if !ok {
		return nil
	}
	product := 1
	var openIdx = -1
	for i, d := range r.Dims {
		cd, isConcrete := d.(ConcreteDim)
		if !isConcrete {
			if openIdx >= 0 {
				return nil // more than one variable open; defer
			}
			openIdx = i
			continue
		}
		product *= cd.Size
	}
	if openIdx < 0 {
		if product != tc.N {
			return newShapeError("Total-elems", fmt.Sprintf("expected %d elements, row has %d", tc.N, product))
		}
		return nil
	}
	if product == 0 || tc.N%product != 0 {
		return newShapeError("Total-elems", fmt.Sprintf("%d does not divide evenly by the row's known product %d", tc.N, product))
	}
	r.Dims[openIdx] = NewConcreteDim(tc.N / product)
	return nil
}
