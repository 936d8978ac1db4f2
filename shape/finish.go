package shape

// FinishInference closes every remaining open row- and dim-variable in s:
// a bare row-variable not otherwise resolved closes to an empty,
// Broadcastable row (zero extra axes); a dim-variable not otherwise
// resolved closes to a concrete dim of size one (§4.C Completion — the
// point at which "not enough information yet" stops being acceptable).
// It mutates env's substitution maps and returns the first Shape-error
// ToDimsAll would now report, if resolveFully is true and something is
// still wrong for a reason closure cannot fix (e.g. a dim whose size is not
// a positive integer).
func FinishInference(env *Env, s *Shape, resolveFully bool) error {
	for _, k := range Kinds {
		row := env.ResolveRow(s.Rows[k])
		if id, isVar := row.IsBareVar(); isVar {
			closed := &Row{Terminator: BroadcastableTerm{}, Constraint: Unconstrained{}}
			env.substituteRow(id, closed)
			row = closed
		} else if _, stillOpen := row.Terminator.(RowVarTerm); stillOpen {
			// An ellipsis row with explicit trailing axes: the row-variable
			// was never registered for whole-row substitution (only bare
			// rows are), so close it here directly.
			row.Terminator = BroadcastableTerm{}
		}
		for i, d := range row.Dims {
			resolved := env.ResolveDim(d)
			if v, isVar := resolved.(DimVar); isVar {
				closed := NewConcreteDim(1)
				closed.Label = v.Label
				env.substituteDim(v.ID, closed)
				resolved = closed
			}
			row.Dims[i] = resolved
		}
		s.Rows[k] = row
	}
	if !resolveFully {
		return nil
	}
	if _, err := s.ToDimsAll(); err != nil {
		return err
	}
	return nil
}
