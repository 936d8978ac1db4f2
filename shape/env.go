package shape

import "sync"

// Env is the shape-inference environment (§9 design notes: one of the few
// owners of process-wide mutable state). It holds the dim- and row-variable
// substitution maps and the "protected" broadcast-variable sets that keep
// broadcast row/dim-variables open until Finish closes them (§4.C rule 1,
// Completion). Package session does not hold an Env; each caller creates
// its own with NewEnv.
type Env struct {
	mu sync.Mutex

	nextDimVar DimVarID
	nextRowVar RowVarID

	dimSubst map[DimVarID]Dim
	rowSubst map[RowVarID]*Row

	protectedDim map[DimVarID]bool
	protectedRow map[RowVarID]bool
}

// NewEnv creates an empty shape-inference environment.
func NewEnv() *Env {
	return &Env{
		dimSubst:     make(map[DimVarID]Dim),
		rowSubst:     make(map[RowVarID]*Row),
		protectedDim: make(map[DimVarID]bool),
		protectedRow: make(map[RowVarID]bool),
	}
}

// NewDimVar mints a fresh dim-variable. protect marks it as a broadcast
// variable that should survive elimination preference until Finish.
func (e *Env) NewDimVar(label string, protect bool) DimVar {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextDimVar++
	id := e.nextDimVar
	if protect {
		e.protectedDim[id] = true
	}
	return DimVar{ID: id, Label: label}
}

// NewRowVar mints a fresh row-variable row (an empty-dims row terminated by
// the variable).
func (e *Env) NewRowVar(protect bool) *Row {
	e.mu.Lock()
	e.nextRowVar++
	id := e.nextRowVar
	if protect {
		e.protectedRow[id] = true
	}
	e.mu.Unlock()
	return &Row{Terminator: RowVarTerm{ID: id}, Constraint: Unconstrained{}}
}

// ResolveDim follows the substitution chain for a dim-variable until it
// reaches a concrete dim or an unsubstituted variable.
func (e *Env) ResolveDim(d Dim) Dim {
	for {
		v, ok := d.(DimVar)
		if !ok {
			return d
		}
		next, ok := e.dimSubst[v.ID]
		if !ok {
			return d
		}
		d = next
	}
}

// ResolveRow follows the substitution chain for a bare row-variable.
func (e *Env) ResolveRow(r *Row) *Row {
	for {
		id, isVar := r.IsBareVar()
		if !isVar {
			return r
		}
		next, ok := e.rowSubst[id]
		if !ok {
			return r
		}
		r = next
	}
}

func (e *Env) substituteDim(id DimVarID, to Dim) { e.dimSubst[id] = to }
func (e *Env) substituteRow(id RowVarID, to *Row) { e.rowSubst[id] = to }

func (e *Env) dimIsProtected(id DimVarID) bool { return e.protectedDim[id] }
func (e *Env) rowIsProtected(id RowVarID) bool { return e.protectedRow[id] }
