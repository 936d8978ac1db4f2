// Package llir implements the low-level loop-nest IR (component E): the
// LLCode/LLExpr node variants and the to-low-level lowering that turns an
// HL assignment block into nested for-loops over its derived projections.
package llir

import "sync/atomic"

// ScopeID names a textually introduced local result. Unlike TensorRefID,
// it is not globally unique after inlining substitutes the same saved
// write block at multiple call sites (§3 "Scope id").
type ScopeID int64

var nextScopeID atomic.Int64

// NewScopeID mints a fresh scope id.
func NewScopeID() ScopeID {
	return ScopeID(nextScopeID.Add(1))
}
