// Package trace implements the virtualization, inlining, and algebraic
// simplification passes (component F): visit analysis over lowered LL IR,
// candidate collection for per-scalar inlining, substitution-based
// inlining with alpha-renaming, cleanup, and a fixpoint algebraic
// simplifier.
package trace

// Settings gates which virtualization/simplification behaviors apply
// (§4.F "Settings (enumerated)").
type Settings struct {
	// EnableDeviceOnly is not read by any pass: setting it does not keep
	// device-only tensors off the host.
	EnableDeviceOnly bool
	// MaxVisits is the visit count above which a candidate virtual tensor
	// is demoted to materialized. Default 3.
	MaxVisits int
	// InlineConstants replaces a Get of a scalar-proven tensor with its
	// literal.
	InlineConstants bool
	// AlwaysInlineDynamicIndexing inlines even when the lhs has
	// dynamic-provider indices.
	AlwaysInlineDynamicIndexing bool
	// SequentialMinibatch, when false, makes a Sample-num-dependent
	// expression non-replicable (blocks per-device replication).
	SequentialMinibatch bool
	// OptimizeIntegerPow unrolls ToPowOf with a scalar integer exponent
	// into a product chain during simplification (pass 5).
	OptimizeIntegerPow bool
}

// DefaultSettings returns the settings §4.F names as defaults.
func DefaultSettings() Settings {
	return Settings{MaxVisits: 3}
}
