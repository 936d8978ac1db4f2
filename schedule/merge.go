package schedule

// MergePair is one step of a pairwise-halving reduction: tensor data on
// device From is merged into device To's copy.
type MergePair struct {
	From, To int
}

// MergeSchedule builds the pairwise-halving merge tree for k participating
// devices (§4.H "pair (i, i+half) reduces into i, halve the active count,
// recurse until one device remains"). Device 0 ends up holding the fully
// merged result.
//
// When the active count is odd, the unpaired device at the top of the
// current range (index active-1) has no partner to halve away; it is
// folded into the last pair of the round instead of being silently
// dropped, so every device's contribution survives to the root. The spec
// does not cover the odd case explicitly — this is the extension recorded
// in the design ledger.
func MergeSchedule(k int) []MergePair {
	if k <= 1 {
		return nil
	}
	var pairs []MergePair
	active := k
	for active > 1 {
		half := active / 2
		odd := active%2 == 1
		for i := 0; i < half; i++ {
			pairs = append(pairs, MergePair{From: i + half, To: i})
		}
		if odd {
			// Fold the leftover device (active-1) into the last pair's
			// destination (half-1) so its contribution still reaches the
			// round's winners before the next halving.
			last := half - 1
			if last < 0 {
				last = 0
			}
			pairs = append(pairs, MergePair{From: active - 1, To: last})
		}
		active = half
	}
	return pairs
}
