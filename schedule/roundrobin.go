package schedule

import "github.com/tensorforge/tensorforge/symbol"

// RoundRobin exhausts the Cartesian product of bs's ranged bindings in
// odometer order, dispatching each combination to device (pos % n) in turn,
// and calls sync after every full round of n dispatches and once more for a
// trailing partial round (§8 invariant 8: "round-robin exhausts the
// Cartesian product of bound ranges, dispatching position pos to device
// pos mod n, and synchronizes after every n dispatches (or fewer, for a
// final partial round)"). Unranged bindings (symbol.NoRange) are left
// untouched — they are not part of the product being swept.
//
// step is called with the flat position and the destination device before
// the position's combination of cell values is considered "current" on the
// caller's side; callers read the updated bindings from within step.
func RoundRobin(bs symbol.Bindings, n int, step func(pos, device int) error, sync func(count int) error) error {
	var ranged []*symbol.Binding
	for _, b := range bs {
		if b.Range.Valid {
			ranged = append(ranged, b)
		}
	}

	total := 1
	for _, b := range ranged {
		total *= b.Range.N
	}
	if total == 0 {
		return nil
	}

	digits := make([]int, len(ranged))
	inRound := 0
	for pos := 0; pos < total; pos++ {
		for i, b := range ranged {
			if err := b.Set(digits[i]); err != nil {
				return err
			}
		}

		device := pos % n
		if err := step(pos, device); err != nil {
			return err
		}
		inRound++

		if inRound == n || pos == total-1 {
			if err := sync(inRound); err != nil {
				return err
			}
			inRound = 0
		}

		for i := len(ranged) - 1; i >= 0; i-- {
			digits[i]++
			if digits[i] < ranged[i].Range.N {
				break
			}
			digits[i] = 0
		}
	}
	return nil
}
