package game

import "sort"

type Contribution struct {
	PlayerID string
	Amount   int64
	Live     bool
}

type Pot struct {
	Amount   int64
	Eligible []string
}

// ComputePots splits contributions into a main pot and side pots by the all-in
// levels of live players. Dead money from departed players goes to the main
// pot. A live player's excess that nobody matched forms a pot only they are
// eligible for, which returns the uncalled chips.
func ComputePots(contribs []Contribution, dead int64) []Pot {
	levels := make([]int64, 0, len(contribs))
	seen := map[int64]bool{}
	for _, c := range contribs {
		if c.Live && c.Amount > 0 && !seen[c.Amount] {
			seen[c.Amount] = true
			levels = append(levels, c.Amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels))
	prev := int64(0)
	for _, level := range levels {
		var pot Pot
		for _, c := range contribs {
			pot.Amount += min64(c.Amount, level) - min64(c.Amount, prev)
			if c.Live && c.Amount >= level {
				pot.Eligible = append(pot.Eligible, c.PlayerID)
			}
		}
		pots = append(pots, pot)
		prev = level
	}

	var leftover int64
	for _, c := range contribs {
		if c.Amount > prev {
			leftover += c.Amount - prev
		}
	}
	if len(pots) == 0 {
		if leftover+dead == 0 {
			return nil
		}
		return []Pot{{Amount: leftover + dead}}
	}
	pots[0].Amount += dead
	pots[len(pots)-1].Amount += leftover
	return pots
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
