package bracket

// seedOrder returns the classic bracket ordering of seed numbers
// (1-based) for a power-of-two bracket: 1 meets size, 2 meets size-1,
// and so on, so top seeds cannot meet before the late rounds. For
// size 8 the order is [1 8 4 5 2 7 3 6].
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		mirror := len(order)*2 + 1
		for _, s := range order {
			next = append(next, s, mirror-s)
		}
		order = next
	}
	return order
}

// generateSingleElimination pads n participants to the next power of
// two. Padding seeds become byes; because the pairing always matches a
// top-half seed against a bottom-half seed, two byes can never meet in
// round 1. Byes stay in the arena as pre-completed matches so every
// slot transition goes through a Match.
func generateSingleElimination(n int) *Blueprint {
	rounds := ceilLog2(n)
	size := 1 << rounds
	order := seedOrder(size)

	bp := &Blueprint{Format: SingleElimination, Rounds: rounds, GrandFinal: -1}

	// Round 1 from the seed ordering. The first seed of each pair is
	// always the smaller one, so the real participant sits in the home
	// slot of a bye match.
	prev := make([]int, 0, size/2)
	for i := 0; i < size; i += 2 {
		m := newPlan(1, i/2+1, SectionMain)
		m.HomeSeed = order[i] - 1
		if order[i+1] <= n {
			m.AwaySeed = order[i+1] - 1
		} else {
			m.Bye = true
		}
		bp.Matches = append(bp.Matches, m)
		prev = append(prev, len(bp.Matches)-1)
	}

	for r := 2; r <= rounds; r++ {
		next := make([]int, 0, len(prev)/2)
		for i := 0; i < len(prev); i += 2 {
			m := newPlan(r, i/2+1, SectionMain)
			m.HomeWinnerOf = prev[i]
			m.AwayWinnerOf = prev[i+1]
			bp.Matches = append(bp.Matches, m)
			next = append(next, len(bp.Matches)-1)
		}
		prev = next
	}

	bp.link()
	return bp
}
