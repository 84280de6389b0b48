package bracket

// generateRoundRobin builds the full C(n,2) schedule with the circle
// method: one participant stays fixed while the rest rotate, which
// yields rounds where nobody plays twice. An odd field gets a ghost
// participant; whoever draws the ghost sits that round out.
func generateRoundRobin(n int) *Blueprint {
	ids := make([]int, 0, n+1)
	for i := 0; i < n; i++ {
		ids = append(ids, i)
	}
	if n%2 == 1 {
		ids = append(ids, -1)
	}
	size := len(ids)
	rounds := size - 1

	bp := &Blueprint{Format: RoundRobin, Rounds: rounds, GrandFinal: -1}

	for r := 1; r <= rounds; r++ {
		position := 0
		for i := 0; i < size/2; i++ {
			home, away := ids[i], ids[size-1-i]
			if home == -1 || away == -1 {
				continue
			}
			position++
			m := newPlan(r, position, SectionMain)
			m.HomeSeed = home
			m.AwaySeed = away
			bp.Matches = append(bp.Matches, m)
		}
		// Rotate everything but the first participant.
		rotated := make([]int, 0, size)
		rotated = append(rotated, ids[0], ids[size-1])
		rotated = append(rotated, ids[1:size-1]...)
		ids = rotated
	}

	return bp
}
