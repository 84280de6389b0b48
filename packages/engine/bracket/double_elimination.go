package bracket

// generateDoubleElimination builds a winners bracket identical to
// single elimination, a losers bracket fed by winners-bracket losers
// with the standard drop-down interleave, and a grand final whose home
// slot belongs to the winners-bracket champion. The bracket-reset
// match is intentionally absent from the topology: it only exists when
// the losers-bracket finalist takes the first grand final, and is
// appended at runtime from ResetPlan.
func generateDoubleElimination(n int) *Blueprint {
	wb := generateSingleElimination(n)
	bp := &Blueprint{Format: DoubleElimination, Rounds: wb.Rounds}

	// Winners bracket, re-tagged. Indices carry over unchanged because
	// the winners matches are copied first.
	wbRounds := make([][]int, wb.Rounds+1)
	for i, m := range wb.Matches {
		m.Section = SectionWinners
		bp.Matches = append(bp.Matches, m)
		wbRounds[m.Round] = append(wbRounds[m.Round], i)
	}

	// Losers bracket. Round 1 pairs the losers of winners round 1;
	// after that each winners round drops its losers in, reversed to
	// push rematches as late as possible, followed by a consolidation
	// round whenever more than one survivor remains.
	lbRound := 0
	var survivors []int

	firstRound := wbRounds[1]
	if len(firstRound) >= 2 {
		lbRound++
		for i := 0; i < len(firstRound); i += 2 {
			m := newPlan(lbRound, i/2+1, SectionLosers)
			m.HomeLoserOf = firstRound[i]
			m.AwayLoserOf = firstRound[i+1]
			bp.Matches = append(bp.Matches, m)
			survivors = append(survivors, len(bp.Matches)-1)
		}
	}

	for r := 2; r <= wb.Rounds; r++ {
		drops := make([]int, len(wbRounds[r]))
		for i, idx := range wbRounds[r] {
			drops[len(drops)-1-i] = idx
		}

		if len(survivors) == 0 {
			// Only possible for a two-participant bracket, which has a
			// single winners round; handled below by the grand final.
			break
		}

		lbRound++
		next := make([]int, 0, len(drops))
		for i := range drops {
			m := newPlan(lbRound, i+1, SectionLosers)
			m.HomeWinnerOf = survivors[i]
			m.AwayLoserOf = drops[i]
			bp.Matches = append(bp.Matches, m)
			next = append(next, len(bp.Matches)-1)
		}
		survivors = next

		if len(survivors) > 1 {
			lbRound++
			next = make([]int, 0, len(survivors)/2)
			for i := 0; i < len(survivors); i += 2 {
				m := newPlan(lbRound, i/2+1, SectionLosers)
				m.HomeWinnerOf = survivors[i]
				m.AwayWinnerOf = survivors[i+1]
				bp.Matches = append(bp.Matches, m)
				next = append(next, len(bp.Matches)-1)
			}
			survivors = next
		}
	}

	// Grand final: winners champion at home, losers survivor away. A
	// two-participant bracket has no losers matches, so the away slot
	// is fed directly by the winners final's loser.
	wbFinal := wbRounds[wb.Rounds][0]
	gf := newPlan(wb.Rounds+1, 1, SectionFinal)
	gf.HomeWinnerOf = wbFinal
	if len(survivors) == 1 {
		gf.AwayWinnerOf = survivors[0]
	} else {
		gf.AwayLoserOf = wbFinal
	}
	bp.Matches = append(bp.Matches, gf)
	bp.GrandFinal = len(bp.Matches) - 1
	bp.Rounds = wb.Rounds + 1

	bp.link()
	return bp
}

// ResetPlan returns the bracket-reset match appended when the
// losers-bracket finalist wins the grand final once: the same two
// competitors meet again, because the winners-bracket champion has to
// be beaten twice. Both slots are fed by the grand final itself.
func ResetPlan(bp *Blueprint) MatchPlan {
	m := newPlan(bp.Matches[bp.GrandFinal].Round+1, 1, SectionFinal)
	m.HomeWinnerOf = bp.GrandFinal
	m.AwayLoserOf = bp.GrandFinal
	return m
}
