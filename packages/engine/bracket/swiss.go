package bracket

import (
	"sort"

	"engine/errs"
)

// Swiss is generated incrementally: only the first round exists up
// front, every later round is paired from live standings via
// NextRound. This asymmetry with the other formats is deliberate and
// must not be hidden behind a uniform "generate everything" call.

// generateSwissFirstRound pairs the top half against the bottom half
// of the seeded list (1 vs n/2+1, 2 vs n/2+2, ...). With an odd field
// the last seed receives the round-1 bye.
func generateSwissFirstRound(n int) *Blueprint {
	bp := &Blueprint{Format: Swiss, Rounds: ceilLog2(n), GrandFinal: -1}
	half := (n + 1) / 2
	for i := 0; i < n/2; i++ {
		m := newPlan(1, i+1, SectionMain)
		m.HomeSeed = i
		m.AwaySeed = half + i
		bp.Matches = append(bp.Matches, m)
	}
	if n%2 == 1 {
		m := newPlan(1, n/2+1, SectionMain)
		m.HomeSeed = half - 1
		m.Bye = true
		bp.Matches = append(bp.Matches, m)
	}
	return bp
}

// Standing is one participant's running score, keyed by seed index.
// OppWins is the opponents' win sum, used as the tiebreak.
type Standing struct {
	Seed      int
	Wins      int
	Losses    int
	OppWins   int
	Opponents []int
	HadBye    bool
}

func (s Standing) played(seed int) bool {
	for _, opp := range s.Opponents {
		if opp == seed {
			return true
		}
	}
	return false
}

// sortStandings orders best first: wins, then opponents' win sum,
// then original seed.
func sortStandings(standings []Standing) []Standing {
	sorted := make([]Standing, len(standings))
	copy(sorted, standings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Wins != sorted[j].Wins {
			return sorted[i].Wins > sorted[j].Wins
		}
		if sorted[i].OppWins != sorted[j].OppWins {
			return sorted[i].OppWins > sorted[j].OppWins
		}
		return sorted[i].Seed < sorted[j].Seed
	})
	return sorted
}

// NextRound pairs a new Swiss round from standings: closest scores
// meet, repeat pairings are avoided when any repeat-free pairing
// exists, and an odd field gives the bye to the lowest-ranked
// participant that has not had one yet.
func NextRound(round int, standings []Standing) ([]MatchPlan, error) {
	if round < 2 {
		return nil, errs.Validationf("NextRound pairs round 2 onwards, got round %d", round)
	}
	if len(standings) < 2 {
		return nil, errs.Validationf("cannot pair a swiss round for %d participants", len(standings))
	}

	pool := sortStandings(standings)
	var plans []MatchPlan

	if len(pool)%2 == 1 {
		byeIdx := len(pool) - 1
		for i := len(pool) - 1; i >= 0; i-- {
			if !pool[i].HadBye {
				byeIdx = i
				break
			}
		}
		bye := pool[byeIdx]
		pool = append(pool[:byeIdx], pool[byeIdx+1:]...)

		m := newPlan(round, 0, SectionMain)
		m.HomeSeed = bye.Seed
		m.Bye = true
		plans = append(plans, m)
	}

	pairs, ok := pairPool(pool)
	if !ok {
		// Every repeat-free pairing is exhausted; fall back to pairing
		// neighbors even if they met before.
		pairs = pairs[:0]
		for i := 0; i < len(pool); i += 2 {
			pairs = append(pairs, [2]Standing{pool[i], pool[i+1]})
		}
	}

	for i, pair := range pairs {
		m := newPlan(round, i+1, SectionMain)
		m.HomeSeed = pair[0].Seed
		m.AwaySeed = pair[1].Seed
		plans = append(plans, m)
	}

	// Bye plans were prepended with position 0; renumber for stable
	// ordering.
	for i := range plans {
		plans[i].Position = i + 1
	}
	return plans, nil
}

// pairPool recursively pairs the strongest unpaired participant with
// the nearest opponent it has not played, backtracking when a choice
// leaves the remainder unpairable.
func pairPool(pool []Standing) ([][2]Standing, bool) {
	if len(pool) == 0 {
		return nil, true
	}
	first := pool[0]
	for i := 1; i < len(pool); i++ {
		if first.played(pool[i].Seed) {
			continue
		}
		rest := make([]Standing, 0, len(pool)-2)
		rest = append(rest, pool[1:i]...)
		rest = append(rest, pool[i+1:]...)
		if tail, ok := pairPool(rest); ok {
			return append([][2]Standing{{first, pool[i]}}, tail...), true
		}
	}
	return nil, false
}
