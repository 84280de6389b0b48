package bracket

import "testing"

func TestSwissFirstRoundEvenField(t *testing.T) {
	bp, err := Generate(Swiss, 8)
	if err != nil {
		t.Fatalf("Generate(swiss, 8) returned error: %v", err)
	}
	if err := bp.Validate(); err != nil {
		t.Fatalf("invalid blueprint: %v", err)
	}
	if len(bp.Matches) != 4 {
		t.Fatalf("first round has %d matches, want 4", len(bp.Matches))
	}
	// Top half against bottom half: 1v5, 2v6, 3v7, 4v8.
	for i, m := range bp.Matches {
		if m.HomeSeed != i || m.AwaySeed != i+4 {
			t.Errorf("match %d pairs %d vs %d, want %d vs %d", i, m.HomeSeed, m.AwaySeed, i, i+4)
		}
	}
	if bp.Rounds != 3 {
		t.Errorf("rounds = %d, want 3", bp.Rounds)
	}
}

func TestSwissFirstRoundOddField(t *testing.T) {
	bp, err := Generate(Swiss, 5)
	if err != nil {
		t.Fatalf("Generate(swiss, 5) returned error: %v", err)
	}
	if len(bp.Matches) != 3 {
		t.Fatalf("first round has %d matches, want 3", len(bp.Matches))
	}
	var byes int
	for _, m := range bp.Matches {
		if m.Bye {
			byes++
			if m.HomeSeed != 2 {
				t.Errorf("bye went to seed %d, want 2", m.HomeSeed)
			}
		}
	}
	if byes != 1 {
		t.Errorf("first round has %d byes, want 1", byes)
	}
}

func TestNextRoundPairsByScore(t *testing.T) {
	// After round 1 of an 8-player event: seeds 0-3 won.
	standings := []Standing{
		{Seed: 0, Wins: 1, Opponents: []int{4}},
		{Seed: 1, Wins: 1, Opponents: []int{5}},
		{Seed: 2, Wins: 1, Opponents: []int{6}},
		{Seed: 3, Wins: 1, Opponents: []int{7}},
		{Seed: 4, Losses: 1, Opponents: []int{0}},
		{Seed: 5, Losses: 1, Opponents: []int{1}},
		{Seed: 6, Losses: 1, Opponents: []int{2}},
		{Seed: 7, Losses: 1, Opponents: []int{3}},
	}

	plans, err := NextRound(2, standings)
	if err != nil {
		t.Fatalf("NextRound returned error: %v", err)
	}
	if len(plans) != 4 {
		t.Fatalf("round 2 has %d matches, want 4", len(plans))
	}

	byWins := map[int]int{}
	for _, s := range standings {
		byWins[s.Seed] = s.Wins
	}
	for _, m := range plans {
		if byWins[m.HomeSeed] != byWins[m.AwaySeed] {
			t.Errorf("match pairs across score groups: %d (%d wins) vs %d (%d wins)",
				m.HomeSeed, byWins[m.HomeSeed], m.AwaySeed, byWins[m.AwaySeed])
		}
	}
}

func TestNextRoundAvoidsRepeats(t *testing.T) {
	standings := []Standing{
		{Seed: 0, Wins: 1, Opponents: []int{2}},
		{Seed: 1, Wins: 1, Opponents: []int{3}},
		{Seed: 2, Losses: 1, Opponents: []int{0}},
		{Seed: 3, Losses: 1, Opponents: []int{1}},
	}

	plans, err := NextRound(2, standings)
	if err != nil {
		t.Fatalf("NextRound returned error: %v", err)
	}
	for _, m := range plans {
		for _, s := range standings {
			if s.Seed == m.HomeSeed && s.played(m.AwaySeed) {
				t.Errorf("repeat pairing %d vs %d", m.HomeSeed, m.AwaySeed)
			}
		}
	}
}

func TestNextRoundFallsBackWhenRepeatsUnavoidable(t *testing.T) {
	// Two participants who already met must meet again.
	standings := []Standing{
		{Seed: 0, Wins: 1, Opponents: []int{1}},
		{Seed: 1, Losses: 1, Opponents: []int{0}},
	}
	plans, err := NextRound(2, standings)
	if err != nil {
		t.Fatalf("NextRound returned error: %v", err)
	}
	if len(plans) != 1 || plans[0].HomeSeed != 0 || plans[0].AwaySeed != 1 {
		t.Fatalf("unexpected fallback pairing: %+v", plans)
	}
}

func TestNextRoundByeRotation(t *testing.T) {
	// Seed 4 had the round-1 bye, so the next bye must go to someone
	// else, specifically the lowest-ranked without one.
	standings := []Standing{
		{Seed: 0, Wins: 1, Opponents: []int{2}},
		{Seed: 1, Wins: 1, Opponents: []int{3}},
		{Seed: 4, Wins: 1, HadBye: true},
		{Seed: 2, Losses: 1, Opponents: []int{0}},
		{Seed: 3, Losses: 1, Opponents: []int{1}},
	}

	plans, err := NextRound(2, standings)
	if err != nil {
		t.Fatalf("NextRound returned error: %v", err)
	}
	var byeSeed = -1
	seen := map[int]bool{}
	for _, m := range plans {
		if m.Bye {
			if byeSeed != -1 {
				t.Fatalf("multiple byes in one round")
			}
			byeSeed = m.HomeSeed
			seen[m.HomeSeed] = true
			continue
		}
		for _, seed := range []int{m.HomeSeed, m.AwaySeed} {
			if seen[seed] {
				t.Errorf("seed %d paired twice", seed)
			}
			seen[seed] = true
		}
	}
	if byeSeed == 4 {
		t.Errorf("seed 4 received a second bye")
	}
	if byeSeed == -1 {
		t.Errorf("odd field produced no bye")
	}
	if len(seen) != 5 {
		t.Errorf("%d seeds covered, want 5", len(seen))
	}
}

func TestNextRoundRejectsBadInput(t *testing.T) {
	if _, err := NextRound(1, []Standing{{Seed: 0}, {Seed: 1}}); err == nil {
		t.Errorf("NextRound accepted round 1")
	}
	if _, err := NextRound(2, []Standing{{Seed: 0}}); err == nil {
		t.Errorf("NextRound accepted a single participant")
	}
}

func TestAdvancingSet(t *testing.T) {
	standings := []Standing{
		{Seed: 3, Wins: 3},
		{Seed: 0, Wins: 2, OppWins: 5},
		{Seed: 1, Wins: 2, OppWins: 3},
		{Seed: 2, Wins: 1},
	}

	seeds, err := AdvancingSet(standings, 2)
	if err != nil {
		t.Fatalf("AdvancingSet returned error: %v", err)
	}
	if len(seeds) != 2 || seeds[0] != 3 || seeds[1] != 0 {
		t.Errorf("advancing seeds = %v, want [3 0]", seeds)
	}

	if _, err := AdvancingSet(standings, 1); err == nil {
		t.Errorf("AdvancingSet accepted take=1")
	}
	if _, err := AdvancingSet(standings, 5); err == nil {
		t.Errorf("AdvancingSet accepted take beyond the field")
	}
}
