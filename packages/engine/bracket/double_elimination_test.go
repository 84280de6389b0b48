package bracket

import "testing"

func TestDoubleEliminationPowerOfTwoCounts(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16, 32} {
		bp, err := Generate(DoubleElimination, n)
		if err != nil {
			t.Fatalf("Generate(double_elim, %d) returned error: %v", n, err)
		}
		if err := bp.Validate(); err != nil {
			t.Fatalf("n=%d: invalid blueprint: %v", n, err)
		}

		// Winners bracket n-1, losers bracket n-2, grand final 1.
		if len(bp.Matches) != 2*n-2 {
			t.Errorf("n=%d: arena has %d matches, want %d", n, len(bp.Matches), 2*n-2)
		}

		reset := ResetPlan(bp)
		if reset.HomeWinnerOf != bp.GrandFinal || reset.AwayLoserOf != bp.GrandFinal {
			t.Errorf("n=%d: reset match not fed by the grand final: %+v", n, reset)
		}
		if len(bp.Matches)+1 != 2*n-1 {
			t.Errorf("n=%d: arena plus reset has %d matches, want %d", n, len(bp.Matches)+1, 2*n-1)
		}
	}
}

func TestDoubleEliminationGrandFinal(t *testing.T) {
	bp, err := Generate(DoubleElimination, 8)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if bp.GrandFinal != len(bp.Matches)-1 {
		t.Fatalf("grand final index = %d, want %d", bp.GrandFinal, len(bp.Matches)-1)
	}

	gf := bp.Matches[bp.GrandFinal]
	if gf.Section != SectionFinal {
		t.Errorf("grand final section = %q, want %q", gf.Section, SectionFinal)
	}
	if gf.HomeWinnerOf < 0 || bp.Matches[gf.HomeWinnerOf].Section != SectionWinners {
		t.Errorf("grand final home slot not fed by the winners bracket: %+v", gf)
	}
	if gf.AwayWinnerOf < 0 || bp.Matches[gf.AwayWinnerOf].Section != SectionLosers {
		t.Errorf("grand final away slot not fed by the losers bracket: %+v", gf)
	}
}

func TestDoubleEliminationTwoParticipants(t *testing.T) {
	bp, err := Generate(DoubleElimination, 2)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(bp.Matches) != 2 {
		t.Fatalf("arena has %d matches, want 2", len(bp.Matches))
	}

	// No losers bracket exists, so the grand final takes the winners
	// final's loser directly.
	gf := bp.Matches[bp.GrandFinal]
	if gf.HomeWinnerOf != 0 || gf.AwayLoserOf != 0 {
		t.Errorf("grand final not fed by the single winners match: %+v", gf)
	}
}

func TestDoubleEliminationEveryLoserDropsOnce(t *testing.T) {
	for _, n := range []int{3, 4, 6, 8, 13, 16} {
		bp, err := Generate(DoubleElimination, n)
		if err != nil {
			t.Fatalf("Generate(double_elim, %d) returned error: %v", n, err)
		}

		// Each winners-bracket match except the winners final must send
		// its loser somewhere in the losers bracket exactly once.
		for i, m := range bp.Matches {
			if m.Section != SectionWinners {
				continue
			}
			gf := bp.Matches[bp.GrandFinal]
			isWBFinal := gf.HomeWinnerOf == i
			if isWBFinal && gf.AwayLoserOf == i {
				// Two-participant shape, loser goes straight to the final.
				continue
			}
			if m.LoserTo == -1 {
				t.Errorf("n=%d: winners match %d has no loser destination", n, i)
			} else if bp.Matches[m.LoserTo].Section != SectionLosers {
				t.Errorf("n=%d: winners match %d drops into section %q", n, i, bp.Matches[m.LoserTo].Section)
			}
		}
	}
}
