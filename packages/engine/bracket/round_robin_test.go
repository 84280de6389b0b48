package bracket

import "testing"

func TestRoundRobinProperties(t *testing.T) {
	for n := 2; n <= 12; n++ {
		bp, err := Generate(RoundRobin, n)
		if err != nil {
			t.Fatalf("Generate(round_robin, %d) returned error: %v", n, err)
		}
		if err := bp.Validate(); err != nil {
			t.Fatalf("n=%d: invalid blueprint: %v", n, err)
		}

		if want := n * (n - 1) / 2; len(bp.Matches) != want {
			t.Errorf("n=%d: schedule has %d matches, want %d", n, len(bp.Matches), want)
		}

		wantRounds := n - 1
		if n%2 == 1 {
			wantRounds = n
		}
		if bp.Rounds != wantRounds {
			t.Errorf("n=%d: rounds = %d, want %d", n, bp.Rounds, wantRounds)
		}

		appearances := make([]int, n)
		pairs := map[[2]int]int{}
		perRound := map[int]map[int]bool{}
		for _, m := range bp.Matches {
			appearances[m.HomeSeed]++
			appearances[m.AwaySeed]++

			key := [2]int{m.HomeSeed, m.AwaySeed}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			pairs[key]++

			if perRound[m.Round] == nil {
				perRound[m.Round] = map[int]bool{}
			}
			for _, seed := range []int{m.HomeSeed, m.AwaySeed} {
				if perRound[m.Round][seed] {
					t.Errorf("n=%d: seed %d plays twice in round %d", n, seed, m.Round)
				}
				perRound[m.Round][seed] = true
			}
		}

		for seed, count := range appearances {
			if count != n-1 {
				t.Errorf("n=%d: seed %d plays %d matches, want %d", n, seed, count, n-1)
			}
		}
		for pair, count := range pairs {
			if count != 1 {
				t.Errorf("n=%d: pair %v scheduled %d times", n, pair, count)
			}
		}
	}
}
