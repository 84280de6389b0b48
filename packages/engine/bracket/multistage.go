package bracket

import "engine/errs"

// AdvancingSet selects the participants carried from a finished stage
// into the next one, best first, using the same ordering as Swiss
// standings (wins, opponents' win sum, seed). Multi-stage tournaments
// are composed from independent Blueprint instances plus this
// function; the engine never hard-codes a stage count.
func AdvancingSet(standings []Standing, take int) ([]int, error) {
	if take < 2 {
		return nil, errs.Validationf("advancing set must carry at least 2 participants, got %d", take)
	}
	if take > len(standings) {
		return nil, errs.Validationf("cannot advance %d participants from a field of %d", take, len(standings))
	}
	sorted := sortStandings(standings)
	seeds := make([]int, take)
	for i := 0; i < take; i++ {
		seeds[i] = sorted[i].Seed
	}
	return seeds, nil
}
