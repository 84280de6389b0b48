// Package payout computes what a finished tournament owes each
// competitor and the deterministic keys that make delivering it safe
// to retry.
package payout

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Namespace for idempotency keys. Fixed forever: changing it would
// re-deliver every historical settlement.
var keyNamespace = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

// Settlement categories; mirror the settlement record's Category.
const (
	CategoryPrize         = "prize"
	CategoryParticipation = "participation"
	CategoryRanking       = "ranking"
)

// ParticipationCredit is the flat amount every finisher is credited,
// independent of placement and the prize table.
const ParticipationCredit int64 = 50

// IdempotencyKey derives the stable key for one settlement line. The
// same (tournament, competitor, category) always yields the same key,
// so neither a crashed coordinator nor a double-triggered settlement
// can produce a second delivery.
func IdempotencyKey(tournamentID uint, competitorRef, category string) string {
	name := fmt.Sprintf("%d|%s|%s", tournamentID, competitorRef, category)
	return uuid.NewSHA1(keyNamespace, []byte(name)).String()
}

// RankingDelta converts a final placement into a rating delta with the
// usual K=32 curve: first place earns the full factor, the expected
// score falls with placement, and finishing in the bottom half costs
// points.
func RankingDelta(placement, fieldSize int) int {
	if fieldSize < 2 || placement < 1 || placement > fieldSize {
		return 0
	}
	const k = 32.0

	// Expected score of an average entrant against this placement,
	// mapped onto the logistic curve the head-to-head rating uses.
	normalized := float64(placement-1) / float64(fieldSize-1)
	actual := 1.0 - normalized
	expected := 1.0 / (1.0 + math.Pow(10, (normalized-0.5)*2))
	return int(math.Round(k * (actual - expected*0.5)))
}

// Line is one owed delivery.
type Line struct {
	CompetitorRef  string
	RegistrationID uint
	Category       string
	Placement      int
	Amount         int64 // prize and participation lines only
	Delta          int   // ranking lines only
	IdempotencyKey string
}

// Placement pairs a competitor with their final standing.
type Placement struct {
	CompetitorRef  string
	RegistrationID uint
	Placement      int
}

// Prize is one row of the configured prize table.
type Prize struct {
	Placement int
	Amount    int64
}

// BuildPlan expands placements into the full set of settlement lines:
// a ranking delta and a participation credit for everyone, plus a
// prize for each placement the table covers. Lines are ordered by
// placement so delivery is stable.
func BuildPlan(tournamentID uint, placements []Placement, prizes []Prize) []Line {
	prizeByPlacement := make(map[int]int64, len(prizes))
	for _, p := range prizes {
		prizeByPlacement[p.Placement] = p.Amount
	}

	lines := make([]Line, 0, len(placements)*3)
	for _, p := range placements {
		lines = append(lines, Line{
			CompetitorRef:  p.CompetitorRef,
			RegistrationID: p.RegistrationID,
			Category:       CategoryRanking,
			Placement:      p.Placement,
			Delta:          RankingDelta(p.Placement, len(placements)),
			IdempotencyKey: IdempotencyKey(tournamentID, p.CompetitorRef, CategoryRanking),
		})
		lines = append(lines, Line{
			CompetitorRef:  p.CompetitorRef,
			RegistrationID: p.RegistrationID,
			Category:       CategoryParticipation,
			Placement:      p.Placement,
			Amount:         ParticipationCredit,
			IdempotencyKey: IdempotencyKey(tournamentID, p.CompetitorRef, CategoryParticipation),
		})
		if amount, ok := prizeByPlacement[p.Placement]; ok {
			lines = append(lines, Line{
				CompetitorRef:  p.CompetitorRef,
				RegistrationID: p.RegistrationID,
				Category:       CategoryPrize,
				Placement:      p.Placement,
				Amount:         amount,
				IdempotencyKey: IdempotencyKey(tournamentID, p.CompetitorRef, CategoryPrize),
			})
		}
	}
	return lines
}
