// Package bracket generates match topologies as pure functions. A
// generated Blueprint is an arena of MatchPlan nodes referencing each
// other by index (feeder and destination links), which the services
// layer persists once at tournament start. Seeding order is the
// caller's responsibility: participants are identified here only by
// their position in the seeded list.
package bracket

import (
	"fmt"

	"engine/errs"
)

type Format string

const (
	SingleElimination Format = "single_elim"
	DoubleElimination Format = "double_elim"
	RoundRobin        Format = "round_robin"
	Swiss             Format = "swiss"
)

// ParseFormat validates a format string coming from the API.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case SingleElimination, DoubleElimination, RoundRobin, Swiss:
		return Format(s), nil
	}
	return "", errs.Validationf("unknown bracket format %q", s)
}

type Section string

const (
	SectionMain    Section = ""
	SectionWinners Section = "winners"
	SectionLosers  Section = "losers"
	SectionFinal   Section = "grand_final"
)

// Slot indices within a match.
const (
	SlotHome = 0
	SlotAway = 1
)

// MatchPlan is one node in the generated arena. Each slot is fed by
// exactly one of: a seed (participant index), a feeder match's winner,
// or a feeder match's loser. Unused references are -1. Bye marks a
// match whose away slot is structurally empty; such matches are
// persisted pre-completed so bracket traversal stays uniform.
type MatchPlan struct {
	Round    int
	Position int
	Section  Section

	HomeSeed     int
	AwaySeed     int
	HomeWinnerOf int
	AwayWinnerOf int
	HomeLoserOf  int
	AwayLoserOf  int

	Bye bool

	// Destination links, filled by the linking pass.
	WinnerTo   int
	WinnerSlot int
	LoserTo    int
	LoserSlot  int
}

func newPlan(round, position int, section Section) MatchPlan {
	return MatchPlan{
		Round:        round,
		Position:     position,
		Section:      section,
		HomeSeed:     -1,
		AwaySeed:     -1,
		HomeWinnerOf: -1,
		AwayWinnerOf: -1,
		HomeLoserOf:  -1,
		AwayLoserOf:  -1,
		WinnerTo:     -1,
		WinnerSlot:   -1,
		LoserTo:      -1,
		LoserSlot:    -1,
	}
}

// Blueprint is a generated match topology for one tournament stage.
type Blueprint struct {
	Format  Format
	Rounds  int
	Matches []MatchPlan

	// GrandFinal indexes the double-elimination grand final, -1
	// otherwise. The bracket-reset match is not part of the initial
	// topology; see ResetPlan.
	GrandFinal int
}

// Generate builds the upfront topology for n seeded participants.
// Swiss generates only its first round here; later rounds come from
// NextRound, which is the one deliberately incremental format.
func Generate(format Format, n int) (*Blueprint, error) {
	if n < 2 {
		return nil, errs.Validationf("cannot generate a bracket for %d participants (minimum 2)", n)
	}
	switch format {
	case SingleElimination:
		return generateSingleElimination(n), nil
	case DoubleElimination:
		return generateDoubleElimination(n), nil
	case RoundRobin:
		return generateRoundRobin(n), nil
	case Swiss:
		return generateSwissFirstRound(n), nil
	}
	return nil, errs.Validationf("unknown bracket format %q", format)
}

// link fills destination references from the feeder references, so
// completing a match can push its winner and loser forward without
// scanning the arena.
func (bp *Blueprint) link() {
	for i := range bp.Matches {
		m := &bp.Matches[i]
		if m.HomeWinnerOf >= 0 {
			bp.Matches[m.HomeWinnerOf].WinnerTo = i
			bp.Matches[m.HomeWinnerOf].WinnerSlot = SlotHome
		}
		if m.AwayWinnerOf >= 0 {
			bp.Matches[m.AwayWinnerOf].WinnerTo = i
			bp.Matches[m.AwayWinnerOf].WinnerSlot = SlotAway
		}
		if m.HomeLoserOf >= 0 {
			bp.Matches[m.HomeLoserOf].LoserTo = i
			bp.Matches[m.HomeLoserOf].LoserSlot = SlotHome
		}
		if m.AwayLoserOf >= 0 {
			bp.Matches[m.AwayLoserOf].LoserTo = i
			bp.Matches[m.AwayLoserOf].LoserSlot = SlotAway
		}
	}
}

// Validate checks internal consistency of the arena: every reference
// in range, every non-bye slot fed by exactly one source. Generators
// are pure so this should never fail; a failure upstream of
// persistence is what freezes a tournament.
func (bp *Blueprint) Validate() error {
	for i, m := range bp.Matches {
		for _, ref := range []int{m.HomeWinnerOf, m.AwayWinnerOf, m.HomeLoserOf, m.AwayLoserOf, m.WinnerTo, m.LoserTo} {
			if ref < -1 || ref >= len(bp.Matches) {
				return fmt.Errorf("match %d references out-of-range match %d", i, ref)
			}
		}
		homeSources := count(m.HomeSeed >= 0, m.HomeWinnerOf >= 0, m.HomeLoserOf >= 0)
		if homeSources != 1 {
			return fmt.Errorf("match %d home slot has %d sources, want 1", i, homeSources)
		}
		awaySources := count(m.AwaySeed >= 0, m.AwayWinnerOf >= 0, m.AwayLoserOf >= 0)
		if m.Bye {
			if awaySources != 0 {
				return fmt.Errorf("bye match %d has a fed away slot", i)
			}
		} else if awaySources != 1 {
			return fmt.Errorf("match %d away slot has %d sources, want 1", i, awaySources)
		}
	}
	return nil
}

func count(conds ...bool) int {
	n := 0
	for _, c := range conds {
		if c {
			n++
		}
	}
	return n
}

func ceilLog2(n int) int {
	r := 0
	for size := 1; size < n; size <<= 1 {
		r++
	}
	return r
}
