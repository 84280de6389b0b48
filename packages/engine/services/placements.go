package services

import (
	"sort"

	"gorm.io/gorm"

	"engine/bracket"
	"engine/models"
	"engine/payout"
)

// placements computes the final order of a tournament from its last
// stage. Round robin and swiss rank by record; elimination formats
// rank by how deep a participant survived, with the champion first and
// everyone else ordered by where their final loss happened.
func (s *TournamentService) placements(tx *gorm.DB, tournament *models.Tournament, b *models.Bracket) ([]payout.Placement, error) {
	regs, err := s.stageParticipants(tx, b.ID)
	if err != nil {
		return nil, err
	}
	regByID := make(map[uint]models.Registration, len(regs))
	for _, reg := range regs {
		regByID[reg.ID] = reg
	}

	switch bracket.Format(b.Format) {
	case bracket.RoundRobin, bracket.Swiss:
		entries, err := s.standingsForBracket(tx, b)
		if err != nil {
			return nil, err
		}
		placements := make([]payout.Placement, len(entries))
		for i, entry := range entries {
			placements[i] = payout.Placement{
				CompetitorRef:  regByID[entry.RegistrationID].CompetitorRef,
				RegistrationID: entry.RegistrationID,
				Placement:      entry.Placement,
			}
		}
		return placements, nil
	}

	return s.eliminationPlacements(tx, b, regs)
}

// sectionDepth orders losses across bracket sections: a grand final
// loss outranks any losers-bracket loss, which outranks any
// winners-bracket loss at the same round number.
func sectionDepth(section string) int {
	switch bracket.Section(section) {
	case bracket.SectionFinal:
		return 3
	case bracket.SectionLosers:
		return 2
	default:
		return 1
	}
}

func (s *TournamentService) eliminationPlacements(tx *gorm.DB, b *models.Bracket, regs []models.Registration) ([]payout.Placement, error) {
	var matches []models.Match
	if err := tx.Where("bracket_id = ? AND status = ? AND void = ?", b.ID, models.MatchCompleted, false).
		Find(&matches).Error; err != nil {
		return nil, err
	}

	type lastLoss struct {
		depth int
		round int
	}
	losses := make(map[uint]lastLoss, len(regs))

	var champion *uint
	var finalDepth, finalRound int
	for _, m := range matches {
		if m.WinnerRegistrationID == nil {
			continue
		}
		depth := sectionDepth(m.Section)

		// Deepest decided match crowns the champion; the reset match,
		// when present, is the deepest by round.
		if champion == nil || depth > finalDepth || (depth == finalDepth && m.Round > finalRound) {
			champion = m.WinnerRegistrationID
			finalDepth, finalRound = depth, m.Round
		}

		var loser *uint
		if m.HomeRegistrationID != nil && *m.HomeRegistrationID == *m.WinnerRegistrationID {
			loser = m.AwayRegistrationID
		} else {
			loser = m.HomeRegistrationID
		}
		if loser == nil {
			continue
		}
		prev, seen := losses[*loser]
		if !seen || depth > prev.depth || (depth == prev.depth && m.Round > prev.round) {
			losses[*loser] = lastLoss{depth: depth, round: m.Round}
		}
	}

	type ranked struct {
		reg   models.Registration
		depth int
		round int
	}
	var rest []ranked
	for _, reg := range regs {
		if champion != nil && reg.ID == *champion {
			continue
		}
		loss := losses[reg.ID]
		rest = append(rest, ranked{reg: reg, depth: loss.depth, round: loss.round})
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].depth != rest[j].depth {
			return rest[i].depth > rest[j].depth
		}
		if rest[i].round != rest[j].round {
			return rest[i].round > rest[j].round
		}
		return rest[i].reg.Seed < rest[j].reg.Seed
	})

	var placements []payout.Placement
	if champion != nil {
		champ := regByIDLookup(regs, *champion)
		placements = append(placements, payout.Placement{
			CompetitorRef:  champ.CompetitorRef,
			RegistrationID: champ.ID,
			Placement:      1,
		})
	}
	for i, r := range rest {
		place := len(placements) + 1
		if i > 0 && r.depth == rest[i-1].depth && r.round == rest[i-1].round {
			place = placements[len(placements)-1].Placement
		}
		placements = append(placements, payout.Placement{
			CompetitorRef:  r.reg.CompetitorRef,
			RegistrationID: r.reg.ID,
			Placement:      place,
		})
	}
	return placements, nil
}

func regByIDLookup(regs []models.Registration, id uint) models.Registration {
	for _, reg := range regs {
		if reg.ID == id {
			return reg
		}
	}
	return models.Registration{}
}
