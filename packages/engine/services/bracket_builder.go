package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"engine/bracket"
	"engine/errs"
	"engine/external"
	"engine/models"
)

// Score recorded on matches decided without play.
const walkoverScore = "W/O"

// buildStage generates one stage's topology and persists it. regs must
// be ordered best seed first; plan seed indices are positions in that
// slice. A generator inconsistency freezes the tournament instead of
// persisting a half-built stage.
func (s *TournamentService) buildStage(tx *gorm.DB, tournament *models.Tournament, stageNo int, format string, regs []models.Registration) error {
	f, err := bracket.ParseFormat(format)
	if err != nil {
		return err
	}
	bp, err := bracket.Generate(f, len(regs))
	if err != nil {
		return err
	}
	if err := bp.Validate(); err != nil {
		reason := fmt.Sprintf("stage %d generation produced an inconsistent bracket: %v", stageNo, err)
		if ferr := s.Freeze(tournament.ID, reason); ferr != nil {
			return ferr
		}
		return &errs.FrozenError{TournamentID: tournament.ID, Reason: reason}
	}

	b := &models.Bracket{
		TournamentID: tournament.ID,
		Stage:        stageNo,
		Format:       format,
		Rounds:       bp.Rounds,
	}
	if f == bracket.Swiss {
		b.CurrentRound = 1
	}
	if err := tx.Create(b).Error; err != nil {
		return err
	}

	ids, err := s.insertPlans(tx, tournament, b, bp.Matches, regs)
	if err != nil {
		return err
	}

	if bp.GrandFinal >= 0 {
		gfID := ids[bp.GrandFinal]
		if err := tx.Model(&models.Bracket{}).Where("id = ?", b.ID).
			Update("grand_final_match_id", gfID).Error; err != nil {
			return err
		}
	}

	return s.activateStage(tx, tournament, ids)
}

// insertPlans persists a set of generated plans and returns their
// match IDs, indexed like the plans. Byes are stored pre-completed so
// traversal never special-cases them; their propagation runs in
// activateStage.
func (s *TournamentService) insertPlans(tx *gorm.DB, tournament *models.Tournament, b *models.Bracket, plans []bracket.MatchPlan, regs []models.Registration) ([]uint, error) {
	now := time.Now()
	ids := make([]uint, len(plans))

	for i, plan := range plans {
		m := models.Match{
			TournamentID: tournament.ID,
			BracketID:    b.ID,
			Round:        plan.Round,
			Position:     plan.Position,
			Section:      string(plan.Section),
			Status:       models.MatchScheduled,
			Version:      1,
		}
		if plan.HomeSeed >= 0 {
			m.HomeRegistrationID = &regs[plan.HomeSeed].ID
		}
		if plan.AwaySeed >= 0 {
			m.AwayRegistrationID = &regs[plan.AwaySeed].ID
		}
		if plan.Bye {
			m.AwayBye = true
			m.Status = models.MatchCompleted
			m.WinnerRegistrationID = m.HomeRegistrationID
			m.ResultScore = walkoverScore
			m.CompletedAt = &now
		}
		if err := tx.Create(&m).Error; err != nil {
			return nil, err
		}
		ids[i] = m.ID
	}

	// Second pass: destination links, now that every ID exists.
	for i, plan := range plans {
		updates := make(map[string]interface{})
		if plan.WinnerTo >= 0 {
			updates["winner_to_id"] = ids[plan.WinnerTo]
			updates["winner_to_slot"] = plan.WinnerSlot
		}
		if plan.LoserTo >= 0 {
			updates["loser_to_id"] = ids[plan.LoserTo]
			updates["loser_to_slot"] = plan.LoserSlot
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Match{}).Where("id = ?", ids[i]).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

// activateStage pushes bye results forward and marks fully-fed matches
// ready. Walkover cascades happen here too: a bye's winner landing
// opposite another bye completes that match immediately.
//
// Only matches already completed in the snapshot (pre-completed byes)
// are propagated here. A match that completes mid-pass runs its
// propagation through onMatchCompleted, so revisiting it would push
// its result downstream a second time.
func (s *TournamentService) activateStage(tx *gorm.DB, tournament *models.Tournament, ids []uint) error {
	var snapshot []models.Match
	if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&snapshot).Error; err != nil {
		return err
	}

	for i := range snapshot {
		if snapshot[i].Status != models.MatchCompleted {
			continue
		}
		if err := s.propagateCompletion(tx, tournament, &snapshot[i]); err != nil {
			return err
		}
	}

	for i := range snapshot {
		if snapshot[i].Status == models.MatchCompleted {
			continue
		}
		// Re-read: the bye pass above may have filled slots or
		// cascade-completed this match. evaluateMatch ignores anything
		// no longer scheduled.
		var m models.Match
		if err := tx.First(&m, snapshot[i].ID).Error; err != nil {
			return err
		}
		if err := s.evaluateMatch(tx, tournament, &m); err != nil {
			return err
		}
	}
	return nil
}

// propagateCompletion pushes a finished match's winner and loser into
// their destination slots. A missing participant (the loser of a bye,
// or the winner of a double bye) propagates as a bye flag, so the
// destination can resolve its own walkover.
func (s *TournamentService) propagateCompletion(tx *gorm.DB, tournament *models.Tournament, m *models.Match) error {
	var loser *uint
	if m.WinnerRegistrationID != nil {
		if m.HomeRegistrationID != nil && *m.HomeRegistrationID == *m.WinnerRegistrationID {
			loser = m.AwayRegistrationID
		} else {
			loser = m.HomeRegistrationID
		}
	}

	if m.WinnerToID != nil {
		if err := s.fillSlot(tx, tournament, *m.WinnerToID, m.WinnerToSlot, m.WinnerRegistrationID); err != nil {
			return err
		}
	}
	if m.LoserToID != nil {
		if err := s.fillSlot(tx, tournament, *m.LoserToID, m.LoserToSlot, loser); err != nil {
			return err
		}
	}
	return nil
}

// fillSlot assigns a participant (or a bye, when reg is nil) to one
// slot of a downstream match, then re-evaluates it.
func (s *TournamentService) fillSlot(tx *gorm.DB, tournament *models.Tournament, matchID uint, slot int, reg *uint) error {
	var m models.Match
	if err := tx.First(&m, matchID).Error; err != nil {
		return notFound(err)
	}
	if m.Status != models.MatchScheduled {
		return errs.Policyf("match %d already active, cannot fill slot %d", matchID, slot)
	}

	observed := m.Version
	updates := make(map[string]interface{})
	if slot == models.MatchSlotHome {
		if reg != nil {
			updates["home_registration_id"] = *reg
			m.HomeRegistrationID = reg
		} else {
			updates["home_bye"] = true
			m.HomeBye = true
		}
	} else {
		if reg != nil {
			updates["away_registration_id"] = *reg
			m.AwayRegistrationID = reg
		} else {
			updates["away_bye"] = true
			m.AwayBye = true
		}
	}
	if err := guardedMatchUpdate(tx, m.ID, observed, updates); err != nil {
		return err
	}
	m.Version = observed + 1

	return s.evaluateMatch(tx, tournament, &m)
}

// evaluateMatch decides what a scheduled match becomes once a slot
// changes: ready when two participants are in, a walkover completion
// when one side is a bye, a silent completion when both are.
func (s *TournamentService) evaluateMatch(tx *gorm.DB, tournament *models.Tournament, m *models.Match) error {
	if m.Status != models.MatchScheduled {
		return nil
	}
	if !m.SlotFilled(models.MatchSlotHome) || !m.SlotFilled(models.MatchSlotAway) {
		return nil
	}
	now := time.Now()

	if m.HomeBye && m.AwayBye {
		// Nobody to play: complete with no winner and pass the bye on.
		return s.completeWithoutPlay(tx, tournament, m, nil, now)
	}
	if m.Walkover() {
		winner := m.HomeRegistrationID
		if winner == nil {
			winner = m.AwayRegistrationID
		}
		return s.completeWithoutPlay(tx, tournament, m, winner, now)
	}

	observed := m.Version
	if err := m.Transition(models.MatchReady, observed, now); err != nil {
		return err
	}
	if err := guardedMatchUpdate(tx, m.ID, observed, map[string]interface{}{
		"status":   models.MatchReady,
		"ready_at": now,
		"version":  m.Version,
	}); err != nil {
		return err
	}
	s.publishMatch(tournament.ID, m.ID, models.MatchReady)
	return nil
}

// completeWithoutPlay resolves a match nobody will play, crediting the
// surviving participant if there is one.
func (s *TournamentService) completeWithoutPlay(tx *gorm.DB, tournament *models.Tournament, m *models.Match, winner *uint, now time.Time) error {
	return s.completeMatch(tx, tournament, m, m.Version, winner, walkoverScore)
}

// stepsToCompleted is the legal transition chain from a live status to
// completed. Skipping states is never allowed, so every forced
// completion (walkover, forfeit, auto-confirm, dispute resolution)
// walks the intermediate states in order.
func stepsToCompleted(status string) []string {
	switch status {
	case models.MatchScheduled:
		return []string{models.MatchReady, models.MatchPendingResult, models.MatchCompleted}
	case models.MatchReady, models.MatchLive:
		return []string{models.MatchPendingResult, models.MatchCompleted}
	case models.MatchPendingResult, models.MatchDisputed:
		return []string{models.MatchCompleted}
	}
	return nil
}

// completeMatch drives a match to completed from any live state under
// the version guard, then runs the completion consequences.
func (s *TournamentService) completeMatch(tx *gorm.DB, tournament *models.Tournament, m *models.Match, observed uint, winner *uint, score string) error {
	if observed != m.Version {
		return &errs.ConflictError{Entity: "match", ID: m.ID, Expected: observed, Actual: m.Version}
	}
	steps := stepsToCompleted(m.Status)
	if steps == nil {
		return errs.Policyf("match %d cannot complete from %s", m.ID, m.Status)
	}

	now := time.Now()
	for _, step := range steps {
		if err := m.Transition(step, m.Version, now); err != nil {
			return err
		}
	}
	m.WinnerRegistrationID = winner
	if score != "" {
		m.ResultScore = score
	}

	updates := map[string]interface{}{
		"status":       models.MatchCompleted,
		"result_score": m.ResultScore,
		"version":      m.Version,
	}
	if winner != nil {
		updates["winner_registration_id"] = *winner
	} else {
		updates["winner_registration_id"] = nil
	}
	if m.ReadyAt != nil {
		updates["ready_at"] = *m.ReadyAt
	}
	if m.SubmittedAt != nil {
		updates["submitted_at"] = *m.SubmittedAt
	}
	updates["completed_at"] = now
	if err := guardedMatchUpdate(tx, m.ID, observed, updates); err != nil {
		return err
	}

	s.publishMatch(tournament.ID, m.ID, models.MatchCompleted)
	return s.onMatchCompleted(tx, tournament, m)
}

// Live statuses a forfeit has to resolve.
var liveMatchStatuses = []string{models.MatchScheduled, models.MatchReady, models.MatchLive, models.MatchPendingResult, models.MatchDisputed}

// forfeitRegistration resolves every live match a leaving participant
// is in. Scheduled matches turn their slot into a bye; active ones
// complete in the opponent's favor.
func (s *TournamentService) forfeitRegistration(tx *gorm.DB, tournament *models.Tournament, regID uint) error {
	var matches []models.Match
	if err := tx.Where("tournament_id = ? AND status IN ? AND (home_registration_id = ? OR away_registration_id = ?)",
		tournament.ID, liveMatchStatuses, regID, regID).
		Order("id ASC").Find(&matches).Error; err != nil {
		return err
	}

	for i := range matches {
		m := &matches[i]
		if m.Status == models.MatchScheduled {
			observed := m.Version
			updates := make(map[string]interface{})
			if m.HomeRegistrationID != nil && *m.HomeRegistrationID == regID {
				updates["home_registration_id"] = nil
				updates["home_bye"] = true
				m.HomeRegistrationID = nil
				m.HomeBye = true
			} else {
				updates["away_registration_id"] = nil
				updates["away_bye"] = true
				m.AwayRegistrationID = nil
				m.AwayBye = true
			}
			if err := guardedMatchUpdate(tx, m.ID, observed, updates); err != nil {
				return err
			}
			m.Version = observed + 1
			if err := s.evaluateMatch(tx, tournament, m); err != nil {
				return err
			}
			continue
		}

		var winner *uint
		if m.HomeRegistrationID != nil && *m.HomeRegistrationID == regID {
			winner = m.AwayRegistrationID
		} else {
			winner = m.HomeRegistrationID
		}
		if err := s.completeMatch(tx, tournament, m, m.Version, winner, walkoverScore); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentService) publishMatch(tournamentID, matchID uint, status string) {
	payload, _ := json.Marshal(map[string]string{"status": status})
	s.notifier.Publish(external.Event{
		Type:         external.EventMatchStatus,
		TournamentID: tournamentID,
		MatchID:      matchID,
		Payload:      payload,
		At:           time.Now(),
	})
}

// onMatchCompleted runs the consequences of any completion: forward
// propagation, the double-elimination bracket reset, swiss round
// generation, stage advancement, and finally tournament completion.
func (s *TournamentService) onMatchCompleted(tx *gorm.DB, tournament *models.Tournament, m *models.Match) error {
	if err := s.propagateCompletion(tx, tournament, m); err != nil {
		return err
	}

	var b models.Bracket
	if err := tx.First(&b, m.BracketID).Error; err != nil {
		return err
	}

	if b.GrandFinalMatchID != nil && *b.GrandFinalMatchID == m.ID {
		created, err := s.maybeCreateBracketReset(tx, tournament, &b, m)
		if err != nil {
			return err
		}
		if created {
			return nil
		}
	}

	if bracket.Format(b.Format) == bracket.Swiss {
		advanced, err := s.maybeAdvanceSwissRound(tx, tournament, &b)
		if err != nil {
			return err
		}
		if advanced {
			return nil
		}
	}

	done, err := s.bracketComplete(tx, &b)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}
	return s.onStageComplete(tx, tournament, &b)
}

// maybeCreateBracketReset appends the second grand final when the
// losers-bracket finalist (the away slot) takes the first one. Returns
// true when the reset was created, meaning the stage is not over.
func (s *TournamentService) maybeCreateBracketReset(tx *gorm.DB, tournament *models.Tournament, b *models.Bracket, gf *models.Match) (bool, error) {
	if gf.WinnerRegistrationID == nil || gf.AwayRegistrationID == nil ||
		*gf.WinnerRegistrationID != *gf.AwayRegistrationID {
		return false, nil
	}

	var existing int64
	if err := tx.Model(&models.Match{}).
		Where("bracket_id = ? AND round > ?", b.ID, gf.Round).
		Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	now := time.Now()
	reset := models.Match{
		TournamentID:       tournament.ID,
		BracketID:          b.ID,
		Round:              gf.Round + 1,
		Position:           1,
		Section:            string(bracket.SectionFinal),
		Status:             models.MatchReady,
		Version:            1,
		HomeRegistrationID: gf.HomeRegistrationID,
		AwayRegistrationID: gf.AwayRegistrationID,
		ReadyAt:            &now,
	}
	if err := tx.Create(&reset).Error; err != nil {
		return false, err
	}
	if err := tx.Model(&models.Bracket{}).Where("id = ?", b.ID).
		Update("rounds", gf.Round+1).Error; err != nil {
		return false, err
	}
	s.publishMatch(tournament.ID, reset.ID, models.MatchReady)
	return true, nil
}

// maybeAdvanceSwissRound generates the next swiss round once the
// current one is fully decided. Returns true when a round was added.
func (s *TournamentService) maybeAdvanceSwissRound(tx *gorm.DB, tournament *models.Tournament, b *models.Bracket) (bool, error) {
	if b.CurrentRound >= b.Rounds {
		return false, nil
	}

	var open int64
	if err := tx.Model(&models.Match{}).
		Where("bracket_id = ? AND round = ? AND status NOT IN ?",
			b.ID, b.CurrentRound, []string{models.MatchCompleted, models.MatchCancelled}).
		Count(&open).Error; err != nil {
		return false, err
	}
	if open > 0 {
		return false, nil
	}

	regs, err := s.stageParticipants(tx, b.ID)
	if err != nil {
		return false, err
	}
	standings, err := s.swissStandings(tx, b, regs)
	if err != nil {
		return false, err
	}

	plans, err := bracket.NextRound(b.CurrentRound+1, standings)
	if err != nil {
		reason := fmt.Sprintf("swiss round %d pairing failed: %v", b.CurrentRound+1, err)
		if ferr := s.Freeze(tournament.ID, reason); ferr != nil {
			return false, ferr
		}
		return false, &errs.FrozenError{TournamentID: tournament.ID, Reason: reason}
	}

	ids, err := s.insertPlans(tx, tournament, b, plans, regs)
	if err != nil {
		return false, err
	}
	if err := tx.Model(&models.Bracket{}).Where("id = ?", b.ID).
		Update("current_round", b.CurrentRound+1).Error; err != nil {
		return false, err
	}
	b.CurrentRound++
	return true, s.activateStage(tx, tournament, ids)
}

// bracketComplete reports whether every match in a stage is decided.
func (s *TournamentService) bracketComplete(tx *gorm.DB, b *models.Bracket) (bool, error) {
	if bracket.Format(b.Format) == bracket.Swiss && b.CurrentRound < b.Rounds {
		return false, nil
	}
	var open int64
	if err := tx.Model(&models.Match{}).
		Where("bracket_id = ? AND status NOT IN ?", b.ID,
			[]string{models.MatchCompleted, models.MatchCancelled}).
		Count(&open).Error; err != nil {
		return false, err
	}
	return open == 0, nil
}

// onStageComplete either builds the next stage from the advancing set
// or finishes the tournament.
func (s *TournamentService) onStageComplete(tx *gorm.DB, tournament *models.Tournament, b *models.Bracket) error {
	stages, err := tournament.Stages()
	if err != nil {
		return err
	}

	if b.Stage < len(stages) {
		take := stages[b.Stage-1].Advance
		regs, err := s.stageParticipants(tx, b.ID)
		if err != nil {
			return err
		}
		standings, err := s.swissStandings(tx, b, regs)
		if err != nil {
			return err
		}
		seeds, err := bracket.AdvancingSet(standings, take)
		if err != nil {
			reason := fmt.Sprintf("stage %d advancing set: %v", b.Stage, err)
			if ferr := s.Freeze(tournament.ID, reason); ferr != nil {
				return ferr
			}
			return &errs.FrozenError{TournamentID: tournament.ID, Reason: reason}
		}

		advancing := make([]models.Registration, 0, take)
		for i, seed := range seeds {
			reg := regs[seed]
			reg.Seed = i + 1
			if err := tx.Model(&models.Registration{}).Where("id = ?", reg.ID).
				Update("seed", reg.Seed).Error; err != nil {
				return err
			}
			advancing = append(advancing, reg)
		}

		nextStage := b.Stage + 1
		if err := tx.Model(&models.Tournament{}).Where("id = ?", tournament.ID).
			Update("current_stage", nextStage).Error; err != nil {
			return err
		}
		tournament.CurrentStage = nextStage
		return s.buildStage(tx, tournament, nextStage, stages[nextStage-1].Format, advancing)
	}

	from := tournament.Status
	if err := tournament.Transition(models.TournamentCompleted); err != nil {
		return err
	}
	if err := s.guardedStatusUpdate(tx, tournament.ID, from, map[string]interface{}{
		"status": models.TournamentCompleted,
	}); err != nil {
		return err
	}
	s.publishStatus(tournament.ID, models.TournamentCompleted)

	placements, err := s.placements(tx, tournament, b)
	if err != nil {
		return err
	}
	return s.settlement.Enqueue(tx, tournament, placements)
}

// stageParticipants returns the registrations appearing in a stage,
// ordered best seed first. Index in the returned slice is the seed
// index the generator used.
func (s *TournamentService) stageParticipants(tx *gorm.DB, bracketID uint) ([]models.Registration, error) {
	var matches []models.Match
	if err := tx.Where("bracket_id = ?", bracketID).Find(&matches).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	var ids []uint
	for _, m := range matches {
		for _, ref := range []*uint{m.HomeRegistrationID, m.AwayRegistrationID} {
			if ref != nil && !seen[*ref] {
				seen[*ref] = true
				ids = append(ids, *ref)
			}
		}
	}

	var regs []models.Registration
	if err := tx.Where("id IN ?", ids).Order("seed ASC").Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

// swissStandings converts a stage's decided matches into generator
// standings, keyed by seed index in regs.
func (s *TournamentService) swissStandings(tx *gorm.DB, b *models.Bracket, regs []models.Registration) ([]bracket.Standing, error) {
	seedOf := make(map[uint]int, len(regs))
	for i, reg := range regs {
		seedOf[reg.ID] = i
	}
	standings := make([]bracket.Standing, len(regs))
	for i := range regs {
		standings[i] = bracket.Standing{Seed: i}
	}

	var matches []models.Match
	if err := tx.Where("bracket_id = ? AND status = ? AND void = ?", b.ID, models.MatchCompleted, false).
		Find(&matches).Error; err != nil {
		return nil, err
	}

	for _, m := range matches {
		if m.HomeBye || m.AwayBye {
			for _, ref := range []*uint{m.HomeRegistrationID, m.AwayRegistrationID} {
				if ref != nil {
					idx := seedOf[*ref]
					standings[idx].Wins++
					standings[idx].HadBye = true
				}
			}
			continue
		}
		if m.HomeRegistrationID == nil || m.AwayRegistrationID == nil || m.WinnerRegistrationID == nil {
			continue
		}
		home, away := seedOf[*m.HomeRegistrationID], seedOf[*m.AwayRegistrationID]
		standings[home].Opponents = append(standings[home].Opponents, away)
		standings[away].Opponents = append(standings[away].Opponents, home)
		if *m.WinnerRegistrationID == *m.HomeRegistrationID {
			standings[home].Wins++
			standings[away].Losses++
		} else {
			standings[away].Wins++
			standings[home].Losses++
		}
	}

	for i := range standings {
		for _, opp := range standings[i].Opponents {
			standings[i].OppWins += standings[opp].Wins
		}
	}
	return standings, nil
}

// standingsForBracket is the API-facing standings table for any
// format.
func (s *TournamentService) standingsForBracket(tx *gorm.DB, b *models.Bracket) ([]models.StandingEntry, error) {
	regs, err := s.stageParticipants(tx, b.ID)
	if err != nil {
		return nil, err
	}
	standings, err := s.swissStandings(tx, b, regs)
	if err != nil {
		return nil, err
	}

	entries := make([]models.StandingEntry, len(standings))
	for i, st := range standings {
		reg := regs[st.Seed]
		entries[i] = models.StandingEntry{
			RegistrationID: reg.ID,
			DisplayName:    reg.DisplayName,
			Seed:           reg.Seed,
			Wins:           st.Wins,
			Losses:         st.Losses,
			OppWins:        st.OppWins,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		if entries[i].OppWins != entries[j].OppWins {
			return entries[i].OppWins > entries[j].OppWins
		}
		return entries[i].Seed < entries[j].Seed
	})

	// Tied records share a placement; the next distinct record skips
	// past them.
	for i := range entries {
		if i > 0 && entries[i].Wins == entries[i-1].Wins && entries[i].OppWins == entries[i-1].OppWins {
			entries[i].Placement = entries[i-1].Placement
		} else {
			entries[i].Placement = i + 1
		}
	}
	return entries, nil
}
