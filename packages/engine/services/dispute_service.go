package services

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"engine/errs"
	"engine/external"
	"engine/models"
)

type DisputeService struct {
	db          *gorm.DB
	notifier    external.Notifier
	tournaments *TournamentService
	matches     *MatchService
}

func NewDisputeService(db *gorm.DB, notifier external.Notifier, tournaments *TournamentService, matches *MatchService) *DisputeService {
	return &DisputeService{
		db:          db,
		notifier:    notifier,
		tournaments: tournaments,
		matches:     matches,
	}
}

// OpenDispute contests a submitted result. Only a participant of the
// match may raise it, and only while the confirmation window is still
// open; once the window lapses the result auto-confirms instead.
func (s *DisputeService) OpenDispute(matchID uint, req models.OpenDisputeRequest) (*models.Dispute, error) {
	m, err := s.matches.GetMatch(matchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournaments.GetTournamentByID(m.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Frozen {
		return nil, &errs.FrozenError{TournamentID: tournament.ID, Reason: tournament.FreezeReason}
	}
	if m.Status != models.MatchPendingResult {
		return nil, errs.Policyf("match %d has no submitted result to dispute", matchID)
	}
	if _, ok, err := s.matches.participantRef(m, req.RaisedBy); err != nil {
		return nil, err
	} else if !ok {
		return nil, errs.Policyf("%q is not a participant of match %d", req.RaisedBy, matchID)
	}

	now := time.Now()
	window := time.Duration(tournament.AutoConfirmMins) * time.Minute
	if m.SubmittedAt != nil && now.After(m.SubmittedAt.Add(window)) {
		return nil, errs.Policyf("the dispute window for match %d has closed", matchID)
	}

	dispute := &models.Dispute{
		TournamentID: tournament.ID,
		MatchID:      matchID,
		RaisedBy:     req.RaisedBy,
		Reason:       req.Reason,
		Status:       models.DisputeOpen,
		DeadlineAt:   now.Add(time.Duration(tournament.DisputeDeadlineMins) * time.Minute),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		observed := m.Version
		if err := m.Transition(models.MatchDisputed, observed, now); err != nil {
			return err
		}
		if err := guardedMatchUpdate(tx, m.ID, observed, map[string]interface{}{
			"status":      models.MatchDisputed,
			"disputed_at": now,
			"version":     m.Version,
		}); err != nil {
			return err
		}
		return tx.Create(dispute).Error
	})
	if err != nil {
		return nil, err
	}

	s.publishDispute(external.EventDisputeOpened, dispute)
	return dispute, nil
}

func (s *DisputeService) GetDispute(id uint) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := s.db.Preload("Evidence").Preload("Match").First(&dispute, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &dispute, nil
}

func (s *DisputeService) GetDisputes(tournamentID uint, status *string) ([]models.Dispute, error) {
	query := s.db.Where("tournament_id = ?", tournamentID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var disputes []models.Dispute
	if err := query.Order("created_at DESC").Find(&disputes).Error; err != nil {
		return nil, err
	}
	return disputes, nil
}

// AddEvidence attaches material to an open dispute.
func (s *DisputeService) AddEvidence(disputeID uint, req models.AddEvidenceRequest) (*models.DisputeEvidence, error) {
	dispute, err := s.GetDispute(disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeOpen {
		return nil, errs.Policyf("dispute %d is already resolved", disputeID)
	}

	evidence := &models.DisputeEvidence{
		DisputeID:   disputeID,
		SubmittedBy: req.SubmittedBy,
		Note:        req.Note,
		URL:         req.URL,
	}
	if err := s.db.Create(evidence).Error; err != nil {
		return nil, err
	}
	return evidence, nil
}

// Resolve closes a dispute. Uphold keeps the submitted result,
// overturn awards the match to the other side, void discards the
// result and applies the tournament's void policy: a replay match, or
// a walkover for the higher seed.
func (s *DisputeService) Resolve(disputeID uint, req models.ResolveDisputeRequest) (*models.Dispute, error) {
	dispute, err := s.GetDispute(disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeOpen {
		return nil, errs.Policyf("dispute %d is already resolved", disputeID)
	}
	m, err := s.matches.GetMatch(dispute.MatchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournaments.GetTournamentByID(dispute.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Frozen {
		return nil, &errs.FrozenError{TournamentID: tournament.ID, Reason: tournament.FreezeReason}
	}
	if m.Status != models.MatchDisputed {
		return nil, errs.Policyf("match %d is not disputed", m.ID)
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		switch req.Resolution {
		case models.ResolutionUphold:
			if err := s.tournaments.completeMatch(tx, tournament, m, m.Version, m.WinnerRegistrationID, m.ResultScore); err != nil {
				return err
			}
		case models.ResolutionOverturn:
			winner := m.HomeRegistrationID
			if m.WinnerRegistrationID != nil && m.HomeRegistrationID != nil &&
				*m.WinnerRegistrationID == *m.HomeRegistrationID {
				winner = m.AwayRegistrationID
			}
			if winner == nil {
				return errs.Policyf("match %d has no opponent to award", m.ID)
			}
			if err := s.tournaments.completeMatch(tx, tournament, m, m.Version, winner, m.ResultScore); err != nil {
				return err
			}
		case models.ResolutionVoid:
			if err := s.void(tx, tournament, m, now); err != nil {
				return err
			}
		}

		return tx.Model(&models.Dispute{}).Where("id = ?", disputeID).
			Updates(map[string]interface{}{
				"status":          models.DisputeResolved,
				"resolution":      req.Resolution,
				"resolution_note": req.Note,
				"resolved_by":     req.ResolvedBy,
				"resolved_at":     now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	dispute.Status = models.DisputeResolved
	dispute.Resolution = req.Resolution
	s.publishDispute(external.EventDisputeResolved, dispute)
	return s.GetDispute(disputeID)
}

// void discards the disputed result. Under the replay policy the match
// closes as void and a fresh match with the same participants and
// destinations takes its place; under walkover_high_seed the better
// seed wins outright.
func (s *DisputeService) void(tx *gorm.DB, tournament *models.Tournament, m *models.Match, now time.Time) error {
	if tournament.VoidPolicy == models.VoidWalkoverHighSeed {
		winner, err := s.higherSeed(tx, m)
		if err != nil {
			return err
		}
		return s.tournaments.completeMatch(tx, tournament, m, m.Version, winner, walkoverScore)
	}

	// Replay: the voided match completes without consequences; its
	// replacement inherits the slots and destination links, so the
	// bracket flows through the replay instead.
	observed := m.Version
	if err := m.Transition(models.MatchCompleted, observed, now); err != nil {
		return err
	}
	if err := guardedMatchUpdate(tx, m.ID, observed, map[string]interface{}{
		"status":                 models.MatchCompleted,
		"void":                   true,
		"winner_registration_id": nil,
		"completed_at":           now,
		"version":                m.Version,
	}); err != nil {
		return err
	}

	replay := models.Match{
		TournamentID:       m.TournamentID,
		BracketID:          m.BracketID,
		Round:              m.Round,
		Position:           m.Position,
		Section:            m.Section,
		Status:             models.MatchReady,
		Version:            1,
		HomeRegistrationID: m.HomeRegistrationID,
		AwayRegistrationID: m.AwayRegistrationID,
		WinnerToID:         m.WinnerToID,
		WinnerToSlot:       m.WinnerToSlot,
		LoserToID:          m.LoserToID,
		LoserToSlot:        m.LoserToSlot,
		ReadyAt:            &now,
	}
	if err := tx.Create(&replay).Error; err != nil {
		return err
	}
	s.matches.publishMatchEvent(external.EventMatchStatus, tournament.ID, replay.ID, models.MatchReady)
	return nil
}

func (s *DisputeService) higherSeed(tx *gorm.DB, m *models.Match) (*uint, error) {
	if m.HomeRegistrationID == nil || m.AwayRegistrationID == nil {
		return nil, errs.Policyf("match %d does not have two participants", m.ID)
	}
	var home, away models.Registration
	if err := tx.First(&home, *m.HomeRegistrationID).Error; err != nil {
		return nil, notFound(err)
	}
	if err := tx.First(&away, *m.AwayRegistrationID).Error; err != nil {
		return nil, notFound(err)
	}
	if away.Seed != 0 && (home.Seed == 0 || away.Seed < home.Seed) {
		return m.AwayRegistrationID, nil
	}
	return m.HomeRegistrationID, nil
}

// ResolveExpired upholds every open dispute past its deadline. Run by
// the sweep.
func (s *DisputeService) ResolveExpired() (int, error) {
	var expired []models.Dispute
	if err := s.db.Where("status = ? AND deadline_at < ?", models.DisputeOpen, time.Now()).
		Find(&expired).Error; err != nil {
		return 0, err
	}

	resolved := 0
	for _, dispute := range expired {
		_, err := s.Resolve(dispute.ID, models.ResolveDisputeRequest{
			Resolution: models.ResolutionUphold,
			ResolvedBy: "system",
			Note:       "dispute deadline lapsed, submitted result upheld",
		})
		if err != nil {
			log.Printf("dispute sweep: dispute %d: %v", dispute.ID, err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

func (s *DisputeService) publishDispute(eventType string, dispute *models.Dispute) {
	payload, _ := json.Marshal(map[string]interface{}{
		"dispute_id": dispute.ID,
		"resolution": dispute.Resolution,
	})
	s.notifier.Publish(external.Event{
		Type:         eventType,
		TournamentID: dispute.TournamentID,
		MatchID:      dispute.MatchID,
		Payload:      payload,
		At:           time.Now(),
	})
}
