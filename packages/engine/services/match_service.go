package services

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"engine/errs"
	"engine/external"
	"engine/gamemodule"
	"engine/models"
)

type MatchService struct {
	db          *gorm.DB
	registry    *gamemodule.Registry
	notifier    external.Notifier
	tournaments *TournamentService
}

func NewMatchService(db *gorm.DB, registry *gamemodule.Registry, notifier external.Notifier, tournaments *TournamentService) *MatchService {
	return &MatchService{
		db:          db,
		registry:    registry,
		notifier:    notifier,
		tournaments: tournaments,
	}
}

func (s *MatchService) GetMatch(id uint) (*models.Match, error) {
	var m models.Match
	if err := s.db.
		Preload("HomeRegistration").
		Preload("AwayRegistration").
		First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MatchService) GetMatches(tournamentID uint, page, pageSize int, status *string, round *int) (*models.PaginatedMatchResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	var matches []models.Match
	var total int64

	query := s.db.Model(&models.Match{}).Where("tournament_id = ?", tournamentID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if round != nil {
		query = query.Where("round = ?", *round)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	if err := query.
		Preload("HomeRegistration").
		Preload("AwayRegistration").
		Order("round ASC, position ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&matches).Error; err != nil {
		return nil, err
	}

	return &models.PaginatedMatchResponse{
		Data:       matches,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// participantRef reports which slot, if any, a competitor ref occupies.
func (s *MatchService) participantRef(m *models.Match, competitorRef string) (slot int, ok bool, err error) {
	for _, side := range []struct {
		id   *uint
		slot int
	}{
		{m.HomeRegistrationID, models.MatchSlotHome},
		{m.AwayRegistrationID, models.MatchSlotAway},
	} {
		if side.id == nil {
			continue
		}
		var reg models.Registration
		if err := s.db.First(&reg, *side.id).Error; err != nil {
			return 0, false, notFound(err)
		}
		if reg.CompetitorRef == competitorRef {
			return side.slot, true, nil
		}
	}
	return 0, false, nil
}

// StartMatch flags a ready match as being played. The signal is
// informational; submitting a result does not require it.
func (s *MatchService) StartMatch(matchID uint, req models.StartMatchRequest) (*models.Match, error) {
	m, err := s.GetMatch(matchID)
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
	if tournament.Status != models.TournamentInProgress {
		return nil, errs.Policyf("tournament %d is not in progress", tournament.ID)
	}

	now := time.Now()
	if err := m.Transition(models.MatchLive, req.Version, now); err != nil {
		return nil, err
	}
	if err := guardedMatchUpdate(s.db, m.ID, req.Version, map[string]interface{}{
		"status":     models.MatchLive,
		"started_at": now,
		"version":    m.Version,
	}); err != nil {
		return nil, err
	}

	s.publishMatchEvent(external.EventMatchStatus, tournament.ID, m.ID, models.MatchLive)
	return s.GetMatch(matchID)
}

// SubmitResult records a participant's claimed outcome. The payload is
// normalized by the tournament's game module before anything is
// stored; an unparseable payload changes nothing. The submitted
// version must match the match's current version.
func (s *MatchService) SubmitResult(matchID uint, submitterRef string, req models.SubmitResultRequest) (*models.Match, error) {
	m, err := s.GetMatch(matchID)
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
	if tournament.Status != models.TournamentInProgress {
		return nil, errs.Policyf("tournament %d is not in progress", tournament.ID)
	}

	if _, ok, err := s.participantRef(m, submitterRef); err != nil {
		return nil, err
	} else if !ok {
		return nil, errs.Policyf("%q is not a participant of match %d", submitterRef, matchID)
	}

	module, err := s.registry.Get(tournament.GameModuleID)
	if err != nil {
		return nil, err
	}
	result, err := module.ParseResult(req.Payload)
	if err != nil {
		return nil, err
	}

	var winner *uint
	if result.WinnerSlot == models.MatchSlotHome {
		winner = m.HomeRegistrationID
	} else {
		winner = m.AwayRegistrationID
	}
	if winner == nil {
		return nil, errs.Validationf("result names slot %d as winner, but that slot is empty", result.WinnerSlot)
	}

	now := time.Now()
	if err := m.Transition(models.MatchPendingResult, req.Version, now); err != nil {
		return nil, err
	}

	var metadata []byte
	if len(result.Metadata) > 0 {
		metadata, _ = json.Marshal(result.Metadata)
	}
	if err := guardedMatchUpdate(s.db, m.ID, req.Version, map[string]interface{}{
		"status":                 models.MatchPendingResult,
		"submitted_payload":      []byte(req.Payload),
		"submitted_by":           submitterRef,
		"result_score":           result.Score,
		"result_metadata":        metadata,
		"winner_registration_id": *winner,
		"submitted_at":           now,
		"version":                m.Version,
	}); err != nil {
		return nil, err
	}

	s.publishMatchEvent(external.EventMatchResult, tournament.ID, m.ID, models.MatchPendingResult)
	return s.GetMatch(matchID)
}

// ConfirmResult finalizes a submitted result. Only the opponent (or an
// operator acting as one) may confirm; the submitter cannot confirm
// their own claim.
func (s *MatchService) ConfirmResult(matchID uint, confirmerRef string, req models.ConfirmResultRequest) (*models.Match, error) {
	m, err := s.GetMatch(matchID)
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
		return nil, errs.Policyf("match %d has no result awaiting confirmation", matchID)
	}
	if confirmerRef != "" && confirmerRef == m.SubmittedBy {
		return nil, errs.Policyf("%q cannot confirm their own submission", confirmerRef)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.tournaments.completeMatch(tx, tournament, m, req.Version, m.WinnerRegistrationID, m.ResultScore)
	})
	if err != nil {
		return nil, err
	}
	return s.GetMatch(matchID)
}

// AutoConfirmExpired completes every unconfirmed result whose
// tournament confirmation window has lapsed. Returns how many matches
// were confirmed.
func (s *MatchService) AutoConfirmExpired() (int, error) {
	var pending []models.Match
	if err := s.db.Where("status = ? AND submitted_at IS NOT NULL", models.MatchPendingResult).
		Find(&pending).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	confirmed := 0
	for i := range pending {
		m := &pending[i]
		tournament, err := s.tournaments.GetTournamentByID(m.TournamentID)
		if err != nil {
			log.Printf("auto-confirm: tournament %d for match %d: %v", m.TournamentID, m.ID, err)
			continue
		}
		if tournament.Frozen {
			continue
		}
		deadline := m.SubmittedAt.Add(time.Duration(tournament.AutoConfirmMins) * time.Minute)
		if now.Before(deadline) {
			continue
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			return s.tournaments.completeMatch(tx, tournament, m, m.Version, m.WinnerRegistrationID, m.ResultScore)
		})
		if err != nil {
			// A conflict means someone acted on the match concurrently,
			// which is fine; anything else is worth logging.
			if !errs.IsConflict(err) {
				log.Printf("auto-confirm: match %d: %v", m.ID, err)
			}
			continue
		}
		confirmed++
	}
	return confirmed, nil
}

func (s *MatchService) publishMatchEvent(eventType string, tournamentID, matchID uint, status string) {
	payload, _ := json.Marshal(map[string]string{"status": status})
	s.notifier.Publish(external.Event{
		Type:         eventType,
		TournamentID: tournamentID,
		MatchID:      matchID,
		Payload:      payload,
		At:           time.Now(),
	})
}
