package services

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"engine/bracket"
	"engine/errs"
	"engine/external"
	"engine/gamemodule"
	"engine/models"
)

type TournamentService struct {
	db         *gorm.DB
	registry   *gamemodule.Registry
	notifier   external.Notifier
	settlement *SettlementService
}

func NewTournamentService(db *gorm.DB, registry *gamemodule.Registry, notifier external.Notifier, settlement *SettlementService) *TournamentService {
	return &TournamentService{
		db:         db,
		registry:   registry,
		notifier:   notifier,
		settlement: settlement,
	}
}

func (s *TournamentService) CreateTournament(req models.CreateTournamentRequest) (*models.Tournament, error) {
	module, err := s.registry.Get(req.GameModuleID)
	if err != nil {
		return nil, errs.Validationf("unknown game module %q", req.GameModuleID)
	}
	if _, err := bracket.ParseFormat(req.Format); err != nil {
		return nil, err
	}
	if err := s.validateGameSettings(module, req.GameSettings); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:                 req.Name,
		Slug:                 s.generateUniqueSlug(req.Name),
		GameModuleID:         req.GameModuleID,
		Format:               req.Format,
		Status:               models.TournamentDraft,
		Description:          req.Description,
		MinParticipants:      req.MinParticipants,
		MaxParticipants:      req.MaxParticipants,
		GameSettings:         req.GameSettings,
		StagePlan:            req.StagePlan,
		AutoConfirmMins:      req.AutoConfirmMins,
		DisputeDeadlineMins:  req.DisputeDeadlineMins,
		VoidPolicy:           req.VoidPolicy,
		PrizeTable:           req.PrizeTable,
		RegistrationClosesAt: req.RegistrationClosesAt,
		CheckInClosesAt:      req.CheckInClosesAt,
		StartsAt:             req.StartsAt,
	}
	if tournament.MinParticipants < 2 {
		tournament.MinParticipants = 2
	}
	if tournament.AutoConfirmMins <= 0 {
		tournament.AutoConfirmMins = 15
	}
	if tournament.DisputeDeadlineMins <= 0 {
		tournament.DisputeDeadlineMins = 60
	}
	if tournament.VoidPolicy == "" {
		tournament.VoidPolicy = models.VoidReplay
	}

	// Every stage format must be valid up front; a broken plan must not
	// surface mid-tournament.
	stages, err := tournament.Stages()
	if err != nil {
		return nil, err
	}
	for i, stage := range stages {
		if _, err := bracket.ParseFormat(stage.Format); err != nil {
			return nil, errs.Validationf("stage %d: unknown format %q", i+1, stage.Format)
		}
		if i < len(stages)-1 && stage.Advance < 2 {
			return nil, errs.Validationf("stage %d must advance at least 2 participants", i+1)
		}
	}
	if _, err := tournament.Prizes(); err != nil {
		return nil, err
	}

	if err := s.db.Create(tournament).Error; err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *TournamentService) validateGameSettings(module gamemodule.GameModule, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var settings map[string]string
	if err := json.Unmarshal(raw, &settings); err != nil {
		return errs.Validationf("game settings must be a string map: %v", err)
	}
	return gamemodule.ValidateSettings(module, settings)
}

func (s *TournamentService) GetTournamentByID(id uint) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := s.db.First(&tournament, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tournament, nil
}

func (s *TournamentService) GetTournamentBySlug(slug string) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := s.db.Where("slug = ?", slug).First(&tournament).Error; err != nil {
		return nil, notFound(err)
	}
	return &tournament, nil
}

func (s *TournamentService) GetAllTournaments(page, pageSize int, status, format *string) (*models.PaginatedTournamentResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	var tournaments []models.Tournament
	var total int64

	query := s.db.Model(&models.Tournament{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if format != nil {
		query = query.Where("format = ?", *format)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tournaments).Error; err != nil {
		return nil, err
	}

	return &models.PaginatedTournamentResponse{
		Data:       tournaments,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *TournamentService) UpdateTournament(id uint, req models.UpdateTournamentRequest) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(id)
	if err != nil {
		return nil, err
	}
	if tournament.Frozen {
		return nil, &errs.FrozenError{TournamentID: tournament.ID, Reason: tournament.FreezeReason}
	}
	if tournament.Status != models.TournamentDraft && tournament.Status != models.TournamentOpen {
		return nil, errs.Policyf("tournament %d can only be edited before lock, status is %s", id, tournament.Status)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MinParticipants != nil {
		if *req.MinParticipants < 2 {
			return nil, errs.Validationf("min_participants must be at least 2")
		}
		updates["min_participants"] = *req.MinParticipants
	}
	if req.MaxParticipants != nil {
		updates["max_participants"] = *req.MaxParticipants
	}
	if req.GameSettings != nil {
		module, err := s.registry.Get(tournament.GameModuleID)
		if err != nil {
			return nil, err
		}
		if err := s.validateGameSettings(module, req.GameSettings); err != nil {
			return nil, err
		}
		updates["game_settings"] = req.GameSettings
	}
	if req.AutoConfirmMins != nil {
		updates["auto_confirm_mins"] = *req.AutoConfirmMins
	}
	if req.DisputeDeadlineMins != nil {
		updates["dispute_deadline_mins"] = *req.DisputeDeadlineMins
	}
	if req.VoidPolicy != nil {
		updates["void_policy"] = *req.VoidPolicy
	}
	if req.PrizeTable != nil {
		updates["prize_table"] = req.PrizeTable
	}
	if req.RegistrationClosesAt != nil {
		updates["registration_closes_at"] = req.RegistrationClosesAt
	}
	if req.CheckInClosesAt != nil {
		updates["check_in_closes_at"] = req.CheckInClosesAt
	}
	if req.StartsAt != nil {
		updates["starts_at"] = req.StartsAt
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Tournament{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetTournamentByID(id)
}

func (s *TournamentService) DeleteTournament(id uint) error {
	tournament, err := s.GetTournamentByID(id)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentDraft {
		return errs.Policyf("only draft tournaments can be deleted, tournament %d is %s", id, tournament.Status)
	}
	return s.db.Delete(&models.Tournament{}, id).Error
}

// OpenRegistration moves a draft tournament into its registration
// phase.
func (s *TournamentService) OpenRegistration(id uint) (*models.Tournament, error) {
	return s.transition(id, models.TournamentOpen)
}

// Lock closes registration. Check-in stays open until the tournament
// starts.
func (s *TournamentService) Lock(id uint) (*models.Tournament, error) {
	return s.transition(id, models.TournamentLocked)
}

// Cancel aborts a tournament from any live state. Matches that are not
// finished are cancelled with it; settled effects are never clawed
// back.
func (s *TournamentService) Cancel(id uint) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(id)
	if err != nil {
		return nil, err
	}
	from := tournament.Status
	if err := tournament.Transition(models.TournamentCancelled); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.guardedStatusUpdate(tx, id, from, map[string]interface{}{
			"status": models.TournamentCancelled,
		}); err != nil {
			return err
		}
		return tx.Model(&models.Match{}).
			Where("tournament_id = ? AND status NOT IN ?", id, []string{models.MatchCompleted, models.MatchCancelled}).
			Updates(map[string]interface{}{"status": models.MatchCancelled, "version": gorm.Expr("version + 1")}).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(external.Event{
		Type:         external.EventTournamentStatus,
		TournamentID: id,
		Payload:      json.RawMessage(`{"status":"cancelled"}`),
		At:           time.Now(),
	})
	return s.GetTournamentByID(id)
}

func (s *TournamentService) transition(id uint, to string) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(id)
	if err != nil {
		return nil, err
	}
	from := tournament.Status
	if err := tournament.Transition(to); err != nil {
		return nil, err
	}
	if err := s.guardedStatusUpdate(s.db, id, from, map[string]interface{}{"status": to}); err != nil {
		return nil, err
	}
	s.publishStatus(id, to)
	return tournament, nil
}

// guardedStatusUpdate writes a tournament mutation conditioned on the
// status the caller observed. The status check lives in the WHERE
// clause, so two writers racing past the in-memory transition check
// cannot both land; the loser gets a conflict and must re-read.
func (s *TournamentService) guardedStatusUpdate(tx *gorm.DB, id uint, from string, updates map[string]interface{}) error {
	res := tx.Model(&models.Tournament{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var current models.Tournament
		if err := tx.Select("status").First(&current, id).Error; err != nil {
			return notFound(err)
		}
		return &errs.ConflictError{
			Entity: "tournament",
			ID:     id,
			Msg:    fmt.Sprintf("tournament %d left %s concurrently, now %s", id, from, current.Status),
		}
	}
	return nil
}

func (s *TournamentService) publishStatus(id uint, status string) {
	payload, _ := json.Marshal(map[string]string{"status": status})
	s.notifier.Publish(external.Event{
		Type:         external.EventTournamentStatus,
		TournamentID: id,
		Payload:      payload,
		At:           time.Now(),
	})
}

// Freeze blocks all further mutation on a tournament. Used by the
// engine itself when it detects an inconsistency, and exposed to
// operators for manual intervention.
func (s *TournamentService) Freeze(id uint, reason string) error {
	res := s.db.Model(&models.Tournament{}).Where("id = ?", id).
		Updates(map[string]interface{}{"frozen": true, "freeze_reason": reason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Unfreeze lifts a freeze after operator review.
func (s *TournamentService) Unfreeze(id uint) error {
	res := s.db.Model(&models.Tournament{}).Where("id = ?", id).
		Updates(map[string]interface{}{"frozen": false, "freeze_reason": ""})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Start seeds the checked-in field and generates the first stage.
func (s *TournamentService) Start(id uint) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(id)
	if err != nil {
		return nil, err
	}
	from := tournament.Status
	if err := tournament.Transition(models.TournamentInProgress); err != nil {
		return nil, err
	}

	var regs []models.Registration
	if err := s.db.Where("tournament_id = ? AND status = ?", id, models.RegistrationCheckedIn).
		Order("seed ASC, created_at ASC").
		Find(&regs).Error; err != nil {
		return nil, err
	}
	if len(regs) < tournament.MinParticipants {
		return nil, errs.Policyf("tournament %d has %d checked-in participants, needs %d",
			id, len(regs), tournament.MinParticipants)
	}

	stages, err := tournament.Stages()
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Final seeds are positions in the checked-in order; preset
		// seeds sort first.
		for i := range regs {
			regs[i].Seed = i + 1
			if err := tx.Model(&models.Registration{}).Where("id = ?", regs[i].ID).
				Update("seed", regs[i].Seed).Error; err != nil {
				return err
			}
		}

		// Conditional on the status we read: a concurrent starter (or
		// the sweep) loses here and never reaches stage generation.
		if err := s.guardedStatusUpdate(tx, id, from, map[string]interface{}{
			"status":        models.TournamentInProgress,
			"current_stage": 1,
		}); err != nil {
			return err
		}

		return s.buildStage(tx, tournament, 1, stages[0].Format, regs)
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(id, models.TournamentInProgress)
	return s.GetTournamentByID(id)
}

// GetBracket returns a stage's matches grouped by round. Stage 0 means
// the current stage.
func (s *TournamentService) GetBracket(tournamentID uint, stage int) (*models.BracketResponse, error) {
	tournament, err := s.GetTournamentByID(tournamentID)
	if err != nil {
		return nil, err
	}
	if stage == 0 {
		stage = tournament.CurrentStage
	}

	var b models.Bracket
	if err := s.db.Where("tournament_id = ? AND stage = ?", tournamentID, stage).First(&b).Error; err != nil {
		return nil, notFound(err)
	}

	var matches []models.Match
	if err := s.db.Where("bracket_id = ?", b.ID).
		Preload("HomeRegistration").
		Preload("AwayRegistration").
		Order("round ASC, position ASC").
		Find(&matches).Error; err != nil {
		return nil, err
	}

	rounds := make(map[int][]models.Match)
	for _, m := range matches {
		rounds[m.Round] = append(rounds[m.Round], m)
	}
	return &models.BracketResponse{Bracket: b, Rounds: rounds}, nil
}

// Standings returns the live table for a stage. Stage 0 means the
// current stage.
func (s *TournamentService) Standings(tournamentID uint, stage int) ([]models.StandingEntry, error) {
	tournament, err := s.GetTournamentByID(tournamentID)
	if err != nil {
		return nil, err
	}
	if stage == 0 {
		stage = tournament.CurrentStage
	}
	if stage == 0 {
		return nil, errs.Policyf("tournament %d has not started", tournamentID)
	}

	var b models.Bracket
	if err := s.db.Where("tournament_id = ? AND stage = ?", tournamentID, stage).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return s.standingsForBracket(s.db, &b)
}
