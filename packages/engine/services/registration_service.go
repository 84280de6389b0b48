package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"engine/errs"
	"engine/external"
	"engine/gamemodule"
	"engine/models"
)

type RegistrationService struct {
	db          *gorm.DB
	registry    *gamemodule.Registry
	rosters     external.RosterProvider
	notifier    external.Notifier
	tournaments *TournamentService
}

func NewRegistrationService(db *gorm.DB, registry *gamemodule.Registry, rosters external.RosterProvider, notifier external.Notifier, tournaments *TournamentService) *RegistrationService {
	return &RegistrationService{
		db:          db,
		registry:    registry,
		rosters:     rosters,
		notifier:    notifier,
		tournaments: tournaments,
	}
}

func (s *RegistrationService) Register(tournamentID uint, req models.CreateRegistrationRequest) (*models.Registration, error) {
	tournament, err := s.tournaments.GetTournamentByID(tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Frozen {
		return nil, &errs.FrozenError{TournamentID: tournament.ID, Reason: tournament.FreezeReason}
	}
	if tournament.Status != models.TournamentOpen {
		return nil, errs.Policyf("tournament %d is not open for registration, status is %s", tournamentID, tournament.Status)
	}
	now := time.Now()
	if tournament.RegistrationClosesAt != nil && now.After(*tournament.RegistrationClosesAt) {
		return nil, errs.Policyf("registration for tournament %d closed at %s", tournamentID, tournament.RegistrationClosesAt.Format(time.RFC3339))
	}

	var existing int64
	if err := s.db.Model(&models.Registration{}).
		Where("tournament_id = ? AND competitor_ref = ? AND status NOT IN ?",
			tournamentID, req.CompetitorRef,
			[]string{models.RegistrationWithdrawn, models.RegistrationDisqualified}).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, errs.Policyf("competitor %q is already registered for tournament %d", req.CompetitorRef, tournamentID)
	}

	if tournament.MaxParticipants > 0 {
		var active int64
		if err := s.db.Model(&models.Registration{}).
			Where("tournament_id = ? AND status NOT IN ?", tournamentID,
				[]string{models.RegistrationWithdrawn, models.RegistrationDisqualified}).
			Count(&active).Error; err != nil {
			return nil, err
		}
		if active >= int64(tournament.MaxParticipants) {
			return nil, errs.Policyf("tournament %d is full (%d participants)", tournamentID, tournament.MaxParticipants)
		}
	}

	reg := &models.Registration{
		TournamentID:  tournamentID,
		CompetitorRef: req.CompetitorRef,
		DisplayName:   req.DisplayName,
		Status:        models.RegistrationPending,
	}
	if err := s.db.Create(reg).Error; err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *RegistrationService) GetRegistration(id uint) (*models.Registration, error) {
	var reg models.Registration
	if err := s.db.First(&reg, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (s *RegistrationService) GetRegistrations(tournamentID uint, page, pageSize int, status *string) (*models.PaginatedRegistrationResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	var regs []models.Registration
	var total int64

	query := s.db.Model(&models.Registration{}).Where("tournament_id = ?", tournamentID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	if err := query.Order("seed ASC, created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&regs).Error; err != nil {
		return nil, err
	}

	return &models.PaginatedRegistrationResponse{
		Data:       regs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// Approve accepts a pending registration.
func (s *RegistrationService) Approve(id uint) (*models.Registration, error) {
	reg, err := s.GetRegistration(id)
	if err != nil {
		return nil, err
	}
	if err := reg.Transition(models.RegistrationApproved, time.Now()); err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Registration{}).Where("id = ?", id).
		Update("status", models.RegistrationApproved).Error; err != nil {
		return nil, err
	}
	return reg, nil
}

// CheckIn confirms attendance and snapshots the competitor's roster.
// The snapshot is validated against the game module's team shape and
// identifier requirements; a roster that would be illegal to field is
// rejected here, not discovered mid-bracket.
func (s *RegistrationService) CheckIn(ctx context.Context, id uint) (*models.Registration, error) {
	reg, err := s.GetRegistration(id)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournaments.GetTournamentByID(reg.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Frozen {
		return nil, &errs.FrozenError{TournamentID: tournament.ID, Reason: tournament.FreezeReason}
	}
	if tournament.Status != models.TournamentOpen && tournament.Status != models.TournamentLocked {
		return nil, errs.Policyf("check-in is not available while tournament %d is %s", tournament.ID, tournament.Status)
	}
	now := time.Now()
	if tournament.CheckInClosesAt != nil && now.After(*tournament.CheckInClosesAt) {
		return nil, errs.Policyf("check-in for tournament %d closed at %s", tournament.ID, tournament.CheckInClosesAt.Format(time.RFC3339))
	}

	module, err := s.registry.Get(tournament.GameModuleID)
	if err != nil {
		return nil, err
	}
	roster, err := s.rosters.GetRoster(ctx, reg.CompetitorRef)
	if err != nil {
		return nil, err
	}
	if err := validateRoster(module, roster); err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(roster)
	if err != nil {
		return nil, err
	}

	if err := reg.Transition(models.RegistrationCheckedIn, now); err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Registration{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.RegistrationCheckedIn,
			"roster_snapshot": snapshot,
			"checked_in_at":   now,
		}).Error; err != nil {
		return nil, err
	}
	reg.RosterSnapshot = snapshot
	return reg, nil
}

func validateRoster(module gamemodule.GameModule, roster *external.Roster) error {
	cfg := module.TeamConfig()
	if len(roster.Players) < cfg.MinSize {
		return errs.Policyf("roster for %q has %d players, needs at least %d", roster.CompetitorRef, len(roster.Players), cfg.MinSize)
	}
	if cfg.MaxSize > 0 && len(roster.Players) > cfg.MaxSize {
		return errs.Policyf("roster for %q has %d players, allows at most %d", roster.CompetitorRef, len(roster.Players), cfg.MaxSize)
	}
	for _, ident := range module.RequiredPlayerIdentifiers() {
		if !ident.Required {
			continue
		}
		for _, player := range roster.Players {
			if player.Identifiers[ident.Name] == "" {
				return errs.Policyf("player %q is missing required identifier %q", player.Ref, ident.Name)
			}
		}
	}
	return nil
}

// Withdraw removes a competitor. Before the tournament starts the slot
// simply frees up; afterwards every live match they are in resolves as
// a forfeit.
func (s *RegistrationService) Withdraw(id uint) (*models.Registration, error) {
	return s.remove(id, models.RegistrationWithdrawn)
}

// Disqualify is an organizer-initiated removal with forfeit semantics
// identical to withdrawal.
func (s *RegistrationService) Disqualify(id uint) (*models.Registration, error) {
	return s.remove(id, models.RegistrationDisqualified)
}

func (s *RegistrationService) remove(id uint, to string) (*models.Registration, error) {
	reg, err := s.GetRegistration(id)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournaments.GetTournamentByID(reg.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Frozen {
		return nil, &errs.FrozenError{TournamentID: tournament.ID, Reason: tournament.FreezeReason}
	}
	if err := reg.Transition(to, time.Now()); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Registration{}).Where("id = ?", id).
			Update("status", to).Error; err != nil {
			return err
		}
		if tournament.Status == models.TournamentInProgress {
			return s.tournaments.forfeitRegistration(tx, tournament, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}
