package services

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"engine/models"
)

// SweepService is the engine's clock. Every deadline-driven behavior
// runs here: closing registration, starting due tournaments,
// auto-confirming unconfirmed results, force-resolving expired
// disputes, and retrying undelivered settlements. Each pass is safe to
// repeat; everything it touches is guarded by state checks or
// idempotency keys.
type SweepService struct {
	db            *gorm.DB
	tournaments   *TournamentService
	registrations *RegistrationService
	matches       *MatchService
	disputes      *DisputeService
	settlement    *SettlementService
}

func NewSweepService(db *gorm.DB, tournaments *TournamentService, registrations *RegistrationService, matches *MatchService, disputes *DisputeService, settlement *SettlementService) *SweepService {
	return &SweepService{
		db:            db,
		tournaments:   tournaments,
		registrations: registrations,
		matches:       matches,
		disputes:      disputes,
		settlement:    settlement,
	}
}

// Run executes one full sweep pass.
func (s *SweepService) Run(ctx context.Context) {
	s.lockDueTournaments()
	s.closeExpiredCheckIns()
	s.startDueTournaments()

	if confirmed, err := s.matches.AutoConfirmExpired(); err != nil {
		log.Printf("sweep: auto-confirm: %v", err)
	} else if confirmed > 0 {
		log.Printf("sweep: auto-confirmed %d matches", confirmed)
	}

	if resolved, err := s.disputes.ResolveExpired(); err != nil {
		log.Printf("sweep: dispute deadlines: %v", err)
	} else if resolved > 0 {
		log.Printf("sweep: force-resolved %d disputes", resolved)
	}

	delivered, failed, err := s.settlement.DeliverOutstanding(ctx, 0)
	if err != nil {
		log.Printf("sweep: settlement delivery: %v", err)
	} else if delivered > 0 || failed > 0 {
		log.Printf("sweep: delivered %d settlements, %d failed", delivered, failed)
	}
}

func (s *SweepService) lockDueTournaments() {
	var due []models.Tournament
	if err := s.db.Where("status = ? AND frozen = ? AND registration_closes_at IS NOT NULL AND registration_closes_at < ?",
		models.TournamentOpen, false, time.Now()).
		Find(&due).Error; err != nil {
		log.Printf("sweep: finding tournaments to lock: %v", err)
		return
	}
	for _, t := range due {
		if _, err := s.tournaments.Lock(t.ID); err != nil {
			log.Printf("sweep: locking tournament %d: %v", t.ID, err)
			continue
		}
		log.Printf("sweep: locked tournament %d (registration closed)", t.ID)
	}
}

// closeExpiredCheckIns disqualifies every registration that has not
// checked in by its tournament's check-in deadline, so the field that
// reaches Start holds only checked-in participants.
func (s *SweepService) closeExpiredCheckIns() {
	var due []models.Tournament
	if err := s.db.Where("status IN ? AND frozen = ? AND check_in_closes_at IS NOT NULL AND check_in_closes_at < ?",
		[]string{models.TournamentOpen, models.TournamentLocked}, false, time.Now()).
		Find(&due).Error; err != nil {
		log.Printf("sweep: finding tournaments past check-in close: %v", err)
		return
	}
	for _, t := range due {
		var missed []models.Registration
		if err := s.db.Where("tournament_id = ? AND status IN ?", t.ID,
			[]string{models.RegistrationPending, models.RegistrationApproved}).
			Find(&missed).Error; err != nil {
			log.Printf("sweep: finding unchecked registrations for tournament %d: %v", t.ID, err)
			continue
		}
		for _, reg := range missed {
			if _, err := s.registrations.Disqualify(reg.ID); err != nil {
				log.Printf("sweep: disqualifying registration %d: %v", reg.ID, err)
				continue
			}
			log.Printf("sweep: disqualified registration %d (missed check-in for tournament %d)", reg.ID, t.ID)
		}
	}
}

func (s *SweepService) startDueTournaments() {
	var due []models.Tournament
	if err := s.db.Where("status = ? AND frozen = ? AND starts_at IS NOT NULL AND starts_at < ?",
		models.TournamentLocked, false, time.Now()).
		Find(&due).Error; err != nil {
		log.Printf("sweep: finding tournaments to start: %v", err)
		return
	}
	for _, t := range due {
		if _, err := s.tournaments.Start(t.ID); err != nil {
			// Usually not enough checked-in participants; the operator
			// decides whether to extend or cancel.
			log.Printf("sweep: starting tournament %d: %v", t.ID, err)
			continue
		}
		log.Printf("sweep: started tournament %d", t.ID)
	}
}
