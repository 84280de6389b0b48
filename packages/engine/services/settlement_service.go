package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"engine/external"
	"engine/models"
	"engine/payout"
)

// SettlementService turns final placements into durable settlement
// records and drives their delivery to the economy and ranking
// collaborators. Enqueueing is transactional with tournament
// completion; delivery happens afterwards and is retried by the sweep
// until every record lands. Idempotency keys make both sides safe: the
// insert dedupes on the key, and collaborators treat a repeated key as
// already done.
type SettlementService struct {
	db       *gorm.DB
	economy  external.Economy
	ranking  external.Ranking
	notifier external.Notifier
}

func NewSettlementService(db *gorm.DB, economy external.Economy, ranking external.Ranking, notifier external.Notifier) *SettlementService {
	return &SettlementService{
		db:       db,
		economy:  economy,
		ranking:  ranking,
		notifier: notifier,
	}
}

// Enqueue writes one pending record per owed line inside the caller's
// transaction. Records that already exist (same idempotency key) are
// left untouched, so a re-completed tournament cannot double-book.
func (s *SettlementService) Enqueue(tx *gorm.DB, tournament *models.Tournament, placements []payout.Placement) error {
	prizeLines, err := tournament.Prizes()
	if err != nil {
		return err
	}
	prizes := make([]payout.Prize, len(prizeLines))
	for i, p := range prizeLines {
		prizes[i] = payout.Prize{Placement: p.Placement, Amount: p.Amount}
	}

	for _, line := range payout.BuildPlan(tournament.ID, placements, prizes) {
		var payload []byte
		switch line.Category {
		case payout.CategoryPrize, payout.CategoryParticipation:
			payload, err = json.Marshal(models.PrizePayload{Placement: line.Placement, Amount: line.Amount})
		default:
			payload, err = json.Marshal(models.RankingPayload{Placement: line.Placement, Delta: line.Delta})
		}
		if err != nil {
			return err
		}

		record := models.SettlementRecord{
			TournamentID:   tournament.ID,
			RegistrationID: line.RegistrationID,
			Category:       line.Category,
			IdempotencyKey: line.IdempotencyKey,
			Payload:        payload,
			Status:         models.SettlementPending,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeliverOutstanding pushes every undelivered record to its
// collaborator. tournamentID 0 means all tournaments. Failures are
// recorded on the record and do not stop the batch.
func (s *SettlementService) DeliverOutstanding(ctx context.Context, tournamentID uint) (delivered, failed int, err error) {
	query := s.db.Where("status IN ?", []string{models.SettlementPending, models.SettlementFailed})
	if tournamentID != 0 {
		query = query.Where("tournament_id = ?", tournamentID)
	}

	var records []models.SettlementRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return 0, 0, err
	}

	for i := range records {
		if err := s.deliver(ctx, &records[i]); err != nil {
			failed++
			continue
		}
		delivered++
	}
	return delivered, failed, nil
}

func (s *SettlementService) deliver(ctx context.Context, record *models.SettlementRecord) error {
	var reg models.Registration
	if err := s.db.Unscoped().First(&reg, record.RegistrationID).Error; err != nil {
		return s.markFailed(record, err)
	}

	var receipt external.Receipt
	var err error
	switch record.Category {
	case models.SettlementPrize, models.SettlementParticipation:
		var payload models.PrizePayload
		if err := json.Unmarshal(record.Payload, &payload); err != nil {
			return s.markFailed(record, err)
		}
		receipt, err = s.economy.Award(ctx, record.IdempotencyKey, reg.CompetitorRef, record.Category, payload.Amount)
	case models.SettlementRanking:
		var payload models.RankingPayload
		if err := json.Unmarshal(record.Payload, &payload); err != nil {
			return s.markFailed(record, err)
		}
		receipt, err = s.ranking.ApplyDelta(ctx, record.IdempotencyKey, reg.CompetitorRef, payload.Delta)
	default:
		// A record with a category nobody delivers must never be marked
		// delivered.
		return s.markFailed(record, fmt.Errorf("no deliverer for settlement category %q", record.Category))
	}
	if err != nil {
		return s.markFailed(record, err)
	}

	now := time.Now()
	if err := s.db.Model(&models.SettlementRecord{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":       models.SettlementDelivered,
			"attempts":     gorm.Expr("attempts + 1"),
			"external_ref": receipt.Ref,
			"last_error":   "",
			"delivered_at": now,
		}).Error; err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"category":        record.Category,
		"registration_id": record.RegistrationID,
		"duplicate":       receipt.Duplicate,
	})
	s.notifier.Publish(external.Event{
		Type:         external.EventSettlement,
		TournamentID: record.TournamentID,
		Payload:      payload,
		At:           now,
	})
	return nil
}

func (s *SettlementService) markFailed(record *models.SettlementRecord, cause error) error {
	if err := s.db.Model(&models.SettlementRecord{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":     models.SettlementFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		}).Error; err != nil {
		return err
	}
	return cause
}

// Records lists a tournament's settlement records.
func (s *SettlementService) Records(tournamentID uint) ([]models.SettlementRecord, error) {
	var records []models.SettlementRecord
	if err := s.db.Where("tournament_id = ?", tournamentID).
		Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
