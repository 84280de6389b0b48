package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Settlement record states and categories.
const (
	SettlementPending   = "pending"
	SettlementDelivered = "delivered"
	SettlementFailed    = "failed"

	SettlementPrize         = "prize"
	SettlementParticipation = "participation"
	SettlementRanking       = "ranking"
)

// SettlementRecord is one outbound effect of a finished tournament: a
// prize award, a participation credit or a ranking delta for one
// competitor. The idempotency
// key is derived deterministically from (tournament, competitor,
// category), so re-running settlement can never insert a duplicate and
// collaborators can dedupe on their side.
type SettlementRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID   uint   `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"tournament_id"`
	RegistrationID uint   `gorm:"not null;index" json:"registration_id"`
	Category       string `gorm:"size:20;not null" json:"category"` // prize, participation, ranking
	IdempotencyKey string `gorm:"size:64;not null;uniqueIndex" json:"idempotency_key"`

	// Payload is what gets delivered: amount for prizes, delta for
	// ranking adjustments.
	Payload json.RawMessage `gorm:"type:jsonb;not null" json:"payload"`

	Status      string     `gorm:"size:20;not null;default:pending" json:"status"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	ExternalRef string     `gorm:"size:128" json:"external_ref,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (SettlementRecord) TableName() string {
	return "settlement_records"
}

// PrizePayload and RankingPayload are the two payload shapes; the
// participation category reuses PrizePayload.
type PrizePayload struct {
	Placement int   `json:"placement"`
	Amount    int64 `json:"amount"`
}

type RankingPayload struct {
	Placement int `json:"placement"`
	Delta     int `json:"delta"`
}
