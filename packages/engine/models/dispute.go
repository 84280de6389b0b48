package models

import (
	"time"

	"gorm.io/gorm"
)

// Dispute states and resolutions.
const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"

	ResolutionUphold   = "uphold"
	ResolutionOverturn = "overturn"
	ResolutionVoid     = "void"
)

type Dispute struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint   `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"tournament_id"`
	MatchID      uint   `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"match_id"`
	RaisedBy     string `gorm:"size:128;not null" json:"raised_by"`
	Reason       string `gorm:"type:text;not null" json:"reason"`
	Status       string `gorm:"size:20;not null;default:open" json:"status"`

	// DeadlineAt is when the sweep force-resolves an open dispute by
	// upholding the submitted result.
	DeadlineAt time.Time `gorm:"not null" json:"deadline_at"`

	Resolution     string     `gorm:"size:20" json:"resolution,omitempty"` // uphold, overturn, void
	ResolutionNote string     `gorm:"type:text" json:"resolution_note,omitempty"`
	ResolvedBy     string     `gorm:"size:128" json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Match    Match             `gorm:"foreignKey:MatchID;references:ID" json:"match,omitempty"`
	Evidence []DisputeEvidence `gorm:"foreignKey:DisputeID" json:"evidence,omitempty"`
}

func (Dispute) TableName() string {
	return "disputes"
}

type DisputeEvidence struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DisputeID   uint      `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"dispute_id"`
	SubmittedBy string    `gorm:"size:128;not null" json:"submitted_by"`
	Note        string    `gorm:"type:text" json:"note,omitempty"`
	URL         string    `gorm:"size:512" json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (DisputeEvidence) TableName() string {
	return "dispute_evidence"
}

// DTOs

type OpenDisputeRequest struct {
	RaisedBy string `json:"raised_by" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=uphold overturn void"`
	ResolvedBy string `json:"resolved_by" binding:"required"`
	Note       string `json:"note,omitempty"`
}

type AddEvidenceRequest struct {
	SubmittedBy string `json:"submitted_by" binding:"required"`
	Note        string `json:"note,omitempty"`
	URL         string `json:"url,omitempty"`
}
