package models

import (
	"time"

	"gorm.io/gorm"
)

// Bracket is one generated stage of a tournament. Its topology lives
// in the matches referencing it; the row itself records what was
// generated and when.
type Bracket struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint   `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"tournament_id"`
	Stage        int    `gorm:"not null;default:1" json:"stage"`
	Format       string `gorm:"size:20;not null" json:"format"`
	Rounds       int    `gorm:"not null" json:"rounds"`

	// CurrentRound tracks incremental formats (swiss); full-topology
	// formats leave it at 0.
	CurrentRound int `gorm:"default:0" json:"current_round"`

	// GrandFinalMatchID points at the double-elimination grand final so
	// the bracket-reset check does not scan the stage.
	GrandFinalMatchID *uint `json:"grand_final_match_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Tournament Tournament `gorm:"foreignKey:TournamentID;references:ID" json:"tournament,omitempty"`
	Matches    []Match    `gorm:"foreignKey:BracketID" json:"matches,omitempty"`
}

func (Bracket) TableName() string {
	return "brackets"
}

// BracketResponse is the bracket with its matches grouped by round for
// rendering.
type BracketResponse struct {
	Bracket Bracket         `json:"bracket"`
	Rounds  map[int][]Match `json:"rounds"`
}
