package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"engine/errs"
)

// Match states.
const (
	MatchScheduled     = "scheduled"
	MatchReady         = "ready"
	MatchLive          = "live"
	MatchPendingResult = "pending_result"
	MatchCompleted     = "completed"
	MatchDisputed      = "disputed"
	MatchCancelled     = "cancelled"
)

// Slot indices; mirror the generator's convention.
const (
	MatchSlotHome = 0
	MatchSlotAway = 1
)

// The live state is informational: a result can be submitted from
// ready directly, so matches nobody flags as started still settle.
var matchTransitions = map[string][]string{
	MatchScheduled:     {MatchReady, MatchCancelled},
	MatchReady:         {MatchLive, MatchPendingResult, MatchCancelled},
	MatchLive:          {MatchPendingResult, MatchCancelled},
	MatchPendingResult: {MatchCompleted, MatchDisputed, MatchCancelled},
	MatchDisputed:      {MatchCompleted, MatchCancelled},
	MatchCompleted:     {},
	MatchCancelled:     {},
}

type Match struct {
	ID           uint `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"tournament_id"`
	BracketID    uint `gorm:"not null;index;constraint:OnDelete:CASCADE" json:"bracket_id"`

	Round    int    `gorm:"not null" json:"round"`
	Position int    `gorm:"not null" json:"position"`
	Section  string `gorm:"size:20" json:"section,omitempty"` // winners, losers, grand_final

	Status string `gorm:"size:20;not null;default:scheduled" json:"status"`

	// Version guards every mutation: writers send the version they
	// read, a mismatch is a conflict. Bumped on each transition.
	Version uint `gorm:"not null;default:1" json:"version"`

	HomeRegistrationID *uint `gorm:"index" json:"home_registration_id,omitempty"`
	AwayRegistrationID *uint `gorm:"index" json:"away_registration_id,omitempty"`

	// Bye flags mark slots that will never be filled. A match with a
	// bye slot completes by walkover as soon as the other slot fills.
	HomeBye bool `gorm:"default:false" json:"home_bye"`
	AwayBye bool `gorm:"default:false" json:"away_bye"`

	// Destination links within the bracket. Nil for the final.
	WinnerToID   *uint `json:"winner_to_id,omitempty"`
	WinnerToSlot int   `gorm:"default:0" json:"winner_to_slot"`
	LoserToID    *uint `json:"loser_to_id,omitempty"`
	LoserToSlot  int   `gorm:"default:0" json:"loser_to_slot"`

	WinnerRegistrationID *uint `gorm:"index" json:"winner_registration_id,omitempty"`

	// Raw result payload as submitted, kept for dispute review, plus
	// the normalized outcome from the game module.
	SubmittedPayload json.RawMessage `gorm:"type:jsonb" json:"submitted_payload,omitempty"`
	SubmittedBy      string          `gorm:"size:128" json:"submitted_by,omitempty"`
	ResultScore      string          `gorm:"size:64" json:"result_score,omitempty"`
	ResultMetadata   json.RawMessage `gorm:"type:jsonb" json:"result_metadata,omitempty"`

	// Void marks a completed match whose result was discarded by a
	// dispute resolution; its replay carries the slot forward.
	Void bool `gorm:"default:false" json:"void"`

	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DisputedAt  *time.Time `json:"disputed_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Tournament       Tournament    `gorm:"foreignKey:TournamentID;references:ID" json:"tournament,omitempty"`
	HomeRegistration *Registration `gorm:"foreignKey:HomeRegistrationID;references:ID" json:"home_registration,omitempty"`
	AwayRegistration *Registration `gorm:"foreignKey:AwayRegistrationID;references:ID" json:"away_registration,omitempty"`
}

func (Match) TableName() string {
	return "matches"
}

func (m *Match) CanTransition(to string) bool {
	for _, allowed := range matchTransitions[m.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition applies a guarded state change: the caller passes the
// version it observed, and a mismatch fails with a conflict before any
// state is touched. On success the version is bumped and the matching
// timestamp stamped. The persistence layer re-checks the version in
// the UPDATE's WHERE clause, so a concurrent writer loses there too.
func (m *Match) Transition(to string, observedVersion uint, now time.Time) error {
	if observedVersion != m.Version {
		return &errs.ConflictError{Entity: "match", ID: m.ID, Expected: observedVersion, Actual: m.Version}
	}
	if !m.CanTransition(to) {
		return errs.Policyf("match %d cannot go from %s to %s", m.ID, m.Status, to)
	}
	m.Status = to
	m.Version++
	switch to {
	case MatchReady:
		m.ReadyAt = &now
	case MatchLive:
		m.StartedAt = &now
	case MatchPendingResult:
		m.SubmittedAt = &now
	case MatchCompleted:
		m.CompletedAt = &now
	case MatchDisputed:
		m.DisputedAt = &now
	}
	return nil
}

// SlotFilled reports whether a slot holds a participant or is a bye.
func (m *Match) SlotFilled(slot int) bool {
	if slot == MatchSlotHome {
		return m.HomeRegistrationID != nil || m.HomeBye
	}
	return m.AwayRegistrationID != nil || m.AwayBye
}

// Walkover reports whether exactly one slot holds a participant and
// the other is a bye, which is the only shape that auto-completes.
func (m *Match) Walkover() bool {
	return (m.HomeBye && m.AwayRegistrationID != nil) ||
		(m.AwayBye && m.HomeRegistrationID != nil)
}

// DTOs

type StartMatchRequest struct {
	// Version the caller read before flagging the match as started.
	Version uint `json:"version" binding:"required"`
}

type SubmitResultRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
	// Version the submitter read before deciding to write.
	Version uint `json:"version" binding:"required"`
}

type ConfirmResultRequest struct {
	Version uint `json:"version" binding:"required"`
}

type PaginatedMatchResponse struct {
	Data       []Match `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}
