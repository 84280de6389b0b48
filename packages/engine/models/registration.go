package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"engine/errs"
)

// Registration states.
const (
	RegistrationPending      = "pending"
	RegistrationApproved     = "approved"
	RegistrationCheckedIn    = "checked_in"
	RegistrationWithdrawn    = "withdrawn"
	RegistrationDisqualified = "disqualified"
)

var registrationTransitions = map[string][]string{
	RegistrationPending:      {RegistrationApproved, RegistrationWithdrawn, RegistrationDisqualified},
	RegistrationApproved:     {RegistrationCheckedIn, RegistrationWithdrawn, RegistrationDisqualified},
	RegistrationCheckedIn:    {RegistrationWithdrawn, RegistrationDisqualified},
	RegistrationWithdrawn:    {},
	RegistrationDisqualified: {},
}

type Registration struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint   `gorm:"not null;uniqueIndex:idx_tournament_competitor;constraint:OnDelete:CASCADE" json:"tournament_id"`
	CompetitorRef string `gorm:"size:128;not null;uniqueIndex:idx_tournament_competitor" json:"competitor_ref"`
	DisplayName  string `gorm:"size:255;not null" json:"display_name"`
	Status       string `gorm:"size:20;not null;default:pending" json:"status"`

	// Seed is assigned at lock time; 0 means unseeded.
	Seed int `gorm:"default:0" json:"seed"`

	// RosterSnapshot is the roster as fetched from the roster provider
	// at check-in, frozen so later roster edits cannot change who was
	// eligible.
	RosterSnapshot json.RawMessage `gorm:"type:jsonb" json:"roster_snapshot,omitempty"`

	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Tournament Tournament `gorm:"foreignKey:TournamentID;references:ID" json:"tournament,omitempty"`
}

func (Registration) TableName() string {
	return "registrations"
}

// Active reports whether the registration still occupies a slot.
func (r *Registration) Active() bool {
	return r.Status != RegistrationWithdrawn && r.Status != RegistrationDisqualified
}

func (r *Registration) CanTransition(to string) bool {
	for _, allowed := range registrationTransitions[r.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the registration to a new status or fails with a
// policy violation.
func (r *Registration) Transition(to string, now time.Time) error {
	if !r.CanTransition(to) {
		return errs.Policyf("registration %d cannot go from %s to %s", r.ID, r.Status, to)
	}
	r.Status = to
	if to == RegistrationCheckedIn {
		r.CheckedInAt = &now
	}
	return nil
}

// DTOs

type CreateRegistrationRequest struct {
	CompetitorRef string `json:"competitor_ref" binding:"required"`
	DisplayName   string `json:"display_name" binding:"required"`
}

type PaginatedRegistrationResponse struct {
	Data       []Registration `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}
