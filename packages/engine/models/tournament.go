package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"engine/errs"
)

// Tournament lifecycle states.
const (
	TournamentDraft      = "draft"
	TournamentOpen       = "open"
	TournamentLocked     = "locked"
	TournamentInProgress = "in_progress"
	TournamentCompleted  = "completed"
	TournamentCancelled  = "cancelled"
)

// Void policies applied when a dispute resolution voids a match.
const (
	VoidReplay           = "replay"
	VoidWalkoverHighSeed = "walkover_high_seed"
)

var tournamentTransitions = map[string][]string{
	TournamentDraft:      {TournamentOpen, TournamentCancelled},
	TournamentOpen:       {TournamentLocked, TournamentCancelled},
	TournamentLocked:     {TournamentInProgress, TournamentCancelled},
	TournamentInProgress: {TournamentCompleted, TournamentCancelled},
	TournamentCompleted:  {},
	TournamentCancelled:  {},
}

type Tournament struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"size:255;not null" json:"name"`
	Slug         string `gorm:"size:255;unique;not null" json:"slug"`
	GameModuleID string `gorm:"size:64;not null" json:"game_module_id"`
	Format       string `gorm:"size:20;not null" json:"format"` // single_elim, double_elim, round_robin, swiss
	Status       string `gorm:"size:20;not null;default:draft" json:"status"`
	Description  string `gorm:"type:text" json:"description"`

	// Frozen blocks every mutating operation except unfreeze and
	// cancel. Set when bracket generation or settlement hits an
	// inconsistency that needs operator eyes.
	Frozen       bool   `gorm:"default:false" json:"frozen"`
	FreezeReason string `gorm:"type:text" json:"freeze_reason,omitempty"`

	MinParticipants int `gorm:"default:2" json:"min_participants"`
	MaxParticipants int `gorm:"default:0" json:"max_participants"` // 0 means unlimited

	GameSettings json.RawMessage `gorm:"type:jsonb" json:"game_settings,omitempty"`

	// StagePlan describes multi-stage tournaments as an ordered list of
	// stages; empty means a single stage of Format. See StagePlanEntry.
	StagePlan json.RawMessage `gorm:"type:jsonb" json:"stage_plan,omitempty"`

	// CurrentStage is 1-based; 0 before the first stage starts.
	CurrentStage int `gorm:"default:0" json:"current_stage"`

	AutoConfirmMins     int    `gorm:"default:15" json:"auto_confirm_mins"`
	DisputeDeadlineMins int    `gorm:"default:60" json:"dispute_deadline_mins"`
	VoidPolicy          string `gorm:"size:32;not null;default:replay" json:"void_policy"`

	// PrizeTable maps final placement to an award amount, serialized as
	// an ordered list. Empty means no prizes.
	PrizeTable json.RawMessage `gorm:"type:jsonb" json:"prize_table,omitempty"`

	RegistrationClosesAt *time.Time `json:"registration_closes_at,omitempty"`
	CheckInClosesAt      *time.Time `json:"check_in_closes_at,omitempty"`
	StartsAt             *time.Time `json:"starts_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Registrations []Registration `gorm:"foreignKey:TournamentID" json:"registrations,omitempty"`
	Brackets      []Bracket      `gorm:"foreignKey:TournamentID" json:"brackets,omitempty"`
	Matches       []Match        `gorm:"foreignKey:TournamentID" json:"matches,omitempty"`
}

func (Tournament) TableName() string {
	return "tournaments"
}

// CanTransition reports whether the lifecycle allows moving to the
// given status.
func (t *Tournament) CanTransition(to string) bool {
	for _, allowed := range tournamentTransitions[t.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the tournament to a new status or fails with a
// policy violation. Frozen tournaments only accept cancellation.
func (t *Tournament) Transition(to string) error {
	if t.Frozen && to != TournamentCancelled {
		return &errs.FrozenError{TournamentID: t.ID, Reason: t.FreezeReason}
	}
	if !t.CanTransition(to) {
		return errs.Policyf("tournament %d cannot go from %s to %s", t.ID, t.Status, to)
	}
	t.Status = to
	return nil
}

// StagePlanEntry is one stage of a multi-stage tournament: a format
// plus how many participants advance out of it. Advance is 0 for the
// last stage.
type StagePlanEntry struct {
	Format  string `json:"format"`
	Advance int    `json:"advance"`
}

// Stages decodes the stage plan, defaulting to a single stage of the
// tournament's format.
func (t *Tournament) Stages() ([]StagePlanEntry, error) {
	if len(t.StagePlan) == 0 {
		return []StagePlanEntry{{Format: t.Format}}, nil
	}
	var stages []StagePlanEntry
	if err := json.Unmarshal(t.StagePlan, &stages); err != nil {
		return nil, errs.Validationf("malformed stage plan: %v", err)
	}
	if len(stages) == 0 {
		return []StagePlanEntry{{Format: t.Format}}, nil
	}
	return stages, nil
}

// PrizeLine is one row of the prize table.
type PrizeLine struct {
	Placement int   `json:"placement"`
	Amount    int64 `json:"amount"`
}

// Prizes decodes the prize table; an empty table is valid.
func (t *Tournament) Prizes() ([]PrizeLine, error) {
	if len(t.PrizeTable) == 0 {
		return nil, nil
	}
	var lines []PrizeLine
	if err := json.Unmarshal(t.PrizeTable, &lines); err != nil {
		return nil, errs.Validationf("malformed prize table: %v", err)
	}
	return lines, nil
}

// DTOs

type CreateTournamentRequest struct {
	Name                 string          `json:"name" binding:"required"`
	GameModuleID         string          `json:"game_module_id" binding:"required"`
	Format               string          `json:"format" binding:"required,oneof=single_elim double_elim round_robin swiss"`
	Description          string          `json:"description,omitempty"`
	MinParticipants      int             `json:"min_participants,omitempty"`
	MaxParticipants      int             `json:"max_participants,omitempty"`
	GameSettings         json.RawMessage `json:"game_settings,omitempty"`
	StagePlan            json.RawMessage `json:"stage_plan,omitempty"`
	AutoConfirmMins      int             `json:"auto_confirm_mins,omitempty"`
	DisputeDeadlineMins  int             `json:"dispute_deadline_mins,omitempty"`
	VoidPolicy           string          `json:"void_policy,omitempty" binding:"omitempty,oneof=replay walkover_high_seed"`
	PrizeTable           json.RawMessage `json:"prize_table,omitempty"`
	RegistrationClosesAt *time.Time      `json:"registration_closes_at,omitempty"`
	CheckInClosesAt      *time.Time      `json:"check_in_closes_at,omitempty"`
	StartsAt             *time.Time      `json:"starts_at,omitempty"`
}

type UpdateTournamentRequest struct {
	Name                 *string         `json:"name,omitempty"`
	Description          *string         `json:"description,omitempty"`
	MinParticipants      *int            `json:"min_participants,omitempty"`
	MaxParticipants      *int            `json:"max_participants,omitempty"`
	GameSettings         json.RawMessage `json:"game_settings,omitempty"`
	AutoConfirmMins      *int            `json:"auto_confirm_mins,omitempty"`
	DisputeDeadlineMins  *int            `json:"dispute_deadline_mins,omitempty"`
	VoidPolicy           *string         `json:"void_policy,omitempty" binding:"omitempty,oneof=replay walkover_high_seed"`
	PrizeTable           json.RawMessage `json:"prize_table,omitempty"`
	RegistrationClosesAt *time.Time      `json:"registration_closes_at,omitempty"`
	CheckInClosesAt      *time.Time      `json:"check_in_closes_at,omitempty"`
	StartsAt             *time.Time      `json:"starts_at,omitempty"`
}

type PaginatedTournamentResponse struct {
	Data       []Tournament `json:"data"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}

// StandingEntry is one row of a tournament's live standings.
type StandingEntry struct {
	RegistrationID uint   `json:"registration_id"`
	DisplayName    string `json:"display_name"`
	Seed           int    `json:"seed"`
	Wins           int    `json:"wins"`
	Losses         int    `json:"losses"`
	OppWins        int    `json:"opp_wins"`
	Placement      int    `json:"placement,omitempty"`
}
