package gamemodule

import (
	"encoding/json"
	"fmt"

	"engine/errs"
)

// HeadToHead is the reference GameModule for score-based head-to-head
// games. It is parameterized by team size so one implementation covers
// solo ladders and fixed-size squads.
type HeadToHead struct {
	teamSize int
}

func NewHeadToHead(teamSize int) *HeadToHead {
	if teamSize < 1 {
		teamSize = 1
	}
	return &HeadToHead{teamSize: teamSize}
}

func (h *HeadToHead) TeamConfig() TeamConfig {
	return TeamConfig{
		MinSize:            h.teamSize,
		MaxSize:            h.teamSize,
		AllowsSubstitution: h.teamSize > 1,
	}
}

func (h *HeadToHead) RequiredPlayerIdentifiers() []PlayerIdentifier {
	return []PlayerIdentifier{
		{Name: "gamertag", Label: "Gamertag", Required: true},
	}
}

func (h *HeadToHead) SettingsSchema() []SettingDef {
	return []SettingDef{
		{Key: "best_of", Type: SettingEnum, Options: []string{"1", "3", "5"}, Default: "1"},
		{Key: "map_pool", Type: SettingString},
		{Key: "overtime", Type: SettingBool, Default: "true"},
	}
}

type headToHeadPayload struct {
	HomeScore *int     `json:"home_score"`
	AwayScore *int     `json:"away_score"`
	Maps      []string `json:"maps,omitempty"`
}

// ParseResult accepts {"home_score": n, "away_score": m}. Both scores
// are required, must be non-negative, and must not tie: this module
// has no tiebreak of its own, so a drawn payload is rejected.
func (h *HeadToHead) ParseResult(raw json.RawMessage) (*NormalizedResult, error) {
	var payload headToHeadPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errs.Validationf("malformed result payload: %v", err)
	}
	if payload.HomeScore == nil || payload.AwayScore == nil {
		return nil, errs.Validationf("result payload requires home_score and away_score")
	}
	home, away := *payload.HomeScore, *payload.AwayScore
	if home < 0 || away < 0 {
		return nil, errs.Validationf("scores must be non-negative, got %d-%d", home, away)
	}
	if home == away {
		return nil, errs.Validationf("drawn score %d-%d is not allowed, replay or submit the tiebreak result", home, away)
	}

	winner := 0
	if away > home {
		winner = 1
	}
	result := &NormalizedResult{
		WinnerSlot: winner,
		Score:      fmt.Sprintf("%d-%d", home, away),
	}
	if len(payload.Maps) > 0 {
		result.Metadata = map[string]string{"maps": fmt.Sprintf("%v", payload.Maps)}
	}
	return result, nil
}
