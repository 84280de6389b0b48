// Package gamemodule holds the pluggable per-game rule contract and
// the process-wide registry. All game-specific behavior (team shape,
// identifier requirements, result semantics, settings schema) lives in
// a GameModule implementation; the engine core never branches on a
// game identifier.
package gamemodule

import "encoding/json"

// TeamConfig describes the competitor shape a game accepts.
type TeamConfig struct {
	MinSize            int  `json:"min_size"`
	MaxSize            int  `json:"max_size"`
	AllowsSubstitution bool `json:"allows_substitution"`
}

// PlayerIdentifier is one in-game identifier a roster member must
// provide (gamertag, platform id, ...).
type PlayerIdentifier struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

type SettingType string

const (
	SettingString SettingType = "string"
	SettingInt    SettingType = "int"
	SettingBool   SettingType = "bool"
	SettingEnum   SettingType = "enum"
)

// SettingDef is one entry of a game's tournament-settings schema.
type SettingDef struct {
	Key     string      `json:"key"`
	Type    SettingType `json:"type"`
	Options []string    `json:"options,omitempty"`
	Default string      `json:"default,omitempty"`
}

// NormalizedResult is the engine-facing shape of any match outcome.
// WinnerSlot is 0 for the home slot, 1 for the away slot. Draws are
// not representable: a module whose scoring can tie must break the tie
// in ParseResult or reject the payload.
type NormalizedResult struct {
	WinnerSlot int               `json:"winner_slot"`
	Score      string            `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// GameModule encapsulates one game's rules. Implementations are
// immutable at runtime and registered once at process start.
//
// ParseResult must be total over the declared payload schema: every
// well-formed payload yields a result, everything else yields a
// validation error. It must never silently default missing fields.
type GameModule interface {
	TeamConfig() TeamConfig
	RequiredPlayerIdentifiers() []PlayerIdentifier
	ParseResult(raw json.RawMessage) (*NormalizedResult, error)
	SettingsSchema() []SettingDef
}
