// Package external defines the engine's outbound collaborator
// contracts. The engine never talks to an economy, ranking or roster
// system directly; it goes through these interfaces so deployments can
// plug in real clients while tests and the demo binary run on the
// in-memory versions.
package external

import (
	"context"
	"encoding/json"
	"time"
)

// Receipt acknowledges a delivery. Duplicate means the collaborator
// had already seen this idempotency key and performed nothing new;
// the engine treats that as success.
type Receipt struct {
	Ref       string
	Duplicate bool
}

// Economy credits amounts to competitors. Category tells the economy
// what the credit is (prize, participation); Award must be idempotent
// on the key.
type Economy interface {
	Award(ctx context.Context, idempotencyKey, competitorRef, category string, amount int64) (Receipt, error)
}

// Ranking applies rating deltas to competitors. ApplyDelta must be
// idempotent on the key.
type Ranking interface {
	ApplyDelta(ctx context.Context, idempotencyKey, competitorRef string, delta int) (Receipt, error)
}

// RosterPlayer is one member of a competitor's roster.
type RosterPlayer struct {
	Ref         string            `json:"ref"`
	DisplayName string            `json:"display_name"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
}

// Roster is a competitor's lineup as the roster system knows it.
type Roster struct {
	CompetitorRef string         `json:"competitor_ref"`
	Players       []RosterPlayer `json:"players"`
}

// RosterProvider resolves a competitor reference to its current
// roster. Check-in snapshots the result.
type RosterProvider interface {
	GetRoster(ctx context.Context, competitorRef string) (*Roster, error)
}

// Event is a domain notification fanned out to spectators.
type Event struct {
	Type         string          `json:"type"`
	TournamentID uint            `json:"tournament_id"`
	MatchID      uint            `json:"match_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	At           time.Time       `json:"at"`
}

// Event types.
const (
	EventTournamentStatus = "tournament.status"
	EventMatchStatus      = "match.status"
	EventMatchResult      = "match.result"
	EventDisputeOpened    = "dispute.opened"
	EventDisputeResolved  = "dispute.resolved"
	EventSettlement       = "settlement.delivered"
)

// Notifier publishes events. Publish must never block the caller.
type Notifier interface {
	Publish(event Event)
}

// NopNotifier drops everything; useful where no fanout is wired.
type NopNotifier struct{}

func (NopNotifier) Publish(Event) {}
