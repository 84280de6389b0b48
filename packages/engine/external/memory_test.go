package external

import (
	"context"
	"errors"
	"testing"

	"engine/errs"
)

func TestMemoryEconomyIdempotency(t *testing.T) {
	eco := NewMemoryEconomy()
	ctx := context.Background()

	first, err := eco.Award(ctx, "key-aaaaaaaa", "team:alpha", "prize", 5000)
	if err != nil {
		t.Fatalf("Award returned error: %v", err)
	}
	if first.Duplicate {
		t.Errorf("first award flagged duplicate")
	}

	second, err := eco.Award(ctx, "key-aaaaaaaa", "team:alpha", "prize", 5000)
	if err != nil {
		t.Fatalf("repeat award returned error: %v", err)
	}
	if !second.Duplicate {
		t.Errorf("repeat award not flagged duplicate")
	}
	if second.Ref != first.Ref {
		t.Errorf("duplicate receipt references %q, original was %q", second.Ref, first.Ref)
	}
	if got := eco.Balance("team:alpha"); got != 5000 {
		t.Errorf("balance = %d after duplicate award, want 5000", got)
	}
}

func TestMemoryEconomyFailure(t *testing.T) {
	eco := NewMemoryEconomy()
	eco.Err = errors.New("upstream down")

	_, err := eco.Award(context.Background(), "key-bbbbbbbb", "team:beta", "participation", 100)
	var collab *errs.CollaboratorError
	if !errors.As(err, &collab) || collab.Collaborator != "economy" {
		t.Fatalf("expected economy collaborator error, got %v", err)
	}

	// Clearing the fault lets the same key go through as a fresh award.
	eco.Err = nil
	receipt, err := eco.Award(context.Background(), "key-bbbbbbbb", "team:beta", "participation", 100)
	if err != nil || receipt.Duplicate {
		t.Fatalf("retry after failure = %+v, %v", receipt, err)
	}
}

func TestMemoryRankingIdempotency(t *testing.T) {
	rnk := NewMemoryRanking()
	ctx := context.Background()

	first, err := rnk.ApplyDelta(ctx, "key-cccccccc", "team:gamma", 24)
	if err != nil {
		t.Fatalf("ApplyDelta returned error: %v", err)
	}
	receipt, err := rnk.ApplyDelta(ctx, "key-cccccccc", "team:gamma", 24)
	if err != nil || !receipt.Duplicate {
		t.Fatalf("repeat delta = %+v, %v", receipt, err)
	}
	if receipt.Ref != first.Ref {
		t.Errorf("duplicate receipt references %q, original was %q", receipt.Ref, first.Ref)
	}
	if got := rnk.Rating("team:gamma"); got != 24 {
		t.Errorf("rating = %d, want 24", got)
	}
}

func TestMemoryRoster(t *testing.T) {
	provider := NewMemoryRoster()
	provider.Put(&Roster{
		CompetitorRef: "team:delta",
		Players: []RosterPlayer{
			{Ref: "p1", DisplayName: "One", Identifiers: map[string]string{"game_id": "d1"}},
			{Ref: "p2", DisplayName: "Two", Identifiers: map[string]string{"game_id": "d2"}},
		},
	})

	roster, err := provider.GetRoster(context.Background(), "team:delta")
	if err != nil {
		t.Fatalf("GetRoster returned error: %v", err)
	}
	if len(roster.Players) != 2 {
		t.Errorf("roster has %d players, want 2", len(roster.Players))
	}

	_, err = provider.GetRoster(context.Background(), "team:unknown")
	var collab *errs.CollaboratorError
	if !errors.As(err, &collab) || collab.Collaborator != "roster" {
		t.Fatalf("expected roster collaborator error, got %v", err)
	}
}
