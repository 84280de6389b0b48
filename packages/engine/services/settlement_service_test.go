package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"engine/models"
	"engine/payout"
)

func TestSettlementDeliveryFailsThenRetries(t *testing.T) {
	e := newTestEngine(t)
	tournament, _ := e.startedDuel(t, "single_elim", 2, func(req *models.CreateTournamentRequest) {
		req.PrizeTable = json.RawMessage(`[{"placement": 1, "amount": 1000}]`)
	})

	e.playMatch(t, e.readyMatch(t, tournament.ID))
	if got := e.reloadTournament(t, tournament.ID).Status; got != models.TournamentCompleted {
		t.Fatalf("tournament status = %s, want %s", got, models.TournamentCompleted)
	}

	records, err := e.settlement.Records(tournament.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	// Two finishers owe a ranking delta and a participation credit
	// each; the prize table adds one line for first place.
	if len(records) != 5 {
		t.Fatalf("enqueued %d settlement records, want 5", len(records))
	}

	ctx := context.Background()
	e.economy.Err = errors.New("economy unavailable")

	delivered, failed, err := e.settlement.DeliverOutstanding(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("DeliverOutstanding: %v", err)
	}
	if delivered != 2 || failed != 3 {
		t.Fatalf("with economy down: delivered %d failed %d, want 2 and 3", delivered, failed)
	}

	e.economy.Err = nil
	delivered, failed, err = e.settlement.DeliverOutstanding(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("DeliverOutstanding retry: %v", err)
	}
	if delivered != 3 || failed != 0 {
		t.Fatalf("retry: delivered %d failed %d, want 3 and 0", delivered, failed)
	}

	// Nothing outstanding remains; a further pass is a no-op.
	delivered, failed, err = e.settlement.DeliverOutstanding(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("DeliverOutstanding after drain: %v", err)
	}
	if delivered != 0 || failed != 0 {
		t.Fatalf("drained pass: delivered %d failed %d, want none", delivered, failed)
	}

	records, err = e.settlement.Records(tournament.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	for _, record := range records {
		if record.Status != models.SettlementDelivered {
			t.Errorf("record %d (%s) status = %s, want %s", record.ID, record.Category, record.Status, models.SettlementDelivered)
		}
		if record.ExternalRef == "" {
			t.Errorf("record %d (%s) has no external ref", record.ID, record.Category)
		}
		wantAttempts := 1
		if record.Category != models.SettlementRanking {
			wantAttempts = 2 // failed once while the economy was down
		}
		if record.Attempts != wantAttempts {
			t.Errorf("record %d (%s) attempts = %d, want %d", record.ID, record.Category, record.Attempts, wantAttempts)
		}
	}

	// The winner is credited exactly once despite the failed attempt.
	if got := e.economy.Balance("p1"); got != 1000+payout.ParticipationCredit {
		t.Errorf("winner balance = %d, want %d", got, 1000+payout.ParticipationCredit)
	}
	if got := e.economy.Balance("p2"); got != payout.ParticipationCredit {
		t.Errorf("runner-up balance = %d, want %d", got, payout.ParticipationCredit)
	}
}

func TestSettlementRecordsSurviveRepeatCompletion(t *testing.T) {
	e := newTestEngine(t)
	tournament, _ := e.startedDuel(t, "single_elim", 2, nil)
	e.playMatch(t, e.readyMatch(t, tournament.ID))

	records, err := e.settlement.Records(tournament.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	before := len(records)
	if before == 0 {
		t.Fatal("no settlement records enqueued")
	}

	// Re-running enqueue with the same placements must not add rows;
	// the idempotency keys collide and the inserts are skipped.
	full := e.reloadTournament(t, tournament.ID)
	var placements []payout.Placement
	for _, record := range records {
		if record.Category != models.SettlementRanking {
			continue
		}
		var payload models.RankingPayload
		if err := json.Unmarshal(record.Payload, &payload); err != nil {
			t.Fatalf("decoding ranking payload: %v", err)
		}
		placements = append(placements, payout.Placement{
			RegistrationID: record.RegistrationID,
			CompetitorRef:  e.competitorRef(t, record.RegistrationID),
			Placement:      payload.Placement,
		})
	}
	if err := e.settlement.Enqueue(e.db, full, placements); err != nil {
		t.Fatalf("repeat Enqueue: %v", err)
	}

	records, err = e.settlement.Records(tournament.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != before {
		t.Errorf("repeat enqueue grew records from %d to %d", before, len(records))
	}
}
