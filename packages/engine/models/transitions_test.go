package models

import (
	"errors"
	"testing"
	"time"

	"engine/errs"
)

func TestTournamentTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{TournamentDraft, TournamentOpen, true},
		{TournamentDraft, TournamentInProgress, false},
		{TournamentOpen, TournamentLocked, true},
		{TournamentLocked, TournamentInProgress, true},
		{TournamentInProgress, TournamentCompleted, true},
		{TournamentInProgress, TournamentOpen, false},
		{TournamentCompleted, TournamentCancelled, false},
		{TournamentCancelled, TournamentOpen, false},
		{TournamentOpen, TournamentCancelled, true},
	}
	for _, tt := range tests {
		trn := &Tournament{ID: 1, Status: tt.from}
		err := trn.Transition(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok {
			if err == nil {
				t.Errorf("%s -> %s: expected policy violation", tt.from, tt.to)
			} else if !errs.IsPolicy(err) {
				t.Errorf("%s -> %s: got %T, want policy violation", tt.from, tt.to, err)
			}
		}
	}
}

func TestFrozenTournamentOnlyCancels(t *testing.T) {
	trn := &Tournament{ID: 1, Status: TournamentInProgress, Frozen: true, FreezeReason: "bracket inconsistency"}

	var frozen *errs.FrozenError
	if err := trn.Transition(TournamentCompleted); !errors.As(err, &frozen) {
		t.Fatalf("expected FrozenError, got %v", err)
	}
	if err := trn.Transition(TournamentCancelled); err != nil {
		t.Fatalf("frozen tournament refused cancellation: %v", err)
	}
}

func TestRegistrationTransitions(t *testing.T) {
	now := time.Now()

	reg := &Registration{ID: 7, Status: RegistrationPending}
	if err := reg.Transition(RegistrationApproved, now); err != nil {
		t.Fatalf("pending -> approved: %v", err)
	}
	if err := reg.Transition(RegistrationCheckedIn, now); err != nil {
		t.Fatalf("approved -> checked_in: %v", err)
	}
	if reg.CheckedInAt == nil {
		t.Errorf("check-in did not stamp CheckedInAt")
	}
	if err := reg.Transition(RegistrationApproved, now); err == nil {
		t.Errorf("checked_in -> approved accepted")
	}

	// Withdrawal and disqualification work from every live state.
	for _, from := range []string{RegistrationPending, RegistrationApproved, RegistrationCheckedIn} {
		for _, to := range []string{RegistrationWithdrawn, RegistrationDisqualified} {
			r := &Registration{Status: from}
			if err := r.Transition(to, now); err != nil {
				t.Errorf("%s -> %s: %v", from, to, err)
			}
			if r.Active() {
				t.Errorf("%s registration still active", to)
			}
		}
	}
}

func TestMatchTransitionPath(t *testing.T) {
	now := time.Now()
	m := &Match{ID: 3, Status: MatchScheduled, Version: 1}

	steps := []string{MatchReady, MatchPendingResult, MatchCompleted}
	for _, to := range steps {
		if err := m.Transition(to, m.Version, now); err != nil {
			t.Fatalf("-> %s: %v", to, err)
		}
	}
	if m.Version != 4 {
		t.Errorf("version = %d after 3 transitions, want 4", m.Version)
	}
	if m.ReadyAt == nil || m.SubmittedAt == nil || m.CompletedAt == nil {
		t.Errorf("transition timestamps not stamped: %+v", m)
	}
	if err := m.Transition(MatchReady, m.Version, now); err == nil {
		t.Errorf("completed match accepted a transition")
	}
}

func TestMatchLivePath(t *testing.T) {
	now := time.Now()
	m := &Match{ID: 5, Status: MatchReady, Version: 2}

	if err := m.Transition(MatchLive, 2, now); err != nil {
		t.Fatalf("ready -> live: %v", err)
	}
	if m.StartedAt == nil {
		t.Errorf("start did not stamp StartedAt")
	}
	if err := m.Transition(MatchPendingResult, 3, now); err != nil {
		t.Fatalf("live -> pending_result: %v", err)
	}
	if err := m.Transition(MatchCompleted, 4, now); err != nil {
		t.Fatalf("pending_result -> completed: %v", err)
	}

	// The start signal is optional; a ready match submits directly too.
	m = &Match{Status: MatchReady, Version: 1}
	if err := m.Transition(MatchPendingResult, 1, now); err != nil {
		t.Fatalf("ready -> pending_result without start: %v", err)
	}

	if (&Match{Status: MatchScheduled}).CanTransition(MatchLive) {
		t.Errorf("scheduled match can be started")
	}
	if (&Match{Status: MatchLive}).CanTransition(MatchReady) {
		t.Errorf("live match can fall back to ready")
	}
	if !(&Match{Status: MatchLive}).CanTransition(MatchCancelled) {
		t.Errorf("live match cannot be cancelled")
	}
}

func TestMatchSkipsForbidden(t *testing.T) {
	now := time.Now()

	// A walkover still has to pass through the intermediate states;
	// scheduled can never jump straight to completed.
	m := &Match{Status: MatchScheduled, Version: 1}
	err := m.Transition(MatchCompleted, 1, now)
	if !errs.IsPolicy(err) {
		t.Fatalf("scheduled -> completed: got %v, want policy violation", err)
	}

	m = &Match{Status: MatchReady, Version: 1}
	if err := m.Transition(MatchDisputed, 1, now); !errs.IsPolicy(err) {
		t.Fatalf("ready -> disputed: got %v, want policy violation", err)
	}
}

func TestMatchVersionGuard(t *testing.T) {
	now := time.Now()
	m := &Match{ID: 9, Status: MatchPendingResult, Version: 4}

	err := m.Transition(MatchCompleted, 3, now)
	var conflict *errs.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("stale version accepted: %v", err)
	}
	if conflict.Expected != 3 || conflict.Actual != 4 {
		t.Errorf("conflict = %+v, want expected 3 actual 4", conflict)
	}
	if m.Status != MatchPendingResult || m.Version != 4 {
		t.Errorf("failed transition mutated the match: %+v", m)
	}

	if err := m.Transition(MatchCompleted, 4, now); err != nil {
		t.Fatalf("current version rejected: %v", err)
	}
}

func TestMatchDisputePath(t *testing.T) {
	now := time.Now()
	m := &Match{Status: MatchPendingResult, Version: 2}

	if err := m.Transition(MatchDisputed, 2, now); err != nil {
		t.Fatalf("pending_result -> disputed: %v", err)
	}
	if m.DisputedAt == nil {
		t.Errorf("dispute timestamp not stamped")
	}
	if err := m.Transition(MatchCompleted, 3, now); err != nil {
		t.Fatalf("disputed -> completed: %v", err)
	}
}

func TestMatchWalkoverShape(t *testing.T) {
	regID := uint(5)

	m := &Match{HomeRegistrationID: &regID, AwayBye: true}
	if !m.Walkover() {
		t.Errorf("filled-vs-bye not recognized as walkover")
	}
	if !m.SlotFilled(MatchSlotHome) || !m.SlotFilled(MatchSlotAway) {
		t.Errorf("walkover slots not both considered filled")
	}

	m = &Match{AwayBye: true}
	if m.Walkover() {
		t.Errorf("empty-vs-bye recognized as walkover")
	}
	m = &Match{HomeRegistrationID: &regID}
	if m.Walkover() {
		t.Errorf("half-filled match recognized as walkover")
	}
}

func TestStagePlanDecoding(t *testing.T) {
	trn := &Tournament{Format: "single_elim"}
	stages, err := trn.Stages()
	if err != nil || len(stages) != 1 || stages[0].Format != "single_elim" {
		t.Fatalf("default stage plan = %v, %v", stages, err)
	}

	trn.StagePlan = []byte(`[{"format":"swiss","advance":8},{"format":"single_elim"}]`)
	stages, err = trn.Stages()
	if err != nil {
		t.Fatalf("Stages returned error: %v", err)
	}
	if len(stages) != 2 || stages[0].Advance != 8 || stages[1].Format != "single_elim" {
		t.Errorf("stages = %+v", stages)
	}

	trn.StagePlan = []byte(`{not json`)
	if _, err := trn.Stages(); !errs.IsValidation(err) {
		t.Errorf("malformed stage plan accepted: %v", err)
	}
}

func TestPrizeTableDecoding(t *testing.T) {
	trn := &Tournament{}
	if lines, err := trn.Prizes(); err != nil || lines != nil {
		t.Fatalf("empty prize table = %v, %v", lines, err)
	}

	trn.PrizeTable = []byte(`[{"placement":1,"amount":5000},{"placement":2,"amount":2500}]`)
	lines, err := trn.Prizes()
	if err != nil {
		t.Fatalf("Prizes returned error: %v", err)
	}
	if len(lines) != 2 || lines[0].Amount != 5000 || lines[1].Placement != 2 {
		t.Errorf("prize lines = %+v", lines)
	}
}
