package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"engine/errs"
	"engine/models"
)

func TestSubmitResultStaleVersionThenRetry(t *testing.T) {
	e := newTestEngine(t)
	tournament, _ := e.startedDuel(t, "single_elim", 2, nil)

	m := e.readyMatch(t, tournament.ID)
	home := e.competitorRef(t, *m.HomeRegistrationID)
	payload := json.RawMessage(`{"home_score": 2, "away_score": 0}`)

	_, err := e.matches.SubmitResult(m.ID, home, models.SubmitResultRequest{
		Payload: payload,
		Version: m.Version - 1,
	})
	if !errs.IsConflict(err) {
		t.Fatalf("stale submit returned %v, want conflict", err)
	}
	var conflict *errs.ConflictError
	if errors.As(err, &conflict) && conflict.Actual != m.Version {
		t.Errorf("conflict reports current version %d, match is at %d", conflict.Actual, m.Version)
	}

	// The conflict must leave the match untouched; a re-read and retry
	// with the current version succeeds.
	current, err := e.matches.GetMatch(m.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if current.Status != models.MatchReady || current.Version != m.Version {
		t.Fatalf("match changed after failed submit: status %s version %d", current.Status, current.Version)
	}

	submitted, err := e.matches.SubmitResult(m.ID, home, models.SubmitResultRequest{
		Payload: payload,
		Version: current.Version,
	})
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if submitted.Status != models.MatchPendingResult {
		t.Errorf("status after retry = %s, want %s", submitted.Status, models.MatchPendingResult)
	}
}

func TestAutoConfirmExpired(t *testing.T) {
	e := newTestEngine(t)
	tournament, _ := e.startedDuel(t, "single_elim", 2, nil)

	m := e.readyMatch(t, tournament.ID)
	home := e.competitorRef(t, *m.HomeRegistrationID)
	if _, err := e.matches.SubmitResult(m.ID, home, models.SubmitResultRequest{
		Payload: json.RawMessage(`{"home_score": 1, "away_score": 0}`),
		Version: m.Version,
	}); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}

	// Still inside the confirmation window: nothing to confirm.
	confirmed, err := e.matches.AutoConfirmExpired()
	if err != nil {
		t.Fatalf("AutoConfirmExpired: %v", err)
	}
	if confirmed != 0 {
		t.Fatalf("auto-confirmed %d matches inside the window", confirmed)
	}

	stale := time.Now().Add(-time.Hour)
	if err := e.db.Model(&models.Match{}).Where("id = ?", m.ID).
		Update("submitted_at", stale).Error; err != nil {
		t.Fatalf("backdating submission: %v", err)
	}

	confirmed, err = e.matches.AutoConfirmExpired()
	if err != nil {
		t.Fatalf("AutoConfirmExpired: %v", err)
	}
	if confirmed != 1 {
		t.Fatalf("auto-confirmed %d matches, want 1", confirmed)
	}

	final, err := e.matches.GetMatch(m.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if final.Status != models.MatchCompleted {
		t.Errorf("match status = %s, want %s", final.Status, models.MatchCompleted)
	}
	if final.WinnerRegistrationID == nil || *final.WinnerRegistrationID != *m.HomeRegistrationID {
		t.Errorf("winner = %v, want home registration %d", final.WinnerRegistrationID, *m.HomeRegistrationID)
	}

	// The final auto-confirming finishes the two-player bracket.
	if got := e.reloadTournament(t, tournament.ID).Status; got != models.TournamentCompleted {
		t.Errorf("tournament status = %s, want %s", got, models.TournamentCompleted)
	}
}

func TestStartMatchMarksLive(t *testing.T) {
	e := newTestEngine(t)
	tournament, _ := e.startedDuel(t, "single_elim", 2, nil)

	m := e.readyMatch(t, tournament.ID)
	live, err := e.matches.StartMatch(m.ID, models.StartMatchRequest{Version: m.Version})
	if err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	if live.Status != models.MatchLive {
		t.Fatalf("status = %s, want %s", live.Status, models.MatchLive)
	}
	if live.StartedAt == nil {
		t.Error("StartedAt not stamped")
	}
	if live.Version != m.Version+1 {
		t.Errorf("version = %d, want %d", live.Version, m.Version+1)
	}

	// Starting again is a policy error, not a silent no-op.
	if _, err := e.matches.StartMatch(m.ID, models.StartMatchRequest{Version: live.Version}); !errs.IsPolicy(err) {
		t.Errorf("second start returned %v, want policy violation", err)
	}

	// A live match accepts a result like a ready one.
	home := e.competitorRef(t, *live.HomeRegistrationID)
	submitted, err := e.matches.SubmitResult(m.ID, home, models.SubmitResultRequest{
		Payload: json.RawMessage(`{"home_score": 3, "away_score": 2}`),
		Version: live.Version,
	})
	if err != nil {
		t.Fatalf("SubmitResult from live: %v", err)
	}
	if submitted.Status != models.MatchPendingResult {
		t.Errorf("status after submit = %s, want %s", submitted.Status, models.MatchPendingResult)
	}
}
