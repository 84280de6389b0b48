package services

import (
	"testing"

	"engine/errs"
	"engine/models"
)

func TestGuardedStatusUpdateRejectsMovedStatus(t *testing.T) {
	e := newTestEngine(t)
	tournament := e.createOpenDuel(t, "single_elim", nil)

	// A writer that observed draft lost the race: the row is open now.
	err := e.tournaments.guardedStatusUpdate(e.db, tournament.ID, models.TournamentDraft,
		map[string]interface{}{"status": models.TournamentCancelled})
	if !errs.IsConflict(err) {
		t.Fatalf("guarded update on a moved status returned %v, want conflict", err)
	}
	if got := e.reloadTournament(t, tournament.ID).Status; got != models.TournamentOpen {
		t.Errorf("status = %s after rejected write, want %s", got, models.TournamentOpen)
	}

	// With the status it actually holds, the write lands.
	if err := e.tournaments.guardedStatusUpdate(e.db, tournament.ID, models.TournamentOpen,
		map[string]interface{}{"status": models.TournamentLocked}); err != nil {
		t.Fatalf("guarded update with current status: %v", err)
	}
	if got := e.reloadTournament(t, tournament.ID).Status; got != models.TournamentLocked {
		t.Errorf("status = %s, want %s", got, models.TournamentLocked)
	}
}

func TestStartTwiceBuildsOneStage(t *testing.T) {
	e := newTestEngine(t)
	tournament, _ := e.startedDuel(t, "single_elim", 2, nil)

	if _, err := e.tournaments.Start(tournament.ID); err == nil {
		t.Fatal("second start succeeded")
	}

	var brackets int64
	if err := e.db.Model(&models.Bracket{}).Where("tournament_id = ?", tournament.ID).
		Count(&brackets).Error; err != nil {
		t.Fatalf("counting brackets: %v", err)
	}
	if brackets != 1 {
		t.Errorf("tournament has %d stage brackets, want 1", brackets)
	}
}

func TestDoubleElimWalkoverPropagatesOnce(t *testing.T) {
	e := newTestEngine(t)

	// Five entrants in an eight-slot double elimination leave two byes
	// feeding the same losers match, which completes as a walkover the
	// moment the stage is built. Its bye must reach the next losers
	// round exactly once.
	tournament, _ := e.startedDuel(t, "double_elim", 5, nil)

	var doubleBye models.Match
	if err := e.db.Where("tournament_id = ? AND home_bye = ? AND away_bye = ?",
		tournament.ID, true, true).First(&doubleBye).Error; err != nil {
		t.Fatalf("no losers match with two byes: %v", err)
	}
	if doubleBye.Status != models.MatchCompleted {
		t.Fatalf("double-bye match status = %s, want %s", doubleBye.Status, models.MatchCompleted)
	}
	if doubleBye.WinnerRegistrationID != nil {
		t.Errorf("double-bye match has winner %d, want none", *doubleBye.WinnerRegistrationID)
	}
	if doubleBye.WinnerToID == nil {
		t.Fatal("double-bye match has no downstream slot")
	}

	var next models.Match
	if err := e.db.First(&next, *doubleBye.WinnerToID).Error; err != nil {
		t.Fatalf("downstream match: %v", err)
	}
	if next.Status != models.MatchScheduled {
		t.Fatalf("downstream match status = %s, want %s", next.Status, models.MatchScheduled)
	}
	if next.HomeBye == next.AwayBye {
		t.Errorf("downstream match byes home=%t away=%t, want exactly one", next.HomeBye, next.AwayBye)
	}
	// One slot filled means one version bump past the insert.
	if next.Version != 2 {
		t.Errorf("downstream match version = %d, want 2", next.Version)
	}
}
