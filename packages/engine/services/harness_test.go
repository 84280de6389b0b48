package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"engine/external"
	"engine/gamemodule"
	"engine/models"
)

// testEngine wires the full service graph against an in-memory sqlite
// database and in-memory collaborators. Each test gets its own
// database, keyed by the test name.
type testEngine struct {
	db            *gorm.DB
	tournaments   *TournamentService
	registrations *RegistrationService
	matches       *MatchService
	disputes      *DisputeService
	settlement    *SettlementService
	sweep         *SweepService

	economy *external.MemoryEconomy
	ranking *external.MemoryRanking
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	name := strings.NewReplacer("/", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.Registration{},
		&models.Bracket{},
		&models.Match{},
		&models.Dispute{},
		&models.DisputeEvidence{},
		&models.SettlementRecord{},
	); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	registry := gamemodule.NewRegistry()
	registry.Register("duel", gamemodule.NewHeadToHead(1))

	economy := external.NewMemoryEconomy()
	ranking := external.NewMemoryRanking()
	rosters := external.SyntheticRoster{Size: 1, IdentifierNames: []string{"gamertag"}}
	notifier := external.NopNotifier{}

	settlement := NewSettlementService(db, economy, ranking, notifier)
	tournaments := NewTournamentService(db, registry, notifier, settlement)
	registrations := NewRegistrationService(db, registry, rosters, notifier, tournaments)
	matches := NewMatchService(db, registry, notifier, tournaments)
	disputes := NewDisputeService(db, notifier, tournaments, matches)
	sweep := NewSweepService(db, tournaments, registrations, matches, disputes, settlement)

	return &testEngine{
		db:            db,
		tournaments:   tournaments,
		registrations: registrations,
		matches:       matches,
		disputes:      disputes,
		settlement:    settlement,
		sweep:         sweep,
		economy:       economy,
		ranking:       ranking,
	}
}

// createOpenDuel creates a tournament for the duel module and opens
// registration. mutate, when non-nil, adjusts the request first.
func (e *testEngine) createOpenDuel(t *testing.T, format string, mutate func(*models.CreateTournamentRequest)) *models.Tournament {
	t.Helper()
	req := models.CreateTournamentRequest{
		Name:         fmt.Sprintf("%s cup", t.Name()),
		GameModuleID: "duel",
		Format:       format,
	}
	if mutate != nil {
		mutate(&req)
	}
	tournament, err := e.tournaments.CreateTournament(req)
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	if _, err := e.tournaments.OpenRegistration(tournament.ID); err != nil {
		t.Fatalf("OpenRegistration: %v", err)
	}
	return tournament
}

// enrollPlayers registers, approves and checks in n competitors named
// p1..pn, in order.
func (e *testEngine) enrollPlayers(t *testing.T, tournamentID uint, n int) []*models.Registration {
	t.Helper()
	regs := make([]*models.Registration, n)
	for i := 0; i < n; i++ {
		ref := fmt.Sprintf("p%d", i+1)
		reg, err := e.registrations.Register(tournamentID, models.CreateRegistrationRequest{
			CompetitorRef: ref,
			DisplayName:   strings.ToUpper(ref),
		})
		if err != nil {
			t.Fatalf("Register %s: %v", ref, err)
		}
		if _, err := e.registrations.Approve(reg.ID); err != nil {
			t.Fatalf("Approve %s: %v", ref, err)
		}
		if reg, err = e.registrations.CheckIn(context.Background(), reg.ID); err != nil {
			t.Fatalf("CheckIn %s: %v", ref, err)
		}
		regs[i] = reg
	}
	return regs
}

// startedDuel runs a fresh tournament through registration, check-in,
// lock and start with n competitors.
func (e *testEngine) startedDuel(t *testing.T, format string, n int, mutate func(*models.CreateTournamentRequest)) (*models.Tournament, []*models.Registration) {
	t.Helper()
	tournament := e.createOpenDuel(t, format, mutate)
	regs := e.enrollPlayers(t, tournament.ID, n)
	if _, err := e.tournaments.Lock(tournament.ID); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	tournament, err := e.tournaments.Start(tournament.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return tournament, regs
}

// readyMatch returns the first ready match of a tournament.
func (e *testEngine) readyMatch(t *testing.T, tournamentID uint) *models.Match {
	t.Helper()
	var m models.Match
	if err := e.db.Where("tournament_id = ? AND status = ?", tournamentID, models.MatchReady).
		Order("round ASC, position ASC").First(&m).Error; err != nil {
		t.Fatalf("no ready match in tournament %d: %v", tournamentID, err)
	}
	return &m
}

// competitorRef resolves a registration id to its competitor ref.
func (e *testEngine) competitorRef(t *testing.T, regID uint) string {
	t.Helper()
	var reg models.Registration
	if err := e.db.First(&reg, regID).Error; err != nil {
		t.Fatalf("registration %d: %v", regID, err)
	}
	return reg.CompetitorRef
}

// playMatch submits a home win on a ready match and confirms it as the
// away participant.
func (e *testEngine) playMatch(t *testing.T, m *models.Match) {
	t.Helper()
	home := e.competitorRef(t, *m.HomeRegistrationID)
	away := e.competitorRef(t, *m.AwayRegistrationID)

	submitted, err := e.matches.SubmitResult(m.ID, home, models.SubmitResultRequest{
		Payload: json.RawMessage(`{"home_score": 2, "away_score": 1}`),
		Version: m.Version,
	})
	if err != nil {
		t.Fatalf("SubmitResult match %d: %v", m.ID, err)
	}
	if _, err := e.matches.ConfirmResult(m.ID, away, models.ConfirmResultRequest{
		Version: submitted.Version,
	}); err != nil {
		t.Fatalf("ConfirmResult match %d: %v", m.ID, err)
	}
}

// reloadTournament fetches the current tournament row.
func (e *testEngine) reloadTournament(t *testing.T, id uint) *models.Tournament {
	t.Helper()
	tournament, err := e.tournaments.GetTournamentByID(id)
	if err != nil {
		t.Fatalf("GetTournamentByID %d: %v", id, err)
	}
	return tournament
}
