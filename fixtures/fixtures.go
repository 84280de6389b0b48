package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"

	"engine"
	"engine/external"
	"engine/gamemodule"
	"engine/models"

	"gorm.io/gorm"
)

type Fixtures struct {
	db     *gorm.DB
	module *engine.Module
}

func NewFixtures(db *gorm.DB) *Fixtures {
	registry := gamemodule.NewRegistry()
	registry.Register("duel", gamemodule.NewHeadToHead(1))
	registry.Register("squad-5v5", gamemodule.NewHeadToHead(5))

	module := engine.NewModule(db, registry, engine.Collaborators{
		Economy: external.NewMemoryEconomy(),
		Ranking: external.NewMemoryRanking(),
		Rosters: external.SyntheticRoster{Size: 5, IdentifierNames: []string{"gamertag"}},
	})

	return &Fixtures{db: db, module: module}
}

// GenerateTestData creates three demo tournaments: one played to
// completion with settled prizes, one in progress, one open for
// registration. Everything goes through the real services so the data
// is shaped exactly like production traffic.
func (f *Fixtures) GenerateTestData() error {
	log.Println("Starting fixtures generation...")

	if err := f.generateFinishedTournament(); err != nil {
		return fmt.Errorf("failed to generate finished tournament: %w", err)
	}
	if err := f.generateOngoingTournament(); err != nil {
		return fmt.Errorf("failed to generate ongoing tournament: %w", err)
	}
	if err := f.generateOpenTournament(); err != nil {
		return fmt.Errorf("failed to generate open tournament: %w", err)
	}

	log.Println("Fixtures generated successfully!")
	return nil
}

var teamNames = []string{
	"Crimson Vanguard", "Azure Wolves", "Iron Harbor", "Night Owls",
	"Solar Flare", "Static Shock", "Granite Peak", "Velvet Thunder",
}

func (f *Fixtures) generateFinishedTournament() error {
	tournaments := f.module.TournamentService

	t, err := tournaments.CreateTournament(models.CreateTournamentRequest{
		Name:         "Autumn Duel Cup",
		GameModuleID: "squad-5v5",
		Format:       "single_elim",
		Description:  "Demo cup played to completion with settled prizes",
		PrizeTable:   json.RawMessage(`[{"placement":1,"amount":500},{"placement":2,"amount":250}]`),
	})
	if err != nil {
		return err
	}
	if _, err := tournaments.OpenRegistration(t.ID); err != nil {
		return err
	}

	if err := f.enrollTeams(t.ID, teamNames[:5]); err != nil {
		return err
	}

	if _, err := tournaments.Lock(t.ID); err != nil {
		return err
	}
	if _, err := tournaments.Start(t.ID); err != nil {
		return err
	}

	if err := f.playOut(t.ID); err != nil {
		return err
	}

	delivered, failed, err := f.module.SettlementService.DeliverOutstanding(context.Background(), t.ID)
	if err != nil {
		return err
	}
	log.Printf("Created tournament: %s (ID: %d, settled %d records, %d failed)", t.Name, t.ID, delivered, failed)
	return nil
}

func (f *Fixtures) generateOngoingTournament() error {
	tournaments := f.module.TournamentService

	t, err := tournaments.CreateTournament(models.CreateTournamentRequest{
		Name:         "Winter Swiss Open",
		GameModuleID: "squad-5v5",
		Format:       "swiss",
		Description:  "Demo swiss tournament with the first round underway",
	})
	if err != nil {
		return err
	}
	if _, err := tournaments.OpenRegistration(t.ID); err != nil {
		return err
	}
	if err := f.enrollTeams(t.ID, teamNames[:6]); err != nil {
		return err
	}
	if _, err := tournaments.Lock(t.ID); err != nil {
		return err
	}
	if _, err := tournaments.Start(t.ID); err != nil {
		return err
	}

	// Submit one unconfirmed result so the pending flow has data too.
	var match models.Match
	err = f.db.Where("tournament_id = ? AND status = ?", t.ID, models.MatchReady).
		Order("round ASC, position ASC").First(&match).Error
	if err == nil {
		home, _, refErr := f.slotRefs(&match)
		if refErr != nil {
			return refErr
		}
		_, err = f.module.MatchService.SubmitResult(match.ID, home, models.SubmitResultRequest{
			Payload: json.RawMessage(`{"home_score":2,"away_score":1}`),
			Version: match.Version,
		})
		if err != nil {
			return err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	log.Printf("Created tournament: %s (ID: %d, in progress)", t.Name, t.ID)
	return nil
}

func (f *Fixtures) generateOpenTournament() error {
	tournaments := f.module.TournamentService

	t, err := tournaments.CreateTournament(models.CreateTournamentRequest{
		Name:         "Spring Round Robin",
		GameModuleID: "duel",
		Format:       "round_robin",
		Description:  "Demo tournament open for registration",
	})
	if err != nil {
		return err
	}
	if _, err := tournaments.OpenRegistration(t.ID); err != nil {
		return err
	}

	registrations := f.module.RegistrationService
	for i, name := range teamNames[4:7] {
		reg, err := registrations.Register(t.ID, models.CreateRegistrationRequest{
			CompetitorRef: slugRef(name),
			DisplayName:   name,
		})
		if err != nil {
			return err
		}
		// Leave the last one pending so the approval queue is visible.
		if i < 2 {
			if _, err := registrations.Approve(reg.ID); err != nil {
				return err
			}
		}
	}

	log.Printf("Created tournament: %s (ID: %d, open)", t.Name, t.ID)
	return nil
}

// enrollTeams registers, approves and checks in one team per name.
func (f *Fixtures) enrollTeams(tournamentID uint, names []string) error {
	registrations := f.module.RegistrationService
	ctx := context.Background()

	for _, name := range names {
		reg, err := registrations.Register(tournamentID, models.CreateRegistrationRequest{
			CompetitorRef: slugRef(name),
			DisplayName:   name,
		})
		if err != nil {
			return err
		}
		if _, err := registrations.Approve(reg.ID); err != nil {
			return err
		}
		if _, err := registrations.CheckIn(ctx, reg.ID); err != nil {
			return err
		}
	}
	return nil
}

// playOut submits and confirms results until no match is left ready.
func (f *Fixtures) playOut(tournamentID uint) error {
	matches := f.module.MatchService

	for i := 0; i < 128; i++ {
		var match models.Match
		err := f.db.Where("tournament_id = ? AND status = ?", tournamentID, models.MatchReady).
			Order("round ASC, position ASC").First(&match).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		home, away, err := f.slotRefs(&match)
		if err != nil {
			return err
		}

		homeScore, awayScore := 2, rand.Intn(2) // #nosec G404
		if rand.Float32() < 0.5 {               // #nosec G404
			homeScore, awayScore = awayScore, homeScore
		}

		payload := fmt.Sprintf(`{"home_score":%d,"away_score":%d}`, homeScore, awayScore)
		submitted, err := matches.SubmitResult(match.ID, home, models.SubmitResultRequest{
			Payload: json.RawMessage(payload),
			Version: match.Version,
		})
		if err != nil {
			return err
		}
		if _, err := matches.ConfirmResult(match.ID, away, models.ConfirmResultRequest{
			Version: submitted.Version,
		}); err != nil {
			return err
		}
	}
	return fmt.Errorf("tournament %d did not finish within the match budget", tournamentID)
}

// slotRefs resolves the competitor refs occupying a match's slots.
func (f *Fixtures) slotRefs(m *models.Match) (home, away string, err error) {
	if m.HomeRegistrationID == nil || m.AwayRegistrationID == nil {
		return "", "", fmt.Errorf("match %d is missing a participant", m.ID)
	}
	var homeReg, awayReg models.Registration
	if err := f.db.First(&homeReg, *m.HomeRegistrationID).Error; err != nil {
		return "", "", err
	}
	if err := f.db.First(&awayReg, *m.AwayRegistrationID).Error; err != nil {
		return "", "", err
	}
	return homeReg.CompetitorRef, awayReg.CompetitorRef, nil
}

func slugRef(name string) string {
	ref := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			ref = append(ref, c+'a'-'A')
		case c == ' ':
			ref = append(ref, '-')
		default:
			ref = append(ref, c)
		}
	}
	return "team-" + string(ref)
}

// ClearAllData removes all fixture data
func (f *Fixtures) ClearAllData() error {
	log.Println("Clearing all fixture data...")

	// Delete in correct order due to foreign key constraints
	tables := []interface{}{
		&models.SettlementRecord{},
		&models.DisputeEvidence{},
		&models.Dispute{},
		&models.Match{},
		&models.Bracket{},
		&models.Registration{},
		&models.Tournament{},
	}

	for _, table := range tables {
		if err := f.db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("failed to clear table %T: %w", table, err)
		}
	}

	// Reset auto-increment sequences to start from 1
	sequences := []string{
		"ALTER SEQUENCE tournaments_id_seq RESTART WITH 1",
		"ALTER SEQUENCE registrations_id_seq RESTART WITH 1",
		"ALTER SEQUENCE brackets_id_seq RESTART WITH 1",
		"ALTER SEQUENCE matches_id_seq RESTART WITH 1",
		"ALTER SEQUENCE disputes_id_seq RESTART WITH 1",
		"ALTER SEQUENCE dispute_evidence_id_seq RESTART WITH 1",
		"ALTER SEQUENCE settlement_records_id_seq RESTART WITH 1",
	}

	for _, seq := range sequences {
		f.db.Exec(seq)
	}

	log.Println("All fixture data cleared!")
	return nil
}
