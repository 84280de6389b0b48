package engine

import (
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"engine/cron"
	"engine/external"
	"engine/gamemodule"
	"engine/handlers"
	"engine/realtime"
	"engine/services"
)

// Collaborators are the outbound systems the engine talks to. The demo
// binary wires the in-memory versions; a real deployment provides
// clients for its economy, ranking and roster services.
type Collaborators struct {
	Economy external.Economy
	Ranking external.Ranking
	Rosters external.RosterProvider
}

type Module struct {
	TournamentHandler   *handlers.TournamentHandler
	RegistrationHandler *handlers.RegistrationHandler
	MatchHandler        *handlers.MatchHandler
	DisputeHandler      *handlers.DisputeHandler
	GameHandler         *handlers.GameHandler
	StreamHandler       *handlers.StreamHandler

	TournamentService   *services.TournamentService
	RegistrationService *services.RegistrationService
	MatchService        *services.MatchService
	DisputeService      *services.DisputeService
	SettlementService   *services.SettlementService
	SweepService        *services.SweepService

	Registry  *gamemodule.Registry
	Hub       *realtime.Hub
	Scheduler *cron.Scheduler
	db        *gorm.DB
}

func NewModule(db *gorm.DB, registry *gamemodule.Registry, collaborators Collaborators) *Module {
	hub := realtime.NewHub()
	go hub.Run()

	settlementService := services.NewSettlementService(db, collaborators.Economy, collaborators.Ranking, hub)
	tournamentService := services.NewTournamentService(db, registry, hub, settlementService)
	registrationService := services.NewRegistrationService(db, registry, collaborators.Rosters, hub, tournamentService)
	matchService := services.NewMatchService(db, registry, hub, tournamentService)
	disputeService := services.NewDisputeService(db, hub, tournamentService, matchService)
	sweepService := services.NewSweepService(db, tournamentService, registrationService, matchService, disputeService, settlementService)

	scheduler := cron.NewScheduler(sweepService)

	return &Module{
		TournamentHandler:   handlers.NewTournamentHandler(tournamentService, settlementService),
		RegistrationHandler: handlers.NewRegistrationHandler(registrationService),
		MatchHandler:        handlers.NewMatchHandler(matchService),
		DisputeHandler:      handlers.NewDisputeHandler(disputeService),
		GameHandler:         handlers.NewGameHandler(registry),
		StreamHandler:       handlers.NewStreamHandler(hub),

		TournamentService:   tournamentService,
		RegistrationService: registrationService,
		MatchService:        matchService,
		DisputeService:      disputeService,
		SettlementService:   settlementService,
		SweepService:        sweepService,

		Registry:  registry,
		Hub:       hub,
		Scheduler: scheduler,
		db:        db,
	}
}

func (m *Module) SetupRoutes(r *gin.Engine) {
	tournaments := r.Group("/tournaments")
	{
		tournaments.GET("", m.TournamentHandler.GetAllTournaments)
		tournaments.POST("", m.TournamentHandler.CreateTournament)
		tournaments.GET("/slug/:slug", m.TournamentHandler.GetTournamentBySlug)
		tournaments.GET("/:id", m.TournamentHandler.GetTournament)
		tournaments.PATCH("/:id", m.TournamentHandler.UpdateTournament)
		tournaments.DELETE("/:id", m.TournamentHandler.DeleteTournament)

		tournaments.POST("/:id/open", m.TournamentHandler.OpenRegistration)
		tournaments.POST("/:id/lock", m.TournamentHandler.LockTournament)
		tournaments.POST("/:id/start", m.TournamentHandler.StartTournament)
		tournaments.POST("/:id/cancel", m.TournamentHandler.CancelTournament)
		tournaments.POST("/:id/unfreeze", m.TournamentHandler.UnfreezeTournament)

		tournaments.GET("/:id/bracket", m.TournamentHandler.GetBracket)
		tournaments.GET("/:id/standings", m.TournamentHandler.GetStandings)
		tournaments.GET("/:id/settlements", m.TournamentHandler.GetSettlements)
		tournaments.POST("/:id/settlements/retry", m.TournamentHandler.RetrySettlements)

		tournaments.GET("/:id/registrations", m.RegistrationHandler.GetRegistrations)
		tournaments.POST("/:id/registrations", m.RegistrationHandler.Register)

		tournaments.GET("/:id/matches", m.MatchHandler.GetMatches)
		tournaments.GET("/:id/disputes", m.DisputeHandler.GetDisputes)
		tournaments.GET("/:id/events", m.StreamHandler.StreamEvents)
	}

	registrations := r.Group("/registrations")
	{
		registrations.POST("/:id/approve", m.RegistrationHandler.ApproveRegistration)
		registrations.POST("/:id/check-in", m.RegistrationHandler.CheckIn)
		registrations.POST("/:id/withdraw", m.RegistrationHandler.Withdraw)
		registrations.POST("/:id/disqualify", m.RegistrationHandler.Disqualify)
	}

	matches := r.Group("/matches")
	{
		matches.GET("/:id", m.MatchHandler.GetMatch)
		matches.POST("/:id/start", m.MatchHandler.StartMatch)
		matches.POST("/:id/result", m.MatchHandler.SubmitResult)
		matches.POST("/:id/confirm", m.MatchHandler.ConfirmResult)
		matches.POST("/:id/disputes", m.DisputeHandler.OpenDispute)
	}

	disputes := r.Group("/disputes")
	{
		disputes.GET("/:id", m.DisputeHandler.GetDispute)
		disputes.POST("/:id/evidence", m.DisputeHandler.AddEvidence)
		disputes.POST("/:id/resolve", m.DisputeHandler.ResolveDispute)
	}

	games := r.Group("/games")
	{
		games.GET("", m.GameHandler.GetGames)
		games.GET("/:id", m.GameHandler.GetGame)
	}
}

// StartScheduler starts the sweep scheduler.
func (m *Module) StartScheduler() error {
	log.Println("Starting engine module scheduler...")
	return m.Scheduler.Start()
}

// StopScheduler stops the sweep scheduler.
func (m *Module) StopScheduler() {
	log.Println("Stopping engine module scheduler...")
	m.Scheduler.Stop()
}

// RunSweepNow manually triggers one sweep pass (useful for testing).
func (m *Module) RunSweepNow() {
	log.Println("Manually triggering sweep...")
	m.Scheduler.RunNow()
}
