package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"engine/models"
	"engine/services"
)

type TournamentHandler struct {
	tournaments *services.TournamentService
	settlement  *services.SettlementService
}

func NewTournamentHandler(tournaments *services.TournamentService, settlement *services.SettlementService) *TournamentHandler {
	return &TournamentHandler{
		tournaments: tournaments,
		settlement:  settlement,
	}
}

// CreateTournament creates a new tournament
// @Summary Create a new tournament
// @Description Create a tournament in draft state for a registered game module
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournament body models.CreateTournamentRequest true "Tournament data"
// @Success 201 {object} models.Tournament
// @Failure 400 {object} map[string]string
// @Router /tournaments [post]
func (h *TournamentHandler) CreateTournament(c *gin.Context) {
	var req models.CreateTournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tournament, err := h.tournaments.CreateTournament(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tournament)
}

// GetTournament gets a tournament by ID
// @Summary Get tournament by ID
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} models.Tournament
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id} [get]
func (h *TournamentHandler) GetTournament(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tournament, err := h.tournaments.GetTournamentByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tournament)
}

// GetTournamentBySlug gets a tournament by slug
// @Summary Get tournament by slug
// @Tags tournaments
// @Produce json
// @Param slug path string true "Tournament slug"
// @Success 200 {object} models.Tournament
// @Failure 404 {object} map[string]string
// @Router /tournaments/slug/{slug} [get]
func (h *TournamentHandler) GetTournamentBySlug(c *gin.Context) {
	tournament, err := h.tournaments.GetTournamentBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tournament)
}

// GetAllTournaments gets all tournaments with pagination
// @Summary Get all tournaments
// @Description Paginated list with optional status and format filters
// @Tags tournaments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Status filter"
// @Param format query string false "Format filter"
// @Success 200 {object} models.PaginatedTournamentResponse
// @Router /tournaments [get]
func (h *TournamentHandler) GetAllTournaments(c *gin.Context) {
	var status, format *string
	if v := c.Query("status"); v != "" {
		status = &v
	}
	if v := c.Query("format"); v != "" {
		format = &v
	}

	resp, err := h.tournaments.GetAllTournaments(queryInt(c, "page", 1), queryInt(c, "pageSize", 20), status, format)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateTournament updates an editable tournament
// @Summary Update tournament
// @Description Update fields of a tournament that has not locked yet
// @Tags tournaments
// @Accept json
// @Produce json
// @Param id path int true "Tournament ID"
// @Param tournament body models.UpdateTournamentRequest true "Fields to update"
// @Success 200 {object} models.Tournament
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id} [patch]
func (h *TournamentHandler) UpdateTournament(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateTournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tournament, err := h.tournaments.UpdateTournament(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tournament)
}

// DeleteTournament deletes a draft tournament
// @Summary Delete tournament
// @Tags tournaments
// @Param id path int true "Tournament ID"
// @Success 204
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id} [delete]
func (h *TournamentHandler) DeleteTournament(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.tournaments.DeleteTournament(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// OpenRegistration opens a draft tournament for registration
// @Summary Open registration
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} models.Tournament
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id}/open [post]
func (h *TournamentHandler) OpenRegistration(c *gin.Context) {
	h.lifecycle(c, h.tournaments.OpenRegistration)
}

// LockTournament closes registration
// @Summary Lock tournament
// @Description Close registration; check-in stays open until start
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} models.Tournament
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id}/lock [post]
func (h *TournamentHandler) LockTournament(c *gin.Context) {
	h.lifecycle(c, h.tournaments.Lock)
}

// StartTournament seeds the field and generates the first stage
// @Summary Start tournament
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} models.Tournament
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id}/start [post]
func (h *TournamentHandler) StartTournament(c *gin.Context) {
	h.lifecycle(c, h.tournaments.Start)
}

// CancelTournament aborts a tournament
// @Summary Cancel tournament
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} models.Tournament
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id}/cancel [post]
func (h *TournamentHandler) CancelTournament(c *gin.Context) {
	h.lifecycle(c, h.tournaments.Cancel)
}

func (h *TournamentHandler) lifecycle(c *gin.Context, op func(uint) (*models.Tournament, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tournament, err := op(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tournament)
}

// UnfreezeTournament lifts a freeze after operator review
// @Summary Unfreeze tournament
// @Tags tournaments
// @Param id path int true "Tournament ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id}/unfreeze [post]
func (h *TournamentHandler) UnfreezeTournament(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.tournaments.Unfreeze(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetBracket returns a stage's matches grouped by round
// @Summary Get bracket
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Param stage query int false "Stage (defaults to current)"
// @Success 200 {object} models.BracketResponse
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id}/bracket [get]
func (h *TournamentHandler) GetBracket(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	bracket, err := h.tournaments.GetBracket(id, queryInt(c, "stage", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bracket)
}

// GetStandings returns the live standings of a stage
// @Summary Get standings
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Param stage query int false "Stage (defaults to current)"
// @Success 200 {array} models.StandingEntry
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id}/standings [get]
func (h *TournamentHandler) GetStandings(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	standings, err := h.tournaments.Standings(id, queryInt(c, "stage", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, standings)
}

// GetSettlements lists a tournament's settlement records
// @Summary Get settlement records
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {array} models.SettlementRecord
// @Router /tournaments/{id}/settlements [get]
func (h *TournamentHandler) GetSettlements(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	records, err := h.settlement.Records(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// RetrySettlements re-attempts undelivered settlement records
// @Summary Retry settlement delivery
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} map[string]int
// @Router /tournaments/{id}/settlements/retry [post]
func (h *TournamentHandler) RetrySettlements(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	delivered, failed, err := h.settlement.DeliverOutstanding(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": delivered, "failed": failed})
}
