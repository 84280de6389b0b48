package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"engine/models"
	"engine/services"
)

type MatchHandler struct {
	matches *services.MatchService
}

func NewMatchHandler(matches *services.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// GetMatch gets a match by ID
// @Summary Get match by ID
// @Tags matches
// @Produce json
// @Param id path int true "Match ID"
// @Success 200 {object} models.Match
// @Failure 404 {object} map[string]string
// @Router /matches/{id} [get]
func (h *MatchHandler) GetMatch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	m, err := h.matches.GetMatch(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetMatches lists a tournament's matches
// @Summary List matches
// @Tags matches
// @Produce json
// @Param id path int true "Tournament ID"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Status filter"
// @Param round query int false "Round filter"
// @Success 200 {object} models.PaginatedMatchResponse
// @Router /tournaments/{id}/matches [get]
func (h *MatchHandler) GetMatches(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var status *string
	if v := c.Query("status"); v != "" {
		status = &v
	}
	var round *int
	if v := queryInt(c, "round", 0); v > 0 {
		round = &v
	}

	resp, err := h.matches.GetMatches(id, queryInt(c, "page", 1), queryInt(c, "pageSize", 20), status, round)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StartMatch flags a ready match as live
// @Summary Start a match
// @Description Informational start signal; results can still be submitted without it
// @Tags matches
// @Accept json
// @Produce json
// @Param id path int true "Match ID"
// @Param start body models.StartMatchRequest true "Observed version"
// @Success 200 {object} models.Match
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /matches/{id}/start [post]
func (h *MatchHandler) StartMatch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.StartMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.matches.StartMatch(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// SubmitResult records a participant's claimed outcome
// @Summary Submit match result
// @Description Parse and store a result payload; the match moves to pending_result awaiting confirmation
// @Tags matches
// @Accept json
// @Produce json
// @Param id path int true "Match ID"
// @Param submitter query string true "Submitting competitor ref"
// @Param result body models.SubmitResultRequest true "Result payload and observed version"
// @Success 200 {object} models.Match
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /matches/{id}/result [post]
func (h *MatchHandler) SubmitResult(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	submitter := c.Query("submitter")
	if submitter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submitter is required"})
		return
	}
	var req models.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.matches.SubmitResult(id, submitter, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ConfirmResult finalizes a submitted result
// @Summary Confirm match result
// @Description The opponent accepts the submitted result; the match completes and the bracket advances
// @Tags matches
// @Accept json
// @Produce json
// @Param id path int true "Match ID"
// @Param confirmer query string false "Confirming competitor ref (empty for operator)"
// @Param confirmation body models.ConfirmResultRequest true "Observed version"
// @Success 200 {object} models.Match
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /matches/{id}/confirm [post]
func (h *MatchHandler) ConfirmResult(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.ConfirmResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.matches.ConfirmResult(id, c.Query("confirmer"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
