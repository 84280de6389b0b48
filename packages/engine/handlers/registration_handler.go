package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"engine/models"
	"engine/services"
)

type RegistrationHandler struct {
	registrations *services.RegistrationService
}

func NewRegistrationHandler(registrations *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// Register enters a competitor into a tournament
// @Summary Register a competitor
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path int true "Tournament ID"
// @Param registration body models.CreateRegistrationRequest true "Registration data"
// @Success 201 {object} models.Registration
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id}/registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.registrations.Register(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// GetRegistrations lists a tournament's registrations
// @Summary List registrations
// @Tags registrations
// @Produce json
// @Param id path int true "Tournament ID"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Status filter"
// @Success 200 {object} models.PaginatedRegistrationResponse
// @Router /tournaments/{id}/registrations [get]
func (h *RegistrationHandler) GetRegistrations(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var status *string
	if v := c.Query("status"); v != "" {
		status = &v
	}

	resp, err := h.registrations.GetRegistrations(id, queryInt(c, "page", 1), queryInt(c, "pageSize", 20), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApproveRegistration accepts a pending registration
// @Summary Approve registration
// @Tags registrations
// @Produce json
// @Param id path int true "Registration ID"
// @Success 200 {object} models.Registration
// @Failure 422 {object} map[string]string
// @Router /registrations/{id}/approve [post]
func (h *RegistrationHandler) ApproveRegistration(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	reg, err := h.registrations.Approve(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

// CheckIn confirms attendance and snapshots the roster
// @Summary Check in
// @Description Fetches the current roster, validates it against the game module and freezes it
// @Tags registrations
// @Produce json
// @Param id path int true "Registration ID"
// @Success 200 {object} models.Registration
// @Failure 422 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /registrations/{id}/check-in [post]
func (h *RegistrationHandler) CheckIn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	reg, err := h.registrations.CheckIn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

// Withdraw removes a competitor, forfeiting live matches if started
// @Summary Withdraw registration
// @Tags registrations
// @Produce json
// @Param id path int true "Registration ID"
// @Success 200 {object} models.Registration
// @Failure 422 {object} map[string]string
// @Router /registrations/{id}/withdraw [post]
func (h *RegistrationHandler) Withdraw(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	reg, err := h.registrations.Withdraw(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

// Disqualify removes a competitor by organizer decision
// @Summary Disqualify registration
// @Tags registrations
// @Produce json
// @Param id path int true "Registration ID"
// @Success 200 {object} models.Registration
// @Failure 422 {object} map[string]string
// @Router /registrations/{id}/disqualify [post]
func (h *RegistrationHandler) Disqualify(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	reg, err := h.registrations.Disqualify(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}
