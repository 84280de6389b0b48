package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"engine/models"
	"engine/services"
)

type DisputeHandler struct {
	disputes *services.DisputeService
}

func NewDisputeHandler(disputes *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// OpenDispute contests a submitted result
// @Summary Open a dispute
// @Tags disputes
// @Accept json
// @Produce json
// @Param id path int true "Match ID"
// @Param dispute body models.OpenDisputeRequest true "Dispute data"
// @Success 201 {object} models.Dispute
// @Failure 422 {object} map[string]string
// @Router /matches/{id}/disputes [post]
func (h *DisputeHandler) OpenDispute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dispute, err := h.disputes.OpenDispute(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// GetDispute gets a dispute with its evidence
// @Summary Get dispute by ID
// @Tags disputes
// @Produce json
// @Param id path int true "Dispute ID"
// @Success 200 {object} models.Dispute
// @Failure 404 {object} map[string]string
// @Router /disputes/{id} [get]
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	dispute, err := h.disputes.GetDispute(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// GetDisputes lists a tournament's disputes
// @Summary List disputes
// @Tags disputes
// @Produce json
// @Param id path int true "Tournament ID"
// @Param status query string false "Status filter"
// @Success 200 {array} models.Dispute
// @Router /tournaments/{id}/disputes [get]
func (h *DisputeHandler) GetDisputes(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var status *string
	if v := c.Query("status"); v != "" {
		status = &v
	}
	disputes, err := h.disputes.GetDisputes(id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, disputes)
}

// AddEvidence attaches material to an open dispute
// @Summary Add dispute evidence
// @Tags disputes
// @Accept json
// @Produce json
// @Param id path int true "Dispute ID"
// @Param evidence body models.AddEvidenceRequest true "Evidence data"
// @Success 201 {object} models.DisputeEvidence
// @Failure 422 {object} map[string]string
// @Router /disputes/{id}/evidence [post]
func (h *DisputeHandler) AddEvidence(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.AddEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evidence, err := h.disputes.AddEvidence(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, evidence)
}

// ResolveDispute closes a dispute
// @Summary Resolve a dispute
// @Description Uphold, overturn or void the disputed result; void applies the tournament's void policy
// @Tags disputes
// @Accept json
// @Produce json
// @Param id path int true "Dispute ID"
// @Param resolution body models.ResolveDisputeRequest true "Resolution"
// @Success 200 {object} models.Dispute
// @Failure 422 {object} map[string]string
// @Router /disputes/{id}/resolve [post]
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dispute, err := h.disputes.Resolve(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}
