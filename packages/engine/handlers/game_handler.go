package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"engine/gamemodule"
)

type GameHandler struct {
	registry *gamemodule.Registry
}

func NewGameHandler(registry *gamemodule.Registry) *GameHandler {
	return &GameHandler{registry: registry}
}

// GetGames lists the registered game modules
// @Summary List game modules
// @Tags games
// @Produce json
// @Success 200 {array} string
// @Router /games [get]
func (h *GameHandler) GetGames(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.IDs())
}

// GetGame describes one game module
// @Summary Get game module
// @Description Team shape, required player identifiers and settings schema
// @Tags games
// @Produce json
// @Param id path string true "Game module ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /games/{id} [get]
func (h *GameHandler) GetGame(c *gin.Context) {
	module, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              c.Param("id"),
		"team_config":     module.TeamConfig(),
		"identifiers":     module.RequiredPlayerIdentifiers(),
		"settings_schema": module.SettingsSchema(),
	})
}
