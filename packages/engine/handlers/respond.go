package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"engine/errs"
	"engine/gamemodule"
)

// respondError maps the engine error taxonomy onto HTTP statuses:
// validation 400, not found 404, version conflict 409, policy
// violation 422, frozen tournament 423, collaborator failure 502.
func respondError(c *gin.Context, err error) {
	var frozen *errs.FrozenError
	var collab *errs.CollaboratorError

	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, gamemodule.ErrNotRegistered):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errs.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &frozen):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error()})
	case errs.IsPolicy(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &collab):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return value
}
