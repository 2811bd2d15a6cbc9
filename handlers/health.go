package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Achutaiscool/Twenty44-WA-bot/utils"
)

// Health returns the latest stored health snapshot.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}
