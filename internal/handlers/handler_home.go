package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// healthz godoc
// @Summary Health check
// @Description Reports whether the service is up
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
