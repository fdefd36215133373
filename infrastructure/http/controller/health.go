package controller

import (
	"chat-relay/observability"
	"net/http"

	"github.com/gin-gonic/gin"
)

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func Stats(monitoring *observability.MonitoringManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, monitoring.GetLatest())
	}
}
