package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz reports liveness plus the state of the database.
func Healthz(ping func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
