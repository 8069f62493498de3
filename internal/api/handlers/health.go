package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health handles GET /api/v1/health. It reports liveness plus database
// reachability so orchestrators can use it as a readiness probe.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "up"
	if err := h.store.Ping(); err != nil {
		status = http.StatusServiceUnavailable
		dbStatus = "down"
	}

	c.JSON(status, gin.H{
		"success": status == http.StatusOK,
		"message": "Health check",
		"data": gin.H{
			"status":    dbStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
