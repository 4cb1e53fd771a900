package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/services"
	"gorm.io/gorm"
)

// HealthHandler provides the health check endpoint.
type HealthHandler struct {
	db  *gorm.DB
	hub *services.SSEHub
}

func NewHealthHandler(db *gorm.DB, hub *services.SSEHub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// CheckHealth returns the health status of the store and the event stream.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := 200

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}
	if overall != "healthy" {
		status = 503
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "peerreview",
		"components": gin.H{
			"database":    dbStatus,
			"sse_clients": h.hub.ClientCount(),
		},
	})
}
