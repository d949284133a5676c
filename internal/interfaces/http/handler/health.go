package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolms/backend/internal/infrastructure/persistence"
)

// HealthHandler serves the liveness/readiness endpoint.
type HealthHandler struct {
	BaseHandler
	db *persistence.Database
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(db *persistence.Database) *HealthHandler {
	return &HealthHandler{db: db}
}

// RegisterRoutes implements router.RouteRegistrar.
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health reports service and database status. Health requests are never
// audited and carry no tenant scope.
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
