package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"order-lifecycle-service/internal/repository"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, orderRepo repository.OrderRepository) *HealthHandler {
	return &HealthHandler{db: db, orderRepo: orderRepo}
}

// Health reports liveness
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "order-lifecycle-service",
	})
}

// Ready reports readiness including dependency checks. Redis is optional
// so a cache failure degrades rather than failing the probe.
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if err := h.orderRepo.RedisHealth(ctx); err != nil {
		checks["redis"] = "unavailable"
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "not ready"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
