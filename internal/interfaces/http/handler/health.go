package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hubcrm/backend/internal/infrastructure/logger"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database,omitempty"`
	Uptime   string `json:"uptime"`
	Time     string `json:"time"`
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	backend   string
	db        Pinger
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. db is nil when records live on
// the hosted platform, which has no connection to check.
func NewHealthHandler(backend string, db Pinger) *HealthHandler {
	return &HealthHandler{backend: backend, db: db, startTime: time.Now()}
}

// Check godoc
// @Summary  Liveness; pings the database when the local store is active
// @Router   /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	now := time.Now()
	resp := HealthResponse{
		Status:  "healthy",
		Backend: h.backend,
		Uptime:  now.Sub(h.startTime).Round(time.Second).String(),
		Time:    now.Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			resp.Status = "unhealthy"
			resp.Database = "error"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
	}
	c.JSON(http.StatusOK, resp)
}
