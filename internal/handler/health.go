package handler

import (
	"context"
	"net/http"

	"github.com/boswellbenjamin/migrainauts/pkg/api"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger checks that a storage dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler implements the health check endpoint
type HealthHandler struct {
	storage string
	pinger  Pinger
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. pinger may be nil when the
// backend has nothing to ping.
func NewHealthHandler(storage string, pinger Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		pinger:  pinger,
		logger:  logger,
	}
}

// GetHealth reports whether the service and its storage are reachable
func (h *HealthHandler) GetHealth(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			h.logger.Error("health check failed: storage unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, api.HealthResponse{
				Status:  "unhealthy",
				Storage: h.storage,
				Error:   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, api.HealthResponse{
		Status:  "healthy",
		Storage: h.storage,
		Service: "migrainauts",
	})
}
