package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edbgstack/edbgstack/pkg/httpapi/types"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	// IsConnected reports whether the stack's physical adapter currently
	// has a live transport (set false once its Disconnected channel fires).
	IsConnected func() bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(isConnected func() bool) *HealthHandler {
	return &HealthHandler{IsConnected: isConnected}
}

// Health handles GET /health.
// @Summary      Health check
// @Description  Returns whether the daemon's physical adapter is connected
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	adapterStatus := "disconnected"
	if h.IsConnected() {
		adapterStatus = "connected"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if adapterStatus != "connected" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Adapter:   adapterStatus,
		Timestamp: time.Now(),
	})
}
