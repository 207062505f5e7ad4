package v1

import (
	"net/http"

	"identity-sync-backend/internal/delivery/http/response"
	"identity-sync-backend/internal/usecase"
	"identity-sync-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthUC usecase.HealthUsecase
}

func NewHealthHandler(v1 *gin.RouterGroup, root gin.IRoutes, healthUC usecase.HealthUsecase, metricsHandler http.Handler) {
	handler := &HealthHandler{healthUC: healthUC}

	v1.GET("/health", handler.Health)
	root.GET("/ready", handler.Ready)
	if metricsHandler != nil {
		root.GET("/metrics", gin.WrapH(metricsHandler))
	}
}

// Health godoc
// @Summary      Liveness check
// @Tags         ops
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /v1/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, "System operational", h.healthUC.Check(c.Request.Context()))
}

// Ready godoc
// @Summary      Readiness check
// @Description  Pings the database and, when configured, Redis.
// @Tags         ops
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	status, err := h.healthUC.Ready(c.Request.Context())
	if err != nil {
		logger.Log.Warn("Readiness check failed", "error", err)
		response.Error(c, http.StatusServiceUnavailable, "Dependencies unavailable", status)
		return
	}
	response.Success(c, http.StatusOK, "Ready", status)
}
