package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jomapps/aladdin-sub006/internal/http/response"
	"github.com/jomapps/aladdin-sub006/internal/services"
)

type PoolHandler struct {
	scheduler services.SchedulerService
}

func NewPoolHandler(scheduler services.SchedulerService) *PoolHandler {
	return &PoolHandler{scheduler: scheduler}
}

type setCapacityRequest struct {
	Capacity int `json:"capacity"`
}

// GET /api/pool/status
func (h *PoolHandler) GetQueueStatus(c *gin.Context) {
	response.RespondOK(c, gin.H{"queue": h.scheduler.QueueStatus()})
}

// GET /api/pool/metrics
func (h *PoolHandler) GetMetrics(c *gin.Context) {
	response.RespondOK(c, gin.H{"metrics": h.scheduler.Metrics()})
}

// PUT /api/pool/capacity
func (h *PoolHandler) SetCapacity(c *gin.Context) {
	var req setCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	h.scheduler.SetCapacity(req.Capacity)
	response.RespondOK(c, gin.H{"capacity": h.scheduler.Metrics().CapacityLimit})
}
