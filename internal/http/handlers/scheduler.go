package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jomapps/aladdin-sub006/internal/http/response"
	"github.com/jomapps/aladdin-sub006/internal/scheduling"
	"github.com/jomapps/aladdin-sub006/internal/services"
)

type SchedulerHandler struct {
	scheduler services.SchedulerService
}

func NewSchedulerHandler(scheduler services.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

type scheduleTaskRequest struct {
	Department string          `json:"department"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	Priority   *int            `json:"priority,omitempty"`
}

type scheduleBatchRequest struct {
	Tasks []scheduleTaskRequest `json:"tasks"`
}

type setWeightRequest struct {
	Weight int `json:"weight"`
}

func (r scheduleTaskRequest) toTask() scheduling.Task {
	return scheduling.Task{
		Department: r.Department,
		Kind:       r.Kind,
		Payload:    r.Payload,
		Priority:   r.Priority,
	}
}

// POST /api/scheduler/tasks
func (h *SchedulerHandler) ScheduleTask(c *gin.Context) {
	var req scheduleTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	unitID, err := h.scheduler.Schedule(req.toTask())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"unit_id": unitID})
}

// POST /api/scheduler/tasks/batch
func (h *SchedulerHandler) ScheduleBatch(c *gin.Context) {
	var req scheduleBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	if len(req.Tasks) == 0 {
		response.RespondError(c, http.StatusBadRequest, "empty_batch", nil)
		return
	}
	tasks := make([]scheduling.Task, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		tasks = append(tasks, t.toTask())
	}
	unitIDs, err := h.scheduler.ScheduleBatch(tasks)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"unit_ids": unitIDs, "count": len(unitIDs)})
}

// PUT /api/scheduler/departments/:department/weight
func (h *SchedulerHandler) SetDepartmentWeight(c *gin.Context) {
	department := strings.TrimSpace(c.Param("department"))
	var req setWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	applied, err := h.scheduler.SetDepartmentWeight(c.Request.Context(), department, req.Weight)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"department": department, "weight": applied})
}

// GET /api/scheduler/snapshot
func (h *SchedulerHandler) GetSnapshot(c *gin.Context) {
	response.RespondOK(c, gin.H{"snapshot": h.scheduler.Snapshot()})
}
