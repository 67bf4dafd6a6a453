package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/http/response"
	"github.com/jomapps/aladdin-sub006/internal/qualify"
	"github.com/jomapps/aladdin-sub006/internal/services"
)

type QualifyHandler struct {
	runs services.QualifyService
}

func NewQualifyHandler(runs services.QualifyService) *QualifyHandler {
	return &QualifyHandler{runs: runs}
}

// POST /api/projects/:id/qualify
//
// Accepts the run and returns 202 with the run id; the run itself
// proceeds in the background. A project that already has a run in
// flight gets a 409.
func (h *QualifyHandler) StartQualify(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	runID, err := h.runs.StartRun(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, qualify.ErrLockConflict) {
			response.RespondError(c, http.StatusConflict, "qualify_locked", err)
			return
		}
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"run_id":     runID,
		"project_id": projectID,
		"status":     "accepted",
	})
}

// GET /api/projects/:id/qualify/status
func (h *QualifyHandler) GetQualifyStatus(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	view, err := h.runs.Status(c.Request.Context(), projectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": view})
}

// GET /api/projects/:id/qualify/runs?limit=20
func (h *QualifyHandler) ListQualifyRuns(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	limit := 20
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	runs, err := h.runs.RunHistory(c.Request.Context(), projectID, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

// GET /api/projects/:id/qualify/events?limit=50
func (h *QualifyHandler) ListQualifyEvents(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	events, err := h.runs.Events(c.Request.Context(), projectID, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

// GET /api/qualify/plan
func (h *QualifyHandler) GetQualifyPlan(c *gin.Context) {
	response.RespondOK(c, gin.H{"plan": h.runs.Plan()})
}
