package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/http/response"
	"github.com/jomapps/aladdin-sub006/internal/services"
)

type ProjectHandler struct {
	projects services.ProjectService
}

func NewProjectHandler(projects services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type createProjectRequest struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type addGatherItemsRequest struct {
	Items []gatherItemRequest `json:"items"`
}

type gatherItemRequest struct {
	Department string          `json:"department"`
	Kind       string          `json:"kind"`
	Summary    string          `json:"summary"`
	Content    json.RawMessage `json:"content"`
}

// POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	project, err := h.projects.CreateProject(c.Request.Context(), services.CreateProjectInput{
		Title: req.Title,
		Slug:  req.Slug,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project})
}

// GET /api/projects?limit=50&offset=0
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	limit, offset := pageParams(c, 50)
	projects, err := h.projects.ListProjects(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"projects": projects})
}

// GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	project, err := h.projects.GetProject(c.Request.Context(), projectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"project": project})
}

// POST /api/projects/:id/gather
func (h *ProjectHandler) AddGatherItems(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	var req addGatherItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	if len(req.Items) == 0 {
		response.RespondError(c, http.StatusBadRequest, "empty_items", nil)
		return
	}
	inputs := make([]services.GatherItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		inputs = append(inputs, services.GatherItemInput{
			Department: item.Department,
			Kind:       item.Kind,
			Summary:    item.Summary,
			Content:    item.Content,
		})
	}
	created, err := h.projects.AddGatherItems(c.Request.Context(), projectID, inputs)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": created, "count": len(created)})
}

// GET /api/projects/:id/gather?department=character
func (h *ProjectHandler) ListGatherItems(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	department := strings.TrimSpace(c.Query("department"))
	items, err := h.projects.ListGatherItems(c.Request.Context(), projectID, department)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/projects/:id/qualified?limit=100&offset=0
func (h *ProjectHandler) ListQualifiedItems(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	limit, offset := pageParams(c, 100)
	items, err := h.projects.ListQualifiedItems(c.Request.Context(), projectID, limit, offset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	limit := defaultLimit
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	offset := 0
	if v := strings.TrimSpace(c.Query("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}
