package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/http/response"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/realtime"
	"github.com/jomapps/aladdin-sub006/internal/services"
)

type RealtimeHandler struct {
	log      *logger.Logger
	hub      *realtime.SSEHub
	projects services.ProjectService
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, projects services.ProjectService) *RealtimeHandler {
	return &RealtimeHandler{log: log, hub: hub, projects: projects}
}

// GET /api/projects/:id/events/stream
//
// Opens an SSE stream subscribed to the project's channel. The client
// lives for the duration of the request; disconnecting unsubscribes it.
func (h *RealtimeHandler) ProjectStream(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	if _, err := h.projects.GetProject(c.Request.Context(), projectID); err != nil {
		response.RespondServiceError(c, err)
		return
	}

	client := h.hub.NewSSEClient()
	h.hub.AddChannel(client, realtime.ProjectChannel(projectID))
	h.log.Info("project event stream open",
		"project_id", projectID.String(),
		"client_id", client.ID.String(),
	)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("project event stream closed",
		"project_id", projectID.String(),
		"client_id", client.ID.String(),
	)
}
