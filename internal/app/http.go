package app

import (
	"github.com/gin-gonic/gin"

	"github.com/jomapps/aladdin-sub006/internal/http"
	httpH "github.com/jomapps/aladdin-sub006/internal/http/handlers"
	"github.com/jomapps/aladdin-sub006/internal/observability"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/realtime"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Project   *httpH.ProjectHandler
	Qualify   *httpH.QualifyHandler
	Scheduler *httpH.SchedulerHandler
	Pool      *httpH.PoolHandler
	Realtime  *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(),
		Project:   httpH.NewProjectHandler(services.Projects),
		Qualify:   httpH.NewQualifyHandler(services.Qualify),
		Scheduler: httpH.NewSchedulerHandler(services.Scheduler),
		Pool:      httpH.NewPoolHandler(services.Scheduler),
		Realtime:  httpH.NewRealtimeHandler(log, sseHub, services.Projects),
	}
}

func wireRouter(log *logger.Logger, metrics *observability.Metrics, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:     log,
		Metrics: metrics,

		ProjectHandler:   handlers.Project,
		QualifyHandler:   handlers.Qualify,
		SchedulerHandler: handlers.Scheduler,
		PoolHandler:      handlers.Pool,
		RealtimeHandler:  handlers.Realtime,

		HealthHandler: handlers.Health,
	})
}
