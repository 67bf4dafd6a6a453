package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/jomapps/aladdin-sub006/internal/http/handlers"
	httpMW "github.com/jomapps/aladdin-sub006/internal/http/middleware"
	"github.com/jomapps/aladdin-sub006/internal/observability"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	ProjectHandler   *httpH.ProjectHandler
	QualifyHandler   *httpH.QualifyHandler
	SchedulerHandler *httpH.SchedulerHandler
	PoolHandler      *httpH.PoolHandler
	RealtimeHandler  *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	// otelgin opens the server span first so AttachTraceContext can pick
	// up its trace id.
	r.Use(otelgin.Middleware("aladdin-coordinator"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Projects
		if cfg.ProjectHandler != nil {
			api.POST("/projects", cfg.ProjectHandler.CreateProject)
			api.GET("/projects", cfg.ProjectHandler.ListProjects)
			api.GET("/projects/:id", cfg.ProjectHandler.GetProject)
			api.POST("/projects/:id/gather", cfg.ProjectHandler.AddGatherItems)
			api.GET("/projects/:id/gather", cfg.ProjectHandler.ListGatherItems)
			api.GET("/projects/:id/qualified", cfg.ProjectHandler.ListQualifiedItems)
		}

		// Qualification runs
		if cfg.QualifyHandler != nil {
			api.POST("/projects/:id/qualify", cfg.QualifyHandler.StartQualify)
			api.GET("/projects/:id/qualify/status", cfg.QualifyHandler.GetQualifyStatus)
			api.GET("/projects/:id/qualify/runs", cfg.QualifyHandler.ListQualifyRuns)
			api.GET("/projects/:id/qualify/events", cfg.QualifyHandler.ListQualifyEvents)
			api.GET("/qualify/plan", cfg.QualifyHandler.GetQualifyPlan)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/projects/:id/events/stream", cfg.RealtimeHandler.ProjectStream)
		}

		// Scheduler
		if cfg.SchedulerHandler != nil {
			api.POST("/scheduler/tasks", cfg.SchedulerHandler.ScheduleTask)
			api.POST("/scheduler/tasks/batch", cfg.SchedulerHandler.ScheduleBatch)
			api.PUT("/scheduler/departments/:department/weight", cfg.SchedulerHandler.SetDepartmentWeight)
			api.GET("/scheduler/snapshot", cfg.SchedulerHandler.GetSnapshot)
		}

		// Task pool
		if cfg.PoolHandler != nil {
			api.GET("/pool/status", cfg.PoolHandler.GetQueueStatus)
			api.GET("/pool/metrics", cfg.PoolHandler.GetMetrics)
			api.PUT("/pool/capacity", cfg.PoolHandler.SetCapacity)
		}
	}

	return r
}
