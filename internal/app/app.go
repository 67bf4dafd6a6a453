package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/data/db"
	"github.com/jomapps/aladdin-sub006/internal/observability"
	"github.com/jomapps/aladdin-sub006/internal/platform/envutil"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	server       *http.Server
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "aladdin-coordinator",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	sseHub := realtime.NewSSEHub(log)

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, sseHub, clients, metrics)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, sseHub)
	router := wireRouter(log, metrics, handlerset)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Clients:  clients,
		SSEHub:   sseHub,
		Metrics:  metrics,
		server: &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		},
		otelShutdown: otelShutdown,
	}, nil
}

/*
Start launches the background pieces that outlive any one request: the
Redis-to-hub SSE forwarder (multi-instance mode only), the Prometheus
exposition server, and the metric collectors. Safe to call once; later
calls are no-ops.
*/
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			a.Log.Error("start sse forwarder", "error", err)
		}
	}

	if observability.Enabled() && a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPoolCollector(ctx, a.Services.Pool)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartRedisCollector(ctx, a.Log, envutil.String("REDIS_ADDR", "localhost:6379"))
		a.Metrics.StartSLOEvaluator(ctx, a.Log)
	}
}

/*
Run serves HTTP until ctx is cancelled or the listener fails. On
cancellation the server stops accepting connections and waits up to
HTTPShutdownWait for in-flight requests, so no new qualification run
can start once shutdown begins.
*/
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.HTTPShutdownWait)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

/*
Close shuts the coordinator down in dependency order: wait for active
qualification runs, then drain the pool's in-flight work, then stop
background goroutines and release external connections. In-flight
department workflows are never cancelled; queued ones are discarded.
*/
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Qualify != nil {
		if err := a.Services.Qualify.Drain(a.Cfg.QualifyDrainWait); err != nil {
			a.Log.Warn("qualification drain incomplete", "error", err)
		}
	}
	if a.Services.Pool != nil {
		if err := a.Services.Pool.Shutdown(a.Cfg.PoolShutdownWait); err != nil {
			a.Log.Warn("pool shutdown incomplete", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.PoolShutdownWait)
		_ = a.otelShutdown(shutdownCtx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
