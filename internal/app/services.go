package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/observability"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/qualify"
	"github.com/jomapps/aladdin-sub006/internal/realtime"
	"github.com/jomapps/aladdin-sub006/internal/scheduling"
	"github.com/jomapps/aladdin-sub006/internal/services"
	"github.com/jomapps/aladdin-sub006/internal/taskpool"
)

type Services struct {
	Projects  services.ProjectService
	Qualify   services.QualifyService
	Scheduler services.SchedulerService
	Notifier  services.RunNotifier

	Plan qualify.Plan
	Pool *taskpool.Pool
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	sseHub *realtime.SSEHub,
	clients Clients,
	metrics *observability.Metrics,
) (Services, error) {
	log.Info("Wiring services...")

	plan := qualify.LoadPlan(log)

	pool := taskpool.New(
		taskpool.Config{Capacity: cfg.PoolCapacity},
		services.NewAgentsInvoker(clients.Agents, metrics),
		log,
	)
	sched := scheduling.New(pool, log)

	var emitter services.SSEEmitter
	if clients.SSEBus != nil {
		emitter = &services.RedisEmitter{Bus: clients.SSEBus}
	} else {
		emitter = &services.HubEmitter{Hub: sseHub}
	}
	notifier := services.NewRunNotifier(emitter, metrics)

	lock, err := services.NewResourceLock(log, clients.Redis)
	if err != nil {
		return Services{}, fmt.Errorf("init resource lock: %w", err)
	}

	store := services.NewQualifyStore(
		db, log, clients.Neo4j,
		reposet.Projects, reposet.Runs, reposet.Events,
		reposet.Gathered, reposet.Qualified,
	)

	qualifyService, err := services.NewQualifyService(log, plan, qualify.Deps{
		Workflows: services.NewSchedulerWorkflows(sched),
		Intake:    store,
		Sink:      store,
		Knowledge: store,
		Lock:      lock,
		Errors:    store,
		Runs:      store,
		Notify:    notifier,
	}, reposet.Projects, reposet.Runs, reposet.Events)
	if err != nil {
		return Services{}, fmt.Errorf("init qualify service: %w", err)
	}

	schedulerService, err := services.NewSchedulerService(log, sched, pool, reposet.Profiles)
	if err != nil {
		return Services{}, fmt.Errorf("init scheduler service: %w", err)
	}

	projectService := services.NewProjectService(
		log,
		reposet.Projects, reposet.Gathered, reposet.Qualified,
		notifier,
		plan.Departments(),
	)

	return Services{
		Projects:  projectService,
		Qualify:   qualifyService,
		Scheduler: schedulerService,
		Notifier:  notifier,
		Plan:      plan,
		Pool:      pool,
	}, nil
}
