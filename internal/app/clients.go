package app

import (
	"context"
	"fmt"

	"github.com/jomapps/aladdin-sub006/internal/clients/agents"
	"github.com/jomapps/aladdin-sub006/internal/platform/envutil"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/platform/neo4jdb"
	"github.com/jomapps/aladdin-sub006/internal/platform/redisdb"
	"github.com/jomapps/aladdin-sub006/internal/realtime/bus"
)

type Clients struct {
	Agents agents.Client
	Redis  *redisdb.Client
	Neo4j  *neo4jdb.Client
	SSEBus bus.Bus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	agentsClient, err := agents.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init agents client: %w", err)
	}

	// Redis backs the per-project qualification lock, so it is required.
	redisClient, err := redisdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	// Multi-instance deployments publish SSE through Redis so every
	// instance's hub sees every event. Single instances skip the bus and
	// broadcast locally.
	var sseBus bus.Bus
	if envutil.Bool("SSE_BUS_ENABLED", false) {
		b, err := bus.NewRedisBus(log, redisClient)
		if err != nil {
			_ = redisClient.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
	}

	// Optional; knowledge-base sync is skipped when NEO4J_URI is unset.
	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		_ = redisClient.Close()
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}

	return Clients{
		Agents: agentsClient,
		Redis:  redisClient,
		Neo4j:  neo4jClient,
		SSEBus: sseBus,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(context.Background())
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
