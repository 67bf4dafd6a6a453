package app

import (
	"time"

	"github.com/jomapps/aladdin-sub006/internal/platform/envutil"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	PoolCapacity     int
	PoolShutdownWait time.Duration
	QualifyDrainWait time.Duration
	HTTPShutdownWait time.Duration

	MetricsAddr string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:             envutil.String("PORT", "8086"),
		Environment:      envutil.String("APP_ENV", "development"),
		Version:          envutil.String("APP_VERSION", "dev"),
		PoolCapacity:     envutil.Int("TASK_POOL_CAPACITY", 3),
		PoolShutdownWait: envutil.Duration("TASK_POOL_SHUTDOWN_TIMEOUT", 30*time.Second),
		QualifyDrainWait: envutil.Duration("QUALIFY_DRAIN_TIMEOUT", 30*time.Second),
		HTTPShutdownWait: envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		MetricsAddr:      envutil.String("METRICS_ADDR", ":9095"),
	}
	log.Info("configuration loaded",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"pool_capacity", cfg.PoolCapacity,
	)
	return cfg
}
