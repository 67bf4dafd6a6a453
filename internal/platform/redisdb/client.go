package redisdb

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jomapps/aladdin-sub006/internal/platform/envutil"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type Client struct {
	RDB *goredis.Client
	log *logger.Logger
}

// NewFromEnv connects to the Redis instance backing the qualification
// resource lock and the realtime event bus. Redis is a hard dependency;
// the caller fails startup when it is unreachable.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("redisdb: logger required")
	}

	addr := envutil.String("REDIS_ADDR", "localhost:6379")
	password := envutil.String("REDIS_PASSWORD", "")
	db := envutil.Int("REDIS_DB", 0)
	dialTimeout := envutil.Duration("REDIS_DIAL_TIMEOUT", 5*time.Second)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisdb: ping %s: %w", addr, err)
	}

	return &Client{
		RDB: rdb,
		log: log.With("client", "RedisDB"),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.RDB == nil {
		return nil
	}
	err := c.RDB.Close()
	c.RDB = nil
	return err
}
