package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jomapps/aladdin-sub006/internal/platform/envutil"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/platform/redisdb"
	"github.com/jomapps/aladdin-sub006/internal/qualify"
)

// releaseLockScript deletes the lock key only while the releasing run
// still owns it, so a run that outlived its TTL cannot free a
// successor's lock.
var releaseLockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type resourceLock struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewResourceLock builds the per-project qualification lock on redis
// SET NX. The TTL bounds how long a crashed process can keep a project
// locked; QUALIFY_LOCK_TTL overrides the default of 30m.
func NewResourceLock(baseLog *logger.Logger, client *redisdb.Client) (qualify.ResourceLock, error) {
	if client == nil || client.RDB == nil {
		return nil, fmt.Errorf("resource lock: redis client required")
	}
	return &resourceLock{
		log: baseLog.With("service", "ResourceLock"),
		rdb: client.RDB,
		ttl: envutil.Duration("QUALIFY_LOCK_TTL", 30*time.Minute),
	}, nil
}

func qualifyLockKey(projectID uuid.UUID) string {
	return "qualify:lock:" + projectID.String()
}

func (l *resourceLock) AcquireResourceLock(ctx context.Context, projectID, runID uuid.UUID) error {
	ok, err := l.rdb.SetNX(ctx, qualifyLockKey(projectID), runID.String(), l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire qualify lock: %w", err)
	}
	if !ok {
		return qualify.ErrLockConflict
	}
	l.log.Debug("qualify lock acquired",
		"project_id", projectID.String(),
		"run_id", runID.String(),
		"ttl", l.ttl,
	)
	return nil
}

func (l *resourceLock) ReleaseResourceLock(ctx context.Context, projectID, runID uuid.UUID, finalStatus qualify.RunStatus) error {
	released, err := releaseLockScript.Run(ctx, l.rdb, []string{qualifyLockKey(projectID)}, runID.String()).Int()
	if err != nil {
		return fmt.Errorf("release qualify lock: %w", err)
	}
	if released == 0 {
		l.log.Warn("qualify lock was not held at release",
			"project_id", projectID.String(),
			"run_id", runID.String(),
			"final_status", string(finalStatus),
		)
		return nil
	}
	l.log.Debug("qualify lock released",
		"project_id", projectID.String(),
		"run_id", runID.String(),
		"final_status", string(finalStatus),
	)
	return nil
}
