package keylock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultLockTTL       = 30 * time.Second
	defaultRetryInterval = 50 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// redisStore defines the operations used by Redis.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
	LockKey(parts ...string) string
}

// Redis implements Locker with SETNX + TTL so several processes acting for
// the same user serialize on one key. The TTL bounds how long a crashed
// holder can block others.
type Redis struct {
	client redisStore
	ttl    time.Duration
	retry  time.Duration
	logg   *logger.Logger
}

type RedisParams struct {
	Client        redisStore
	TTL           time.Duration
	RetryInterval time.Duration
	Logger        *logger.Logger
}

func NewRedis(params RedisParams) (*Redis, error) {
	if params.Client == nil {
		return nil, errors.New("redis client required for lock")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	retry := params.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Redis{client: params.Client, ttl: ttl, retry: retry, logg: logg}, nil
}

// Lock polls SETNX until it owns key or ctx ends.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := r.client.LockKey(key)
	owner := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, redisKey, owner, r.ttl)
		if err != nil {
			return nil, fmt.Errorf("setnx: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even when the caller's context is already canceled.
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if _, err := r.client.DelIfEquals(relCtx, redisKey, owner); err != nil {
				r.logg.Warn(r.logg.WithField(ctx, "lock_key", redisKey), "failed to release redis lock")
			}
		})
	}, nil
}
