package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client redis.UniversalClient
	log    *zap.Logger
}

func NewRedis(client redis.UniversalClient, log *zap.Logger) Locker {
	return &redisLocker{
		client: client,
		log:    log.With(zap.String("locker", "redis")),
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("lock token: %w", err)
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		l.log.Error("Failed to acquire lock", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}
