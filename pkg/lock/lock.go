// Package lock provides short-lived named locks that expire on their own.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"service-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotAcquired is returned when another holder owns the key.
var ErrNotAcquired = errors.New("lock held by another owner")

// Locker hands out TTL locks. Release is safe to call after expiry; it never frees another owner's lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// New builds the locker selected by cfg.Driver.
func New(cfg utils.LockConfig, redisCfg utils.RedisConfig, log *zap.Logger) (Locker, error) {
	switch cfg.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		return NewRedis(client, log), nil
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown lock driver %q", cfg.Driver)
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
