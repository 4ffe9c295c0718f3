package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client used for device claims, live-stats caching,
// and the event queue. Timeouts are short on purpose: every redis path here
// has a Postgres fallback, so a slow redis should fail fast and let the
// caller degrade.
type Redis struct {
	Client *redis.Client
}

const (
	redisDialTimeout = 2 * time.Second
	redisOpTimeout   = time.Second
)

// NewRedis connects to redis at addr.
func NewRedis(addr string) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
		MinIdleConns: 1,
	})}
}

// Healthy reports whether redis answers a ping; used by the health endpoint.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return r.Client.Ping(ctx).Err() == nil
}
