package attendance

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeviceClaims is the redis fast path for duplicate-device detection: the
// first submission from a fingerprint claims it for the rest of the session.
type DeviceClaims struct {
	rdb *redis.Client
}

// NewDeviceClaims creates the claim store.
func NewDeviceClaims(rdb *redis.Client) *DeviceClaims {
	return &DeviceClaims{rdb: rdb}
}

func claimKey(sessionID, fingerprint string) string {
	return "rollcall:device:" + sessionID + ":" + fingerprint
}

// Claim atomically claims a fingerprint for a matric number until the session
// expires. When the claim is already held it returns the holder, so a repeat
// attempt by the same student is not mistaken for device reuse.
func (d *DeviceClaims) Claim(ctx context.Context, sessionID, fingerprint, matricNo string, ttl time.Duration) (bool, string, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := d.rdb.SetNX(ctx, claimKey(sessionID, fingerprint), matricNo, ttl).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, matricNo, nil
	}
	owner, err := d.rdb.Get(ctx, claimKey(sessionID, fingerprint)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, "", err
	}
	return false, owner, nil
}

// StatsCache holds worker-maintained live counters per session.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatsCache creates the cache with a bounded entry lifetime.
func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func statsKey(sessionID string) string {
	return "rollcall:stats:" + sessionID
}

// Get returns cached stats; ok is false on miss or redis trouble so callers
// fall back to Postgres.
func (c *StatsCache) Get(ctx context.Context, sessionID string) (Stats, bool) {
	vals, err := c.rdb.HGetAll(ctx, statsKey(sessionID)).Result()
	if err != nil || len(vals) == 0 {
		return Stats{}, false
	}
	var st Stats
	st.TotalSubmissions, _ = strconv.Atoi(vals["total"])
	st.PresentCount, _ = strconv.Atoi(vals["present"])
	if unix, err := strconv.ParseInt(vals["updated"], 10, 64); err == nil {
		st.LastUpdated = time.Unix(unix, 0).UTC()
	}
	return st, true
}

// Put stores fresh stats for a session.
func (c *StatsCache) Put(ctx context.Context, sessionID string, st Stats) error {
	key := statsKey(sessionID)
	if err := c.rdb.HSet(ctx, key,
		"total", st.TotalSubmissions,
		"present", st.PresentCount,
		"updated", st.LastUpdated.Unix(),
	).Err(); err != nil {
		return err
	}
	return c.rdb.Expire(ctx, key, c.ttl).Err()
}
