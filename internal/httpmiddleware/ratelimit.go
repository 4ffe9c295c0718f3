// Package httpmiddleware holds gin middleware shared by the public routes.
package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// SubmitLimiter throttles attendance submissions per client IP with a token
// bucket. State is process-local; behind a multi-instance deployment each
// replica enforces its own limit.
type SubmitLimiter struct {
	burst  float64
	refill float64 // tokens per second

	mu      sync.Mutex
	buckets map[string]*ipBucket
}

type ipBucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewSubmitLimiter allows perMinute submissions per IP sustained, with bursts
// up to burst.
func NewSubmitLimiter(burst, perMinute int) *SubmitLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &SubmitLimiter{
		burst:   float64(burst),
		refill:  float64(perMinute) / 60,
		buckets: make(map[string]*ipBucket),
	}
}

// GinMiddleware rejects over-limit requests with 429 in the submission
// endpoint's envelope shape.
func (l *SubmitLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.take(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "too many requests, slow down"})
			return
		}
		c.Next()
	}
}

func (l *SubmitLimiter) take(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[ip]
	if !ok {
		l.buckets[ip] = &ipBucket{tokens: l.burst - 1, lastSeen: now}
		return true
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * l.refill
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
