// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket rate limiter with one
// bucket per client key (golang.org/x/time/rate). Idle buckets are swept
// opportunistically so memory stays bounded. Limits are per process; a
// horizontally scaled deployment needs a shared limiter in front.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to its bucket key.
type KeyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by the client address.
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter, safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	skip  map[string]struct{}

	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	sweepN  int
	lookups int
}

// NewRateLimiter returns a limiter refilling rps tokens per second up to
// burst (at least 1). Requests whose route is in skip are never limited.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc, skip ...string) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	rl := &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		skip:    make(map[string]struct{}, len(skip)),
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
		sweepN:  5000,
	}
	for _, p := range skip {
		rl.skip[p] = struct{}{}
	}
	return rl
}

// limiterFor returns the bucket for key. Every sweepN lookups, buckets idle
// for idleTTL are dropped before the requested one is touched.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= rl.sweepN {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Handler rejects requests over the limit with 429 and Retry-After: 1.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := rl.skip[c.FullPath()]; ok {
			c.Next()
			return
		}
		if rl.limiterFor(rl.keyFn(c), time.Now()).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
