// Package ratelimit provides a per-client token-bucket limiter for the
// HTTP surface.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Project-Kyra/Project-Kyra/internal/errors"
)

// Limiter tracks a token bucket per client IP
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	rps      rate.Limit
	burst    int
	lifetime time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing rps requests per second with the
// given burst per client, and starts the idle-client eviction loop.
func NewLimiter(rps float64, burst int) *Limiter {
	l := &Limiter{
		clients:  make(map[string]*client),
		rps:      rate.Limit(rps),
		burst:    burst,
		lifetime: 10 * time.Minute,
	}

	go l.evict()

	return l
}

// Allow reports whether the client identified by key may proceed
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = time.Now()

	return c.limiter.Allow()
}

// evict drops buckets for clients not seen within the lifetime
func (l *Limiter) evict() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		for key, c := range l.clients {
			if time.Since(c.lastSeen) > l.lifetime {
				delete(l.clients, key)
			}
		}
		l.mu.Unlock()
	}
}

// Middleware rejects requests over the per-IP budget with HTTP 429
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			errors.Abort(c, errors.NewRateLimitError())
			return
		}
		c.Next()
	}
}
