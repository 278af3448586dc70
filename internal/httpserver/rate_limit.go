package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"sciencehub/internal/caller"
	"sciencehub/pkg/metrics"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter keeps one token bucket per user id.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewUserRateLimiter(perSecond float64, burst int) *UserRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *UserRateLimiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[userID]
	if !ok {
		l.evictIdle(now)
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *UserRateLimiter) evictIdle(now time.Time) {
	for id, e := range l.limiters {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.limiters, id)
		}
	}
}

// Middleware rejects a caller's requests beyond the configured rate with 429.
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := caller.FromContext(c.Request.Context())
		key := c.ClientIP()
		if ok && cl.UserID != "" {
			key = cl.UserID
		}
		if !l.Allow(key) {
			metrics.IncrementRateLimited(c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
