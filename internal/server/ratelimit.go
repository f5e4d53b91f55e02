package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const minLimiterIdle = 10 * time.Minute

// rateLimiter keeps one token bucket per caller and action. A zero rate
// disables it. Buckets idle long enough to have refilled are dropped.
type rateLimiter struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastPrune time.Time
	buckets   map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(perSecond float64, burst int, clock clockwork.Clock) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	idle := minLimiterIdle
	if perSecond > 0 {
		if refill := time.Duration(float64(burst) / perSecond * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &rateLimiter{
		clock:     clock,
		limit:     rate.Limit(perSecond),
		burst:     burst,
		idle:      idle,
		lastPrune: clock.Now(),
		buckets:   make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	now := l.clock.Now()
	l.mu.Lock()
	if now.Sub(l.lastPrune) >= l.idle {
		l.pruneLocked(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

func (l *rateLimiter) pruneLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idle {
			delete(l.buckets, key)
		}
	}
	l.lastPrune = now
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (s *Server) enforceRateLimit(c *gin.Context, action string) bool {
	caller := c.ClientIP()
	if user := currentUser(c); user != nil {
		caller = strconv.FormatInt(user.ID, 10)
	}
	if s.limiter.allow(action + ":" + caller) {
		return true
	}
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "slow down"})
	return false
}
