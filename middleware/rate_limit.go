package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yatube/yatube/utils"
)

const limiterIdle = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

var (
	limiters   = map[string]*rateLimiter{}
	limitersMu sync.Mutex
	lastSweep  time.Time
)

// RateLimit applies a per-IP token bucket of perMinute requests. scope keeps buckets of
// different route groups apart.
func RateLimit(scope string, perMinute int) gin.HandlerFunc {
	perMinute = max(perMinute, 1)
	every := rate.Every(time.Minute / time.Duration(perMinute))
	burst := max(perMinute/2, 1)

	return func(ctx *gin.Context) {
		if !getLimiter(scope+"|"+ctx.ClientIP(), every, burst, time.Now()).Allow() {
			ctx.Header("Retry-After", "60")
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// getLimiter returns the bucket for key. Idle buckets are swept at most once per
// limiterIdle, so the per-request cost stays constant.
func getLimiter(key string, limit rate.Limit, burst int, now time.Time) *rate.Limiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	if now.Sub(lastSweep) >= limiterIdle {
		for k, l := range limiters {
			if now.After(l.expires) {
				delete(limiters, k)
			}
		}
		lastSweep = now
	}

	if l, ok := limiters[key]; ok {
		l.expires = now.Add(limiterIdle)
		return l.limiter
	}
	l := &rateLimiter{limiter: rate.NewLimiter(limit, burst), expires: now.Add(limiterIdle)}
	limiters[key] = l
	return l.limiter
}
