package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newClientLimiters(r rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

func (cl *clientLimiters) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	l, ok := cl.limiters[key]
	if !ok {
		l = rate.NewLimiter(cl.rate, cl.burst)
		cl.limiters[key] = l
	}
	return l
}

// RateLimit rejects requests exceeding the per-IP token bucket with 429.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	limiters := newClientLimiters(rate.Limit(perSecond), burst)
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// AuthRateLimit is a stricter per-IP bucket for credential endpoints, where
// the refill is expressed per minute.
func AuthRateLimit(perMinute float64, burst int) gin.HandlerFunc {
	return RateLimit(perMinute/60.0, burst)
}
