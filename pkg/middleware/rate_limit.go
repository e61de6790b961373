package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/docdesk/docdesk/backend/go-services/pkg/metrics"
	"github.com/docdesk/docdesk/backend/go-services/pkg/respond"
)

// limiterKey prefers the authenticated user id and falls back to the client IP.
func limiterKey(c *gin.Context) string {
	if v, ok := c.Get(respond.UserIDKey); ok {
		return fmt.Sprintf("user:%v", v)
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a per-key token bucket
// held in process memory. rps = allowed events per second, burst = bucket size.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var store sync.Map // map[string]*rate.Limiter
	return func(c *gin.Context) {
		v, _ := store.LoadOrStore(limiterKey(c), rate.NewLimiter(rate.Limit(rps), burst))
		if !v.(*rate.Limiter).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			respond.Error(c, nil, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded", nil)
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
