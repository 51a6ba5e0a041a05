package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kaglioster-hub/vrabo/internal/ratelimit"
)

// RateLimitObserver is told about every rejected request.
type RateLimitObserver interface {
	ObserveRateLimited(endpoint string)
}

// RateLimit rejects requests from client IPs that exceed limiter with
// 429 {"error":"Too Many Requests"}. observer may be nil.
func RateLimit(limiter ratelimit.Limiter, endpoint string, observer RateLimitObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		if observer != nil {
			observer.ObserveRateLimited(endpoint)
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
	}
}
