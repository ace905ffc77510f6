package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stashspot/service-booking/internal/domain"
	"github.com/stashspot/service-booking/internal/platform/response"
	"github.com/stashspot/service-booking/internal/ratelimit"
)

// RateLimitMiddleware throttles a route group by caller identity: the
// authenticated user id when present, the client IP otherwise.
//
// An optional LocalGuard smooths per-process bursts before the shared
// counter is consulted; the distributed fixed window is the authority.
func RateLimitMiddleware(limiter *ratelimit.FixedWindowLimiter, guard *ratelimit.LocalGuard, scope string, maxRequests int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := clientIdentity(c)

		if guard != nil && !guard.Allow(scope+":"+identity) {
			response.Error(c, domain.NewRateLimitError(time.Now().Add(time.Second)))
			c.Abort()
			return
		}

		decision := limiter.Allow(c.Request.Context(), scope, identity, maxRequests, window)

		c.Header("X-RateLimit-Limit", strconv.FormatInt(maxRequests, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			response.Error(c, domain.NewRateLimitError(decision.ResetAt))
			c.Abort()
			return
		}
		c.Next()
	}
}

func clientIdentity(c *gin.Context) string {
	if userID, ok := GetUserID(c); ok {
		return userID.String()
	}
	return c.ClientIP()
}
