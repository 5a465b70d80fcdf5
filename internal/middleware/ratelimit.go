package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/pkg/errcode"
	"github.com/xxxsen/notebookrag/internal/pkg/response"
	"github.com/xxxsen/notebookrag/internal/ratelimit"
)

// RateLimit is a coarse per address guard in front of every route. The
// per caller chat limits are applied later by the access gate.
func RateLimit(limiter *ratelimit.Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || window <= 0 {
			c.Next()
			return
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := "global:" + c.ClientIP() + ":" + path
		if !limiter.Allow(key, limit, window) {
			logutil.GetLogger(c.Request.Context()).Warn("global rate limit hit", zap.String("path", path))
			retry := int(limiter.RetryAfter(key).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
			return
		}
		c.Next()
	}
}
