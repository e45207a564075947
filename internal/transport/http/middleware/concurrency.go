package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "lms-user-service/internal/transport/http/response"
)

// ConcurrencyLimit 限制同时在处理的请求数，排队超过 wait 返回 503
func ConcurrencyLimit(max int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if wait > 0 {
			var cancel func()
			ctx, cancel = context.WithTimeout(ctx, wait)
			defer cancel()
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp.Status(http.StatusServiceUnavailable, c.Request.URL.Path))
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
