package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "lms-user-service/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小；超限 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp.Status(http.StatusRequestEntityTooLarge, c.Request.URL.Path))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
