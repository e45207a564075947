package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lms-user-service/internal/core/auth"
	resp "lms-user-service/internal/transport/http/response"
)

const KeyClaims = "claims"

// AuthJWT 缺失或无效令牌 401，角色不符 403
func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error("missing token", nil, c.Request.URL.Path))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error("invalid token", nil, c.Request.URL.Path))
			return
		}
		if requireRole != "" && claims.Role != requireRole {
			c.AbortWithStatusJSON(http.StatusForbidden, resp.Status(http.StatusForbidden, c.Request.URL.Path))
			return
		}
		c.Set(KeyClaims, claims)
		c.Next()
	}
}
