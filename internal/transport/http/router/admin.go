package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lms-user-service/internal/core/auth"
	mdw "lms-user-service/internal/transport/http/middleware"
)

// TokenIssuer 挂载换取令牌的公开接口
type TokenIssuer interface{ MountAuth(*gin.RouterGroup) }

// NewAdminEngine 运维端：/health 公开，/admin/v1/auth/token 用 Basic 认证换令牌，
// 其余 /admin/v1/* 要求 admin 角色
func NewAdminEngine(l *zap.Logger, o EngineOptions, tokens TokenIssuer, jwter *auth.JWTer, reg *Registry, checks map[string]HealthCheck) *gin.Engine {
	o = o.withDefaults()
	r := baseEngine(l, o)

	r.GET("/health", health(checks))

	admin := r.Group("/admin/v1")
	tokens.MountAuth(admin)

	secured := admin.Group("")
	secured.Use(mdw.AuthJWT(jwter, auth.RoleAdmin))
	secured.GET("/metrics", gin.WrapH(promhttp.Handler()))
	reg.MountAllAdmin(secured)
	return r
}
