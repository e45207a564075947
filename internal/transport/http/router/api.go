package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	mdw "lms-user-service/internal/transport/http/middleware"
	resp "lms-user-service/internal/transport/http/response"
)

type EngineOptions struct {
	RateLimitRPS   int
	RateLimitBurst int
	PerIPRPS       int
	PerIPBurst     int
	MaxInFlight    int64
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	AllowOrigins   []string
	CORSMaxAge     time.Duration
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS, o.RateLimitBurst = 200, 400
	}
	if o.PerIPRPS <= 0 {
		o.PerIPRPS, o.PerIPBurst = 20, 40
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = 300
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.CORSMaxAge <= 0 {
		o.CORSMaxAge = time.Hour
	}
	return o
}

// baseEngine 两个引擎共用的中间件链
func baseEngine(l *zap.Logger, o EngineOptions) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		mdw.RequestID(),
		// 放在 Recovery 外层，panic 的请求同样记录 500
		mdw.AccessLog(l),
		mdw.Metrics(),
		mdw.Recovery(l),
		mdw.RateLimit(rate.Limit(o.RateLimitRPS), o.RateLimitBurst),
		mdw.RateLimitPerIP(rate.Limit(o.PerIPRPS), o.PerIPBurst, 10*time.Minute),
		mdw.ConcurrencyLimit(o.MaxInFlight, time.Second),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.RequestTimeout),
	)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Status(http.StatusNotFound, c.Request.URL.Path))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, resp.Status(http.StatusMethodNotAllowed, c.Request.URL.Path))
	})
	return r
}

func corsConfig(o EngineOptions) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", mdw.KeyRequestID},
		ExposeHeaders: []string{mdw.KeyRequestID},
		MaxAge:        o.CORSMaxAge,
	}
	if len(o.AllowOrigins) == 0 || (len(o.AllowOrigins) == 1 && o.AllowOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = o.AllowOrigins
	}
	return cfg
}

// NewAPIEngine 对外用户接口：/health + /api/v1/...
func NewAPIEngine(l *zap.Logger, o EngineOptions, reg *Registry, checks map[string]HealthCheck) *gin.Engine {
	o = o.withDefaults()
	r := baseEngine(l, o)
	r.Use(cors.New(corsConfig(o)))

	r.GET("/health", health(checks))

	api := r.Group("/api/v1")
	reg.MountAllAPI(api)
	return r
}
