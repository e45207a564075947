package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	resp "lms-user-service/internal/transport/http/response"
)

// HealthCheck 返回 nil 表示依赖可用
type HealthCheck func(ctx context.Context) error

// health 任一依赖失败返回 503，data 中给出每个依赖的状态
func health(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "UP"
		components := make(map[string]string, len(names))
		for _, n := range names {
			if err := checks[n](ctx); err != nil {
				components[n] = "DOWN"
				status = "DOWN"
				_ = c.Error(err)
				continue
			}
			components[n] = "UP"
		}

		data := gin.H{"status": status, "components": components}
		if status != "UP" {
			c.JSON(http.StatusServiceUnavailable, resp.Error("Service unavailable", data, c.Request.URL.Path))
			return
		}
		c.JSON(http.StatusOK, resp.OK(data, "OK"))
	}
}
