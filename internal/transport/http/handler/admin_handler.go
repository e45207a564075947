package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lms-user-service/internal/core/auth"
	"lms-user-service/internal/domain"
	httpez "lms-user-service/internal/transport/http/ez"
	"lms-user-service/pkg/utils"
)

type StatsService interface {
	CountAllStatuses(ctx context.Context) (map[domain.UserStatus]int64, error)
}

// AdminCredential 运维账号，PasswordHash 为 bcrypt
type AdminCredential struct {
	Username     string
	PasswordHash string
}

type AdminHandler struct {
	stats StatsService
	cred  AdminCredential
	jwter *auth.JWTer
	log   *zap.Logger
}

func NewAdminHandler(stats StatsService, cred AdminCredential, jwter *auth.JWTer, l *zap.Logger) *AdminHandler {
	return &AdminHandler{stats: stats, cred: cred, jwter: jwter, log: l}
}

// MountAuth POST /auth/token：Basic 认证换取 admin JWT
func (h *AdminHandler) MountAuth(admin *gin.RouterGroup) {
	ez := httpez.New(admin, h.log)

	type tokenOut struct {
		Token     string `json:"token"`
		TokenType string `json:"tokenType"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodPost, Path: "/auth/token", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			user, pass, ok := c.Request.BasicAuth()
			if !ok || !h.checkCredential(user, pass) {
				c.Header("WWW-Authenticate", `Basic realm="admin"`)
				h.log.Warn("admin login rejected", zap.String("user", user), zap.String("ip", c.ClientIP()))
				return httpez.Reply{Status: http.StatusUnauthorized, Message: "invalid credentials"}, nil
			}
			tok, err := h.jwter.Issue(user, auth.RoleAdmin)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(tokenOut{Token: tok, TokenType: "Bearer", ExpiresIn: int64(h.jwter.TTL.Seconds())}, "Token issued"), nil
		},
	})
}

func (h *AdminHandler) checkCredential(user, pass string) bool {
	if h.cred.Username == "" || h.cred.PasswordHash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.cred.Username)) == 1
	return utils.CheckPassword(pass, h.cred.PasswordHash) && userOK
}

// MountAdmin 需要挂在已校验 admin 角色的分组上
func (h *AdminHandler) MountAdmin(admin *gin.RouterGroup) {
	ez := httpez.New(admin, h.log)

	type statsOut struct {
		Total    int64                       `json:"total"`
		ByStatus map[domain.UserStatus]int64 `json:"byStatus"`
	}
	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/stats", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			counts, err := h.stats.CountAllStatuses(c.Request.Context())
			if err != nil {
				return httpez.Reply{}, err
			}
			out := statsOut{ByStatus: counts}
			for _, n := range counts {
				out.Total += n
			}
			return httpez.OK(out, "User statistics retrieved successfully"), nil
		},
	})
}
