package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lms-user-service/internal/core/auth"
	"lms-user-service/internal/domain"
	"lms-user-service/pkg/utils"
)

type fixedStats map[domain.UserStatus]int64

func (f fixedStats) CountAllStatuses(context.Context) (map[domain.UserStatus]int64, error) {
	return f, nil
}

func newAdmin(t *testing.T) (*gin.Engine, *auth.JWTer) {
	t.Helper()
	hash, err := utils.HashPassword("ops-pass")
	require.NoError(t, err)
	j, err := auth.NewJWTer("0123456789abcdef-test", "lms-user-admin", time.Minute)
	require.NoError(t, err)

	h := NewAdminHandler(
		fixedStats{domain.StatusActive: 3, domain.StatusSuspended: 1},
		AdminCredential{Username: "ops", PasswordHash: hash},
		j, zap.NewNop(),
	)
	r := gin.New()
	g := r.Group("/admin/v1")
	h.MountAuth(g)
	h.MountAdmin(g)
	return r, j
}

func TestAdminHandler_Token(t *testing.T) {
	r, j := newAdmin(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/auth/token", nil)
	req.SetBasicAuth("ops", "ops-pass")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Token     string `json:"token"`
			TokenType string `json:"tokenType"`
			ExpiresIn int64  `json:"expiresIn"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "Bearer", env.Data.TokenType)
	assert.Equal(t, int64(60), env.Data.ExpiresIn)

	claims, err := j.Parse(env.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestAdminHandler_TokenRejected(t *testing.T) {
	r, _ := newAdmin(t)

	for _, tc := range []struct{ user, pass string }{{"ops", "wrong"}, {"root", "ops-pass"}} {
		req := httptest.NewRequest(http.MethodPost, "/admin/v1/auth/token", nil)
		req.SetBasicAuth(tc.user, tc.pass)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
		assert.Contains(t, w.Body.String(), `"success":false`)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/v1/auth/token", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminHandler_Stats(t *testing.T) {
	r, _ := newAdmin(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/v1/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Message string `json:"message"`
		Data    struct {
			Total    int64            `json:"total"`
			ByStatus map[string]int64 `json:"byStatus"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "User statistics retrieved successfully", env.Message)
	assert.Equal(t, int64(4), env.Data.Total)
	assert.Equal(t, int64(3), env.Data.ByStatus["ACTIVE"])
}
