package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lms-user-service/internal/core/auth"
	resp "lms-user-service/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) resp.Resp {
	t.Helper()
	var out resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(KeyRequestID, "abc-123")
	w := do(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(KeyRequestID))
	assert.Equal(t, "abc-123", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(KeyRequestID, strings.Repeat("a", 100))
	w = do(r, req)
	assert.Len(t, w.Header().Get(KeyRequestID), 36)
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(0.0001, 1))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, do(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, resp.MsgTooManyRequests, body.Message)
	require.NotNil(t, body.Path)
	assert.Equal(t, "/x", *body.Path)
}

func TestRateLimitPerIP(t *testing.T) {
	r := newEngine(RateLimitPerIP(0.0001, 1, time.Minute))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		return do(r, req).Code
	}
	assert.Equal(t, http.StatusNoContent, from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, from("10.0.0.2"))
}

func TestMaxBodyBytes(t *testing.T) {
	r := newEngine(MaxBodyBytes(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := do(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"0123456789"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, resp.MsgBodyTooLarge, decode(t, w).Message)

	w = do(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := newEngine(ConcurrencyLimit(1, 20*time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusNoContent)
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	first := make(chan int, 1)
	go func() { first <- do(r, httptest.NewRequest(http.MethodGet, "/slow", nil)).Code }()
	<-entered

	w := do(r, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, resp.MsgServerBusy, decode(t, w).Message)

	close(release)
	assert.Equal(t, http.StatusNoContent, <-first)
	assert.Equal(t, http.StatusNoContent, do(r, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestTimeout(t *testing.T) {
	r := newEngine(Timeout(10 * time.Millisecond))
	r.GET("/x", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, resp.MsgTimeout, decode(t, w).Message)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := newEngine(Recovery(zap.New(core)))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := do(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, resp.MsgUnexpected, body.Message)
	assert.GreaterOrEqual(t, logs.Len(), 1)
}

func TestAccessLog_MasksSensitiveQuery(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newEngine(RequestID(), AccessLog(zap.New(core)))
	r.GET("/users/search", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, httptest.NewRequest(http.MethodGet, "/users/search?name=jane&email=j@x.com", nil))

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, e.Level)
	q, ok := e.ContextMap()["query"].(map[string][]string)
	require.True(t, ok)
	assert.Equal(t, []string{"jane"}, q["name"])
	assert.Equal(t, []string{"****"}, q["email"])
	assert.Equal(t, "/users/search", e.ContextMap()["path"])
}

func TestAccessLog_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newEngine(AccessLog(zap.New(core)))
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/err", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	do(r, httptest.NewRequest(http.MethodGet, "/bad", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/err", nil))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestAuthJWT(t *testing.T) {
	j, err := auth.NewJWTer("0123456789abcdef-test", "lms-user-admin", time.Minute)
	require.NoError(t, err)

	r := newEngine(AuthJWT(j, auth.RoleAdmin))
	r.GET("/x", func(c *gin.Context) {
		claims := c.MustGet(KeyClaims).(*auth.Claims)
		c.String(http.StatusOK, claims.Subject)
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return do(r, req)
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer nope").Code)

	userTok, err := j.Issue("someone", "user")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call("Bearer "+userTok).Code)

	adminTok, err := j.Issue("ops", auth.RoleAdmin)
	require.NoError(t, err)
	w := call("Bearer " + adminTok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())
}
