package ez

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lms-user-service/internal/domain"
	resp "lms-user-service/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Path    string          `json:"path"`
}

func do(t *testing.T, r http.Handler, method, target, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestFail_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", domain.Validation("bad input", nil), http.StatusBadRequest, "bad input"},
		{"not found", domain.NotFound("User not found with ID: 9"), http.StatusNotFound, "User not found with ID: 9"},
		{"duplicate", domain.Duplicate("dup", nil), http.StatusConflict, "dup"},
		{"conflict", domain.Conflict("stale", domain.ErrStaleVersion), http.StatusConflict, "stale"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, resp.MsgTimeout},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, resp.MsgUnexpected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			e := New(r.Group("/x"), zap.NewNop())
			Register(e, Action[struct{}]{
				Method: http.MethodGet, Path: "", Binder: BindNone,
				Handler: func(*gin.Context, *struct{}) (Reply, error) { return Reply{}, tc.err },
			})
			code, env := do(t, r, http.MethodGet, "/x", "")
			assert.Equal(t, tc.status, code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.msg, env.Message)
			assert.Equal(t, "/x", env.Path)
		})
	}
}

type pingIn struct {
	Name string `json:"name"`
}

func (p *pingIn) Validate() map[string]string {
	if p.Name == "" {
		return map[string]string{"name": "Name is required"}
	}
	return nil
}

func TestRegister_BindAndValidate(t *testing.T) {
	r := gin.New()
	e := New(r.Group("/ping"), zap.NewNop())
	Register(e, Action[pingIn]{
		Method: http.MethodPost, Path: "", Binder: BindJSON,
		Handler: func(_ *gin.Context, in *pingIn) (Reply, error) { return Created(in.Name, "pong"), nil },
	})

	code, env := do(t, r, http.MethodPost, "/ping", `{"name":"a"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `"a"`, string(env.Data))
	assert.Empty(t, env.Path)

	code, env = do(t, r, http.MethodPost, "/ping", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, resp.MsgValidationFailed, env.Message)
	assert.JSONEq(t, `{"name":"Name is required"}`, string(env.Data))

	code, env = do(t, r, http.MethodPost, "/ping", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, strings.HasPrefix(env.Message, "Malformed request"))
}

func TestRegister_ErrorReply(t *testing.T) {
	r := gin.New()
	e := New(r.Group(""), zap.NewNop())
	Register(e, Action[struct{}]{
		Method: http.MethodPost, Path: "/deny", Binder: BindNone,
		Handler: func(*gin.Context, *struct{}) (Reply, error) {
			return Reply{Status: http.StatusUnauthorized, Message: "nope"}, nil
		},
	})
	code, env := do(t, r, http.MethodPost, "/deny", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
	assert.Equal(t, "/deny", env.Path)
}

func TestQueryHelpers(t *testing.T) {
	r := gin.New()
	e := New(r.Group(""), zap.NewNop())
	Register(e, Action[struct{}]{
		Method: http.MethodGet, Path: "/items/:id", Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (Reply, error) {
			id, err := PathID(c, "id")
			if err != nil {
				return Reply{}, err
			}
			page, err := PageQuery(c)
			if err != nil {
				return Reply{}, err
			}
			return OK(gin.H{"id": id, "page": page.Page, "size": page.Size, "sortBy": page.SortBy, "desc": page.Desc}, "ok"), nil
		},
	})
	Register(e, Action[struct{}]{
		Method: http.MethodGet, Path: "/find", Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (Reply, error) {
			q, err := RequiredQuery(c, "q")
			if err != nil {
				return Reply{}, err
			}
			return OK(q, "ok"), nil
		},
	})

	code, env := do(t, r, http.MethodGet, "/items/7", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":7,"page":0,"size":10,"sortBy":"createdAt","desc":true}`, string(env.Data))

	code, env = do(t, r, http.MethodGet, "/items/7?page=2&size=500&sortBy=email&sortDir=ASC", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":7,"page":2,"size":100,"sortBy":"email","desc":false}`, string(env.Data))

	for _, target := range []string{"/items/0", "/items/abc", "/items/1?page=-1", "/items/1?size=0", "/items/1?size=x", "/items/1?sortBy=password"} {
		code, _ = do(t, r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, code, target)
	}

	code, env = do(t, r, http.MethodGet, "/find", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Required request parameter 'q' is missing", env.Message)

	code, env = do(t, r, http.MethodGet, "/find?q=", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `""`, string(env.Data))

	code, env = do(t, r, http.MethodGet, "/find?q=go", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `"go"`, string(env.Data))
}
