package ez

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lms-user-service/internal/domain"
	resp "lms-user-service/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定，绑定后若实现 Validate() 则先校验
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.Query 取
)

// Reply 处理函数的成功结果
type Reply struct {
	Status  int
	Message string
	Data    any
}

func OK(data any, msg string) Reply      { return Reply{Status: http.StatusOK, Message: msg, Data: data} }
func Created(data any, msg string) Reply { return Reply{Status: http.StatusCreated, Message: msg, Data: data} }

// Action I 为入参类型
type Action[I any] struct {
	Method  string // "GET" | "POST" | "PUT" | "PATCH" | "DELETE"
	Path    string // 例："/:id/status"
	Binder  Binder
	Handler func(c *gin.Context, in *I) (Reply, error)
}

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ { return EZ{g: g, log: l} }

type validatable interface{ Validate() map[string]string }

// Register 在当前分组下注册动作接口
func Register[I any](e EZ, a Action[I]) {
	h := func(c *gin.Context) {
		// 1) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			var mbe *http.MaxBytesError
			if errors.As(bindErr, &mbe) {
				c.JSON(http.StatusRequestEntityTooLarge, resp.Status(http.StatusRequestEntityTooLarge, c.Request.URL.Path))
				return
			}
			e.Fail(c, domain.Validation("Malformed request: "+bindErr.Error(), nil))
			return
		}

		// 2) 字段校验
		if v, ok := any(&in).(validatable); ok {
			if fields := v.Validate(); len(fields) > 0 {
				e.Fail(c, domain.Validation(resp.MsgValidationFailed, fields))
				return
			}
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		status := out.Status
		if status == 0 {
			status = http.StatusOK
		}
		if status >= http.StatusBadRequest {
			c.JSON(status, resp.Error(out.Message, out.Data, c.Request.URL.Path))
			return
		}
		c.JSON(status, resp.OK(out.Data, out.Message))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// Fail 统一错误映射：校验 400 / 不存在 404 / 重复与并发冲突 409 / 超时 504 / 其他 500
func (e EZ) Fail(c *gin.Context, err error) {
	path := c.Request.URL.Path
	var de *domain.Error
	if errors.As(err, &de) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(de, domain.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(de, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(de, domain.ErrDuplicate), errors.Is(de, domain.ErrConflict):
			status = http.StatusConflict
		}
		if status != http.StatusInternalServerError {
			var data any
			if len(de.Fields) > 0 {
				data = de.Fields
			}
			c.JSON(status, resp.Error(de.Message, data, path))
			return
		}
	}

	_ = c.Error(err)
	if errors.Is(err, context.DeadlineExceeded) {
		e.log.Warn("request deadline exceeded", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, resp.Status(http.StatusGatewayTimeout, path))
		return
	}
	e.log.Error("unexpected error",
		zap.String("method", c.Request.Method),
		zap.String("path", path),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, resp.Error(resp.MsgUnexpected, nil, path))
}

// PathID 解析正整数路径参数
func PathID(c *gin.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, domain.Validation("Invalid user id: "+raw, nil)
	}
	return id, nil
}

// RequiredQuery 参数缺失时报校验错误；出现但为空视为空串
func RequiredQuery(c *gin.Context, name string) (string, error) {
	v, ok := c.GetQuery(name)
	if !ok {
		return "", domain.Validation("Required request parameter '"+name+"' is missing", nil)
	}
	return v, nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.Validation("Invalid value for parameter '"+name+"': "+raw, nil)
	}
	return v, nil
}

// PageQuery 默认 page=0,size=10,sortBy=createdAt,sortDir=desc
func PageQuery(c *gin.Context) (domain.PageRequest, error) {
	page, err := intQuery(c, "page", 0)
	if err != nil {
		return domain.PageRequest{}, err
	}
	size, err := intQuery(c, "size", domain.DefaultPageSize)
	if err != nil {
		return domain.PageRequest{}, err
	}
	req := domain.NewPageRequest(page, size, c.DefaultQuery("sortBy", domain.DefaultSortBy), c.DefaultQuery("sortDir", "desc"))
	if err := req.Validate(); err != nil {
		return domain.PageRequest{}, err
	}
	return req, nil
}
