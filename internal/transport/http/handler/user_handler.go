package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lms-user-service/internal/domain"
	httpez "lms-user-service/internal/transport/http/ez"
)

// UserService 处理层依赖的用例集合
type UserService interface {
	Register(ctx context.Context, req domain.UserRequest) (domain.UserResponse, error)
	GetByID(ctx context.Context, id uint64) (domain.UserResponse, error)
	GetByEmail(ctx context.Context, email string) (domain.UserResponse, error)
	ListAll(ctx context.Context, req domain.PageRequest) (domain.Page[domain.UserResponse], error)
	ListByCourse(ctx context.Context, course string) ([]domain.UserResponse, error)
	ListByCoursePaged(ctx context.Context, course string, req domain.PageRequest) (domain.Page[domain.UserResponse], error)
	ListByCourseAndStatus(ctx context.Context, course string, status domain.UserStatus) ([]domain.UserResponse, error)
	SearchByName(ctx context.Context, namePart string) ([]domain.UserResponse, error)
	Update(ctx context.Context, id uint64, req domain.UserRequest) (domain.UserResponse, error)
	UpdateStatus(ctx context.Context, id uint64, status domain.UserStatus) (domain.UserResponse, error)
	Delete(ctx context.Context, id uint64) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error)
	CountByCourse(ctx context.Context, course string) (int64, error)
	CountByStatus(ctx context.Context, status domain.UserStatus) (int64, error)
}

type UserHandler struct {
	svc UserService
	log *zap.Logger
}

func NewUserHandler(svc UserService, l *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: l}
}

func (h *UserHandler) Priority() int { return 10 }

// MountAPI 挂在 /api/v1 下
func (h *UserHandler) MountAPI(api *gin.RouterGroup) {
	ez := httpez.New(api.Group("/users"), h.log)

	httpez.Register(ez, httpez.Action[domain.UserRequest]{
		Method: http.MethodPost, Path: "", Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *domain.UserRequest) (httpez.Reply, error) {
			h.log.Info("user registration request", zap.String("email", in.Email))
			u, err := h.svc.Register(c.Request.Context(), *in)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.Created(u, "User registered successfully"), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			req, err := httpez.PageQuery(c)
			if err != nil {
				return httpez.Reply{}, err
			}
			p, err := h.svc.ListAll(c.Request.Context(), req)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(p, "Users retrieved successfully"), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/search", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			name, err := httpez.RequiredQuery(c, "name")
			if err != nil {
				return httpez.Reply{}, err
			}
			us, err := h.svc.SearchByName(c.Request.Context(), name)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(us, "Users search completed successfully"), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/:id", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			id, err := httpez.PathID(c, "id")
			if err != nil {
				return httpez.Reply{}, err
			}
			u, err := h.svc.GetByID(c.Request.Context(), id)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(u, "User retrieved successfully"), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/email/:email", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			u, err := h.svc.GetByEmail(c.Request.Context(), c.Param("email"))
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(u, "User retrieved successfully"), nil
		},
	})

	h.mountCourse(ez)
	h.mountMutations(ez)
	h.mountChecks(ez)
}

func (h *UserHandler) mountCourse(ez httpez.EZ) {
	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/course/:courseName", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			course := c.Param("courseName")
			us, err := h.svc.ListByCourse(c.Request.Context(), course)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(us, "Users retrieved successfully for course: "+course), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/course/:courseName/paginated", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			course := c.Param("courseName")
			req, err := httpez.PageQuery(c)
			if err != nil {
				return httpez.Reply{}, err
			}
			p, err := h.svc.ListByCoursePaged(c.Request.Context(), course, req)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(p, "Users retrieved successfully for course: "+course), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/course/:courseName/status/:status", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			course := c.Param("courseName")
			status, err := domain.ParseUserStatus(c.Param("status"))
			if err != nil {
				return httpez.Reply{}, err
			}
			us, err := h.svc.ListByCourseAndStatus(c.Request.Context(), course, status)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(us, "Users retrieved successfully for course: "+course), nil
		},
	})
}

func (h *UserHandler) mountMutations(ez httpez.EZ) {
	httpez.Register(ez, httpez.Action[domain.UserRequest]{
		Method: http.MethodPut, Path: "/:id", Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *domain.UserRequest) (httpez.Reply, error) {
			id, err := httpez.PathID(c, "id")
			if err != nil {
				return httpez.Reply{}, err
			}
			u, err := h.svc.Update(c.Request.Context(), id, *in)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(u, "User updated successfully"), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodPatch, Path: "/:id/status", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			id, err := httpez.PathID(c, "id")
			if err != nil {
				return httpez.Reply{}, err
			}
			raw, err := httpez.RequiredQuery(c, "status")
			if err != nil {
				return httpez.Reply{}, err
			}
			status, err := domain.ParseUserStatus(raw)
			if err != nil {
				return httpez.Reply{}, err
			}
			u, err := h.svc.UpdateStatus(c.Request.Context(), id, status)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(u, "User status updated successfully"), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodDelete, Path: "/:id", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			id, err := httpez.PathID(c, "id")
			if err != nil {
				return httpez.Reply{}, err
			}
			if err := h.svc.Delete(c.Request.Context(), id); err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(nil, "User deleted successfully"), nil
		},
	})
}

func (h *UserHandler) mountChecks(ez httpez.EZ) {
	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/exists/email/:email", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			ok, err := h.svc.ExistsByEmail(c.Request.Context(), c.Param("email"))
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(ok, "Email existence check completed"), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/exists/phone/:phoneNumber", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			ok, err := h.svc.ExistsByPhoneNumber(c.Request.Context(), c.Param("phoneNumber"))
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(ok, "Phone number existence check completed"), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/count/course/:courseName", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			course := c.Param("courseName")
			n, err := h.svc.CountByCourse(c.Request.Context(), course)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(n, "User count retrieved successfully for course: "+course), nil
		},
	})

	httpez.Register(ez, httpez.Action[struct{}]{
		Method: http.MethodGet, Path: "/count/status/:status", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (httpez.Reply, error) {
			status, err := domain.ParseUserStatus(c.Param("status"))
			if err != nil {
				return httpez.Reply{}, err
			}
			n, err := h.svc.CountByStatus(c.Request.Context(), status)
			if err != nil {
				return httpez.Reply{}, err
			}
			return httpez.OK(n, "User count retrieved successfully for status: "+string(status)), nil
		},
	})
}
