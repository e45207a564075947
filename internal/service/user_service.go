package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"lms-user-service/internal/domain"
)

// 用户写操作计数，label: op = register/update/status/delete
var userMutations = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "lms_user_mutations_total", Help: "Count of committed user mutations"},
	[]string{"op"},
)

func init() { prometheus.MustRegister(userMutations) }

type UserService struct {
	repo domain.UserRepository
	log  *zap.Logger
}

func NewUserService(repo domain.UserRepository, l *zap.Logger) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{repo: repo, log: l}
}

func notFoundByID(id uint64) error {
	return domain.NotFound("User not found with ID: " + strconv.FormatUint(id, 10))
}

func duplicateEmail(email string, cause error) error {
	return domain.Duplicate("User with email "+email+" already exists", cause)
}

func duplicatePhone(phone string, cause error) error {
	return domain.Duplicate("User with phone number "+phone+" already exists", cause)
}

// translateSave 唯一索引冲突与预检查给出同样的 Duplicate 错误
func translateSave(err error, u *domain.User) error {
	var uv *domain.UniqueViolation
	switch {
	case errors.As(err, &uv):
		if uv.Field == "phone_number" {
			return duplicatePhone(u.PhoneNumber, err)
		}
		return duplicateEmail(u.Email, err)
	case errors.Is(err, domain.ErrStaleVersion):
		return domain.Conflict("User was modified concurrently, please retry", err)
	default:
		return err
	}
}

// checkUnique 先 email 后 phone，第一个冲突即返回
func checkUnique(ctx context.Context, tx domain.UserRepository, email, phone string, checkEmail, checkPhone bool) error {
	if checkEmail {
		exists, err := tx.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return duplicateEmail(email, nil)
		}
	}
	if checkPhone {
		exists, err := tx.ExistsByPhoneNumber(ctx, phone)
		if err != nil {
			return err
		}
		if exists {
			return duplicatePhone(phone, nil)
		}
	}
	return nil
}

// Register 状态强制为 ACTIVE，id/时间戳/version 由存储层生成
func (s *UserService) Register(ctx context.Context, req domain.UserRequest) (domain.UserResponse, error) {
	in := req.Normalized()
	s.log.Info("registering new user", zap.String("email", in.Email))

	u := &domain.User{
		FullName:    in.FullName,
		PhoneNumber: in.PhoneNumber,
		Email:       in.Email,
		CourseName:  in.CourseName,
		Status:      domain.StatusActive,
	}
	err := s.repo.Transaction(ctx, func(tx domain.UserRepository) error {
		if err := checkUnique(ctx, tx, in.Email, in.PhoneNumber, true, true); err != nil {
			return err
		}
		return translateSave(tx.Save(ctx, u), u)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			s.log.Warn("register rejected", zap.String("email", in.Email), zap.Error(err))
		}
		return domain.UserResponse{}, err
	}
	userMutations.WithLabelValues("register").Inc()
	s.log.Info("registered user", zap.Uint64("user_id", u.ID), zap.String("email", u.Email))
	return domain.ToResponse(*u), nil
}

func (s *UserService) GetByID(ctx context.Context, id uint64) (domain.UserResponse, error) {
	s.log.Debug("fetching user", zap.Uint64("user_id", id))
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.UserResponse{}, err
	}
	if u == nil {
		s.log.Warn("user not found", zap.Uint64("user_id", id))
		return domain.UserResponse{}, notFoundByID(id)
	}
	return domain.ToResponse(*u), nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.UserResponse, error) {
	s.log.Debug("fetching user by email", zap.String("email", email))
	u, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.UserResponse{}, err
	}
	if u == nil {
		s.log.Warn("user not found", zap.String("email", email))
		return domain.UserResponse{}, domain.NotFound("User not found with email: " + email)
	}
	return domain.ToResponse(*u), nil
}

func (s *UserService) ListAll(ctx context.Context, req domain.PageRequest) (domain.Page[domain.UserResponse], error) {
	if err := req.Validate(); err != nil {
		return domain.Page[domain.UserResponse]{}, err
	}
	p, err := s.repo.FindAll(ctx, req)
	if err != nil {
		return domain.Page[domain.UserResponse]{}, err
	}
	return domain.MapPage(p, domain.ToResponse), nil
}

// ListByCourse 课程不存在时返回空列表
func (s *UserService) ListByCourse(ctx context.Context, course string) ([]domain.UserResponse, error) {
	us, err := s.repo.FindByCourseName(ctx, strings.TrimSpace(course))
	if err != nil {
		return nil, err
	}
	return domain.ToResponses(us), nil
}

func (s *UserService) ListByCoursePaged(ctx context.Context, course string, req domain.PageRequest) (domain.Page[domain.UserResponse], error) {
	if err := req.Validate(); err != nil {
		return domain.Page[domain.UserResponse]{}, err
	}
	p, err := s.repo.FindByCourseNamePaged(ctx, strings.TrimSpace(course), req)
	if err != nil {
		return domain.Page[domain.UserResponse]{}, err
	}
	return domain.MapPage(p, domain.ToResponse), nil
}

func (s *UserService) ListByCourseAndStatus(ctx context.Context, course string, status domain.UserStatus) ([]domain.UserResponse, error) {
	us, err := s.repo.FindByCourseNameAndStatus(ctx, strings.TrimSpace(course), status)
	if err != nil {
		return nil, err
	}
	return domain.ToResponses(us), nil
}

func (s *UserService) SearchByName(ctx context.Context, namePart string) ([]domain.UserResponse, error) {
	s.log.Debug("searching users by name", zap.String("name", namePart))
	us, err := s.repo.FindByFullNameContaining(ctx, strings.TrimSpace(namePart))
	if err != nil {
		return nil, err
	}
	return domain.ToResponses(us), nil
}

// Update 只有 email/phone 与库中当前值不同才做重复检查；status 不变
func (s *UserService) Update(ctx context.Context, id uint64, req domain.UserRequest) (domain.UserResponse, error) {
	in := req.Normalized()
	s.log.Info("updating user", zap.Uint64("user_id", id))

	var out domain.User
	err := s.repo.Transaction(ctx, func(tx domain.UserRepository) error {
		u, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return notFoundByID(id)
		}
		if err := checkUnique(ctx, tx, in.Email, in.PhoneNumber,
			u.Email != in.Email, u.PhoneNumber != in.PhoneNumber); err != nil {
			return err
		}
		u.FullName = in.FullName
		u.PhoneNumber = in.PhoneNumber
		u.Email = in.Email
		u.CourseName = in.CourseName
		if err := tx.Save(ctx, u); err != nil {
			return translateSave(err, u)
		}
		out = *u
		return nil
	})
	if err != nil {
		s.logRejected("update rejected", id, err)
		return domain.UserResponse{}, err
	}
	userMutations.WithLabelValues("update").Inc()
	s.log.Info("updated user", zap.Uint64("user_id", id), zap.Int64("version", out.Version))
	return domain.ToResponse(out), nil
}

// UpdateStatus 只改 status；updatedAt 与 version 照常递增
func (s *UserService) UpdateStatus(ctx context.Context, id uint64, status domain.UserStatus) (domain.UserResponse, error) {
	if !status.Valid() {
		return domain.UserResponse{}, domain.Validation("Invalid status value: "+string(status), nil)
	}
	s.log.Info("updating user status", zap.Uint64("user_id", id), zap.String("status", string(status)))

	var out domain.User
	err := s.repo.Transaction(ctx, func(tx domain.UserRepository) error {
		u, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return notFoundByID(id)
		}
		u.Status = status
		if err := tx.Save(ctx, u); err != nil {
			return translateSave(err, u)
		}
		out = *u
		return nil
	})
	if err != nil {
		s.logRejected("status update rejected", id, err)
		return domain.UserResponse{}, err
	}
	userMutations.WithLabelValues("status").Inc()
	return domain.ToResponse(out), nil
}

// Delete 先确认存在再删除，物理删除
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	s.log.Info("deleting user", zap.Uint64("user_id", id))
	err := s.repo.Transaction(ctx, func(tx domain.UserRepository) error {
		exists, err := tx.ExistsByID(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return notFoundByID(id)
		}
		return tx.DeleteByID(ctx, id)
	})
	if err != nil {
		s.logRejected("delete rejected", id, err)
		return err
	}
	userMutations.WithLabelValues("delete").Inc()
	s.log.Info("deleted user", zap.Uint64("user_id", id))
	return nil
}

func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *UserService) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return s.repo.ExistsByPhoneNumber(ctx, strings.TrimSpace(phone))
}

func (s *UserService) CountByCourse(ctx context.Context, course string) (int64, error) {
	return s.repo.CountByCourseName(ctx, strings.TrimSpace(course))
}

func (s *UserService) CountByStatus(ctx context.Context, status domain.UserStatus) (int64, error) {
	return s.repo.CountByStatus(ctx, status)
}

// CountAllStatuses 每个状态的人数，供运维端使用
func (s *UserService) CountAllStatuses(ctx context.Context) (map[domain.UserStatus]int64, error) {
	out := make(map[domain.UserStatus]int64, len(domain.AllStatuses))
	for _, st := range domain.AllStatuses {
		n, err := s.repo.CountByStatus(ctx, st)
		if err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, nil
}

func (s *UserService) logRejected(msg string, id uint64, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDuplicate) || errors.Is(err, domain.ErrConflict) {
		s.log.Warn(msg, zap.Uint64("user_id", id), zap.Error(err))
	}
}
