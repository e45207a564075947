package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lms-user-service/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	return r.first(ctx, "user_id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepo) FindByPhoneNumber(ctx context.Context, phone string) (*domain.User, error) {
	return r.first(ctx, "phone_number = ?", phone)
}

func (r *UserRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where(query, arg).Limit(1).Count(&n).Error
	return n > 0, err
}

func (r *UserRepo) ExistsByID(ctx context.Context, id uint64) (bool, error) {
	return r.exists(ctx, "user_id = ?", id)
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *UserRepo) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone_number = ?", phone)
}

// page 先 Count 再取当前页
func (r *UserRepo) page(ctx context.Context, scope func(*gorm.DB) *gorm.DB, req domain.PageRequest) (domain.Page[domain.User], error) {
	if err := req.Validate(); err != nil {
		return domain.Page[domain.User]{}, err
	}
	col, _ := domain.SortColumn(req.SortBy)
	q := scope(r.db.WithContext(ctx).Model(&domain.User{}))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return domain.Page[domain.User]{}, err
	}
	var us []domain.User
	err := scope(r.db.WithContext(ctx).Model(&domain.User{})).
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: req.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "user_id"}, Desc: req.Desc}).
		Offset(req.Offset()).Limit(req.Size).
		Find(&us).Error
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	return domain.NewPage(us, req, total), nil
}

func all(q *gorm.DB) *gorm.DB { return q }

func byCourse(course string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("course_name = ?", course) }
}

func (r *UserRepo) FindAll(ctx context.Context, req domain.PageRequest) (domain.Page[domain.User], error) {
	return r.page(ctx, all, req)
}

func (r *UserRepo) FindByCourseNamePaged(ctx context.Context, course string, req domain.PageRequest) (domain.Page[domain.User], error) {
	return r.page(ctx, byCourse(course), req)
}

func (r *UserRepo) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]domain.User, error) {
	var us []domain.User
	err := scope(r.db.WithContext(ctx)).Order("user_id ASC").Find(&us).Error
	if err != nil {
		return nil, err
	}
	return us, nil
}

func (r *UserRepo) FindByCourseName(ctx context.Context, course string) ([]domain.User, error) {
	return r.list(ctx, byCourse(course))
}

// FindByFullNameContaining 大小写不敏感的子串匹配；LIKE 通配符按字面量处理
func (r *UserRepo) FindByFullNameContaining(ctx context.Context, part string) ([]domain.User, error) {
	like := "%" + escapeLike(strings.ToLower(part)) + "%"
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where(`LOWER(full_name) LIKE ? ESCAPE '!'`, like)
	})
}

func (r *UserRepo) FindByCourseNameAndStatus(ctx context.Context, course string, status domain.UserStatus) ([]domain.User, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("course_name = ? AND status = ?", course, status)
	})
}

func (r *UserRepo) count(ctx context.Context, query string, arg any) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where(query, arg).Count(&n).Error
	return n, err
}

func (r *UserRepo) CountByCourseName(ctx context.Context, course string) (int64, error) {
	return r.count(ctx, "course_name = ?", course)
}

func (r *UserRepo) CountByStatus(ctx context.Context, status domain.UserStatus) (int64, error) {
	return r.count(ctx, "status = ?", status)
}

// Save ID 为 0 时插入；否则 WHERE version = 旧值 更新，并把 version+1
func (r *UserRepo) Save(ctx context.Context, u *domain.User) error {
	if u.ID == 0 {
		u.Version = 0
		if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
			return translateWriteErr(err)
		}
		return nil
	}

	now := time.Now()
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("user_id = ? AND version = ?", u.ID, u.Version).
		Updates(map[string]any{
			"full_name":    u.FullName,
			"phone_number": u.PhoneNumber,
			"email":        u.Email,
			"course_name":  u.CourseName,
			"status":       u.Status,
			"updated_at":   now,
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translateWriteErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleVersion
	}
	u.UpdatedAt = now
	u.Version++
	return nil
}

func (r *UserRepo) DeleteByID(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&domain.User{}).Error
}

func (r *UserRepo) Transaction(ctx context.Context, fn func(tx domain.UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepo{db: tx})
	})
}

// 唯一索引名，与 domain.User 的 gorm tag 一致
const (
	idxEmail = "uk_users_email"
	idxPhone = "uk_users_phone_number"
)

// translateWriteErr 把唯一索引冲突转成 *domain.UniqueViolation
func translateWriteErr(err error) error {
	if !isDupKey(err) {
		return err
	}
	return &domain.UniqueViolation{Field: dupField(strings.ToLower(err.Error())), Err: err}
}

// dupField 按索引名判断冲突列；MySQL 报错中冲突值在索引名之前，取最后出现的索引名
func dupField(msg string) string {
	e, p := strings.LastIndex(msg, idxEmail), strings.LastIndex(msg, idxPhone)
	switch {
	case p > e:
		return "phone_number"
	case e >= 0:
		return "email"
	case strings.Contains(msg, "(phone_number)"):
		return "phone_number"
	}
	return "email"
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 未开启 TranslateError 时按驱动报错文本兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
