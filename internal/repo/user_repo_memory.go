package repo

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"lms-user-service/internal/domain"
)

type memStore struct {
	mu     sync.Mutex
	rows   map[uint64]domain.User
	nextID uint64
}

// MemoryUserRepo 进程内实现，唯一约束与乐观锁语义与数据库一致；用于本地运行和测试
type MemoryUserRepo struct {
	s    *memStore
	inTx bool // 已持有 s.mu
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{s: &memStore{rows: map[uint64]domain.User{}}}
}

var _ domain.UserRepository = (*MemoryUserRepo)(nil)

func (r *MemoryUserRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *MemoryUserRepo) findOne(match func(domain.User) bool) *domain.User {
	defer r.lock()()
	for _, u := range r.s.rows {
		if match(u) {
			found := u
			return &found
		}
	}
	return nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id uint64) (*domain.User, error) {
	defer r.lock()()
	u, ok := r.s.rows[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findOne(func(u domain.User) bool { return u.Email == email }), nil
}

func (r *MemoryUserRepo) FindByPhoneNumber(_ context.Context, phone string) (*domain.User, error) {
	return r.findOne(func(u domain.User) bool { return u.PhoneNumber == phone }), nil
}

func (r *MemoryUserRepo) ExistsByID(ctx context.Context, id uint64) (bool, error) {
	u, _ := r.FindByID(ctx, id)
	return u != nil, nil
}

func (r *MemoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := r.FindByEmail(ctx, email)
	return u != nil, nil
}

func (r *MemoryUserRepo) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	u, _ := r.FindByPhoneNumber(ctx, phone)
	return u != nil, nil
}

// filter 结果按 user_id 升序
func (r *MemoryUserRepo) filter(match func(domain.User) bool) []domain.User {
	defer r.lock()()
	out := make([]domain.User, 0)
	for _, u := range r.s.rows {
		if match(u) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *MemoryUserRepo) page(match func(domain.User) bool, req domain.PageRequest) (domain.Page[domain.User], error) {
	if err := req.Validate(); err != nil {
		return domain.Page[domain.User]{}, err
	}
	rows := r.filter(match)
	slices.SortStableFunc(rows, func(a, b domain.User) int {
		c := compareField(a, b, req.SortBy)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if req.Desc {
			return -c
		}
		return c
	})
	total := int64(len(rows))
	from := min(req.Offset(), len(rows))
	to := min(from+req.Size, len(rows))
	return domain.NewPage(rows[from:to], req, total), nil
}

func compareField(a, b domain.User, field string) int {
	switch field {
	case "fullName":
		return cmp.Compare(a.FullName, b.FullName)
	case "phoneNumber":
		return cmp.Compare(a.PhoneNumber, b.PhoneNumber)
	case "email":
		return cmp.Compare(a.Email, b.Email)
	case "courseName":
		return cmp.Compare(a.CourseName, b.CourseName)
	case "status":
		return cmp.Compare(a.Status, b.Status)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "version":
		return cmp.Compare(a.Version, b.Version)
	default:
		return cmp.Compare(a.ID, b.ID)
	}
}

func (r *MemoryUserRepo) FindAll(_ context.Context, req domain.PageRequest) (domain.Page[domain.User], error) {
	return r.page(func(domain.User) bool { return true }, req)
}

func (r *MemoryUserRepo) FindByCourseNamePaged(_ context.Context, course string, req domain.PageRequest) (domain.Page[domain.User], error) {
	return r.page(func(u domain.User) bool { return u.CourseName == course }, req)
}

func (r *MemoryUserRepo) FindByCourseName(_ context.Context, course string) ([]domain.User, error) {
	return r.filter(func(u domain.User) bool { return u.CourseName == course }), nil
}

func (r *MemoryUserRepo) FindByFullNameContaining(_ context.Context, part string) ([]domain.User, error) {
	part = strings.ToLower(part)
	return r.filter(func(u domain.User) bool {
		return strings.Contains(strings.ToLower(u.FullName), part)
	}), nil
}

func (r *MemoryUserRepo) FindByCourseNameAndStatus(_ context.Context, course string, status domain.UserStatus) ([]domain.User, error) {
	return r.filter(func(u domain.User) bool { return u.CourseName == course && u.Status == status }), nil
}

func (r *MemoryUserRepo) CountByCourseName(_ context.Context, course string) (int64, error) {
	return int64(len(r.filter(func(u domain.User) bool { return u.CourseName == course }))), nil
}

func (r *MemoryUserRepo) CountByStatus(_ context.Context, status domain.UserStatus) (int64, error) {
	return int64(len(r.filter(func(u domain.User) bool { return u.Status == status }))), nil
}

func (r *MemoryUserRepo) Save(_ context.Context, u *domain.User) error {
	defer r.lock()()
	clash := func(match func(domain.User) bool) bool {
		for _, other := range r.s.rows {
			if other.ID != u.ID && match(other) {
				return true
			}
		}
		return false
	}
	if clash(func(o domain.User) bool { return o.Email == u.Email }) {
		return &domain.UniqueViolation{Field: "email"}
	}
	if clash(func(o domain.User) bool { return o.PhoneNumber == u.PhoneNumber }) {
		return &domain.UniqueViolation{Field: "phone_number"}
	}

	now := time.Now()
	if u.ID == 0 {
		r.s.nextID++
		u.ID = r.s.nextID
		u.CreatedAt = now
		u.UpdatedAt = now
		u.Version = 0
		if u.Status == "" {
			u.Status = domain.StatusActive
		}
		r.s.rows[u.ID] = *u
		return nil
	}

	cur, ok := r.s.rows[u.ID]
	if !ok || cur.Version != u.Version {
		return domain.ErrStaleVersion
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = now
	u.Version++
	r.s.rows[u.ID] = *u
	return nil
}

func (r *MemoryUserRepo) DeleteByID(_ context.Context, id uint64) error {
	defer r.lock()()
	delete(r.s.rows, id)
	return nil
}

// Transaction 独占整个存储；fn 出错时恢复快照
func (r *MemoryUserRepo) Transaction(ctx context.Context, fn func(tx domain.UserRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snapshot := maps.Clone(r.s.rows)
	nextID := r.s.nextID
	if err := fn(&MemoryUserRepo{s: r.s, inTx: true}); err != nil {
		r.s.rows = snapshot
		r.s.nextID = nextID
		return err
	}
	return nil
}
