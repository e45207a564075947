package repo

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"lms-user-service/internal/core/cache"
	"lms-user-service/internal/domain"
)

// CachedUserRepo FindByID 走 redis 读穿缓存，写操作失效对应 key
type CachedUserRepo struct {
	domain.UserRepository
	c   *cache.Cache
	ttl time.Duration
	log *zap.Logger
}

func NewCachedUserRepo(inner domain.UserRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *CachedUserRepo {
	return &CachedUserRepo{UserRepository: inner, c: c, ttl: ttl, log: l}
}

func idKey(id uint64) string { return "id:" + strconv.FormatUint(id, 10) }

func (r *CachedUserRepo) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	return cache.GetOrLoadJSON(ctx, r.c, idKey(id), r.ttl, func(ctx context.Context) (*domain.User, error) {
		return r.UserRepository.FindByID(ctx, id)
	})
}

func (r *CachedUserRepo) ExistsByID(ctx context.Context, id uint64) (bool, error) {
	u, err := r.FindByID(ctx, id)
	return u != nil, err
}

func (r *CachedUserRepo) Save(ctx context.Context, u *domain.User) error {
	if err := r.UserRepository.Save(ctx, u); err != nil {
		return err
	}
	r.evict(ctx, u.ID)
	return nil
}

func (r *CachedUserRepo) DeleteByID(ctx context.Context, id uint64) error {
	if err := r.UserRepository.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

// Transaction 事务内的读不走缓存；提交后再失效一次，覆盖提交前被并发读回填的旧值
func (r *CachedUserRepo) Transaction(ctx context.Context, fn func(tx domain.UserRepository) error) error {
	var touched []uint64
	err := r.UserRepository.Transaction(ctx, func(tx domain.UserRepository) error {
		return fn(&txTracker{UserRepository: tx, touched: &touched})
	})
	if err != nil {
		return err
	}
	r.evict(ctx, touched...)
	return nil
}

func (r *CachedUserRepo) evict(ctx context.Context, ids ...uint64) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, idKey(id))
	}
	if err := r.c.Delete(ctx, keys...); err != nil {
		r.log.Warn("user cache evict failed", zap.Uint64s("ids", ids), zap.Error(err))
	}
}

// txTracker 记录事务中写过的 id
type txTracker struct {
	domain.UserRepository
	touched *[]uint64
}

func (t *txTracker) Save(ctx context.Context, u *domain.User) error {
	if err := t.UserRepository.Save(ctx, u); err != nil {
		return err
	}
	*t.touched = append(*t.touched, u.ID)
	return nil
}

func (t *txTracker) DeleteByID(ctx context.Context, id uint64) error {
	if err := t.UserRepository.DeleteByID(ctx, id); err != nil {
		return err
	}
	*t.touched = append(*t.touched, id)
	return nil
}
