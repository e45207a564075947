package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lms-user-service/internal/core/cache"
	"lms-user-service/internal/core/config"
	"lms-user-service/internal/core/database"
	"lms-user-service/internal/core/logger"
	"lms-user-service/internal/domain"
	"lms-user-service/internal/repo"
	"lms-user-service/internal/service"
	"lms-user-service/internal/transport/http/router"
)

// Stack 两个进程共用的依赖
type Stack struct {
	Repo    domain.UserRepository
	Service *service.UserService
	Checks  map[string]router.HealthCheck

	closers []func() error
}

func Logger(cfg *config.Config) (*zap.Logger, func()) {
	return logger.New(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		Development: cfg.App.Env == "local",
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.File.Enable,
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
		Fields: []zap.Field{zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env)},
	})
}

func EngineOptions(cfg *config.Config) router.EngineOptions {
	h := cfg.App.HTTP
	return router.EngineOptions{
		RateLimitRPS:   h.RateLimitRPS,
		RateLimitBurst: h.RateLimitBurst,
		PerIPRPS:       h.PerIPRPS,
		PerIPBurst:     h.PerIPBurst,
		MaxInFlight:    h.MaxInFlight,
		MaxBodyBytes:   h.MaxBodyBytes,
		RequestTimeout: h.RequestTimeout(),
		AllowOrigins:   cfg.CORS.AllowOrigins,
		CORSMaxAge:     time.Duration(cfg.CORS.MaxAgeSec) * time.Second,
	}
}

// Build 按 db.driver 选存储，redis.addr 非空时套一层读缓存
func Build(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Stack, error) {
	s := &Stack{Checks: map[string]router.HealthCheck{}}

	switch cfg.DB.Driver {
	case "memory":
		l.Warn("using in-memory user store, data is lost on restart")
		s.Repo = repo.NewMemoryUserRepo()
	case "postgres", "mysql":
		db, err := database.NewGorm(ctx, database.Opts{
			Driver:             cfg.DB.Driver,
			DSN:                cfg.DB.DSN,
			Username:           cfg.DB.Username,
			Password:           cfg.DB.Password,
			MaxOpenConns:       cfg.DB.MaxOpenConns,
			MaxIdleConns:       cfg.DB.MaxIdleConns,
			ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
			LogLevel:           cfg.DB.LogLevel,
		}, l)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return database.Close(db) })
		l.Info("database connected", zap.String("driver", cfg.DB.Driver))

		if cfg.DB.AutoMigrate {
			if err := database.Migrate(db); err != nil {
				s.Close()
				return nil, fmt.Errorf("automigrate: %w", err)
			}
			l.Info("automigrate done")
		}
		s.Repo = repo.NewUserRepo(db)
		s.Checks["db"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	default:
		return nil, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, cfg.DB.Driver)
	}

	if cfg.Redis.Enabled() {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = c.Close()
			s.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		s.closers = append(s.closers, c.Close)
		s.Repo = repo.NewCachedUserRepo(s.Repo, c, cfg.Redis.TTL(), l)
		s.Checks["redis"] = c.Ping
		l.Info("user cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL()))
	}

	s.Service = service.NewUserService(s.Repo, l.Named("user"))
	return s, nil
}

// Close 逆序释放
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
