package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lms-user-service/internal/core/logger"
	"lms-user-service/internal/domain"
)

var ErrUnsupportedDriver = errors.New("unsupported db driver")

type Opts struct {
	Driver             string
	DSN                string
	Username           string // 非空时覆盖 DSN 中的账号
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string // silent / error / warn / info
}

// Dialector 按驱动规整 DSN；返回可打印的脱敏 DSN
func Dialector(o Opts) (gorm.Dialector, string, error) {
	switch o.Driver {
	case "postgres":
		dsn, masked, err := NormalizePostgresDSN(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, "", err
		}
		return postgres.Open(dsn), masked, nil
	case "mysql":
		dsn, masked, err := NormalizeMySQLDSN(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, "", err
		}
		return mysql.Open(dsn), masked, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}
}

// NewGorm 打开连接池并 ping 一次
func NewGorm(ctx context.Context, o Opts, l *zap.Logger) (*gorm.DB, error) {
	dial, masked, err := Dialector(o)
	if err != nil {
		return nil, err
	}
	l.Info("opening database", zap.String("driver", o.Driver), zap.String("dsn", masked))

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:                 GormLogger(l, o.LogLevel),
		PrepareStmt:            true,
		SkipDefaultTransaction: true, // 写操作由仓储层显式开事务
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	if o.ConnMaxLifetimeMin > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", o.Driver, err)
	}
	return db, nil
}

// Migrate 建 users 表及唯一索引
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{})
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormLogger SQL 日志转入 zap；慢查询阈值 200ms，忽略 RecordNotFound
func GormLogger(l *zap.Logger, level string) gormlogger.Interface {
	lvl := gormlogger.Warn
	switch level {
	case "silent":
		lvl = gormlogger.Silent
	case "error":
		lvl = gormlogger.Error
	case "info":
		lvl = gormlogger.Info
	}
	w := log.New(logger.ToWriter(l.Named("gorm"), zapcore.InfoLevel), "", 0)
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
