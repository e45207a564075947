package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	ReadTimeoutSec    int    `mapstructure:"readTimeoutSec"`
	WriteTimeoutSec   int    `mapstructure:"writeTimeoutSec"`
	IdleTimeoutSec    int    `mapstructure:"idleTimeoutSec"`
	RequestTimeoutSec int    `mapstructure:"requestTimeoutSec"`
	RateLimitRPS      int    `mapstructure:"rateLimitRps"`
	RateLimitBurst    int    `mapstructure:"rateLimitBurst"`
	PerIPRPS          int    `mapstructure:"perIpRps"`
	PerIPBurst        int    `mapstructure:"perIpBurst"`
	MaxInFlight       int64  `mapstructure:"maxInFlight"`
	MaxBodyBytes      int64  `mapstructure:"maxBodyBytes"`
}

func (h HTTP) ReadTimeout() time.Duration    { return time.Duration(h.ReadTimeoutSec) * time.Second }
func (h HTTP) WriteTimeout() time.Duration   { return time.Duration(h.WriteTimeoutSec) * time.Second }
func (h HTTP) IdleTimeout() time.Duration    { return time.Duration(h.IdleTimeoutSec) * time.Second }
func (h HTTP) RequestTimeout() time.Duration { return time.Duration(h.RequestTimeoutSec) * time.Second }

type AdminHTTP struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type App struct {
	Name  string    `mapstructure:"name"`
	Env   string    `mapstructure:"env"`
	HTTP  HTTP      `mapstructure:"http"`
	Admin AdminHTTP `mapstructure:"admin"`
}

type LogFile struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
}

type Log struct {
	Level string  `mapstructure:"level"`
	JSON  bool    `mapstructure:"json"`
	File  LogFile `mapstructure:"file"`
}

type JWT struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	TTLMin int    `mapstructure:"ttlMin"`
}

func (j JWT) TTL() time.Duration { return time.Duration(j.TTLMin) * time.Minute }

// Admin 运维账号；PasswordHash 用 `admin hash <pw>` 生成
type Admin struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"passwordHash"`
}

// Redis Addr 为空时不启用缓存
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttlSec"`
	Prefix   string `mapstructure:"prefix"`
}

func (r Redis) Enabled() bool      { return strings.TrimSpace(r.Addr) != "" }
func (r Redis) TTL() time.Duration { return time.Duration(r.TTLSec) * time.Second }

type DB struct {
	Driver             string `mapstructure:"driver"` // postgres | mysql | memory
	DSN                string `mapstructure:"dsn"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MaxOpenConns       int    `mapstructure:"maxOpenConns"`
	MaxIdleConns       int    `mapstructure:"maxIdleConns"`
	ConnMaxLifetimeMin int    `mapstructure:"connMaxLifetimeMin"`
	AutoMigrate        bool   `mapstructure:"autoMigrate"`
	LogLevel           string `mapstructure:"logLevel"`
}

type CORS struct {
	AllowOrigins []string `mapstructure:"allowOrigins"`
	MaxAgeSec    int      `mapstructure:"maxAgeSec"`
}

type Config struct {
	App   App   `mapstructure:"app"`
	Log   Log   `mapstructure:"log"`
	JWT   JWT   `mapstructure:"jwt"`
	Admin Admin `mapstructure:"admin"`
	DB    DB    `mapstructure:"db"`
	Redis Redis `mapstructure:"redis"`
	CORS  CORS  `mapstructure:"cors"`
}

const DefaultPath = "./configs/config.local.yaml"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lms-user-service")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.requestTimeoutSec", 10)
	v.SetDefault("app.http.rateLimitRps", 200)
	v.SetDefault("app.http.rateLimitBurst", 400)
	v.SetDefault("app.http.perIpRps", 20)
	v.SetDefault("app.http.perIpBurst", 40)
	v.SetDefault("app.http.maxInFlight", 300)
	v.SetDefault("app.http.maxBodyBytes", 1<<20)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "lms-user-admin")
	v.SetDefault("jwt.ttlMin", 60)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.passwordHash", "")

	v.SetDefault("db.driver", "memory")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 300)
	v.SetDefault("redis.prefix", "lms:user:")

	v.SetDefault("cors.allowOrigins", []string{"*"})
	v.SetDefault("cors.maxAgeSec", 3600)
}

// Load 读取 YAML；path 为空时取 CONFIG_PATH，再退回 DefaultPath。
// 默认路径文件不存在时只用默认值 + 环境变量（APP_DB_DRIVER 这种）
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
		if path == "" {
			path = DefaultPath
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "mysql":
		if strings.TrimSpace(c.DB.DSN) == "" {
			return fmt.Errorf("db.dsn is required for driver %q", c.DB.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	if c.App.HTTP.Port <= 0 || c.App.Admin.Port <= 0 {
		return errors.New("app.http.port and app.admin.port must be positive")
	}
	return nil
}
