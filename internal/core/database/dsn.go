package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
)

// NormalizeMySQLDSN 接受 go-sql-driver 原生 DSN、mysql:// 或 jdbc:mysql:// URL。
// 常见 JDBC 参数换成驱动参数，默认 parseTime=true、charset=utf8mb4
func NormalizeMySQLDSN(input, userOverride, passOverride string) (string, string, error) {
	in := strings.TrimSpace(input)
	in = strings.TrimPrefix(in, "jdbc:")

	var cfg *gomysql.Config
	if strings.HasPrefix(in, "mysql://") {
		u, err := url.Parse(in)
		if err != nil {
			return "", "", fmt.Errorf("parse mysql url: %w", err)
		}
		cfg = gomysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" && u.Host != "" {
			cfg.Addr = u.Host + ":3306"
		}
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		if err := applyJDBCParams(cfg, u.Query()); err != nil {
			return "", "", err
		}
	} else {
		var err error
		cfg, err = gomysql.ParseDSN(in)
		if err != nil {
			return "", "", fmt.Errorf("parse mysql dsn: %w", err)
		}
	}

	if userOverride != "" {
		cfg.User = userOverride
	}
	if passOverride != "" {
		cfg.Passwd = passOverride
	}
	cfg.ParseTime = true
	// 原生 DSN 的 charset 由驱动解析进内部字段，不在 Params 里
	if _, ok := cfg.Params["charset"]; !ok && !strings.Contains(in, "charset=") {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["charset"] = "utf8mb4"
	}

	dsn := cfg.FormatDSN()
	masked := cfg.Clone()
	if masked.Passwd != "" {
		masked.Passwd = "****"
	}
	return dsn, masked.FormatDSN(), nil
}

func applyJDBCParams(cfg *gomysql.Config, q url.Values) error {
	for k, vs := range q {
		if len(vs) == 0 {
			continue
		}
		v := vs[0]
		switch k {
		case "user":
			cfg.User = v
		case "password":
			cfg.Passwd = v
		case "characterEncoding", "charset":
			if strings.EqualFold(v, "utf-8") || strings.EqualFold(v, "utf8") {
				v = "utf8mb4"
			}
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params["charset"] = v
		case "useSSL", "tls":
			switch strings.ToLower(v) {
			case "true", "1":
				cfg.TLSConfig = "true"
			case "skip-verify", "preferred":
				cfg.TLSConfig = strings.ToLower(v)
			default:
				cfg.TLSConfig = "false"
			}
		case "serverTimezone", "loc":
			loc, err := time.LoadLocation(v)
			if err != nil {
				return fmt.Errorf("unknown time zone %q: %w", v, err)
			}
			cfg.Loc = loc
		case "connectTimeout":
			// JDBC 以毫秒计
			if d, err := time.ParseDuration(v + "ms"); err == nil {
				cfg.Timeout = d
			}
		case "useUnicode", "zeroDateTimeBehavior", "allowPublicKeyRetrieval", "autoReconnect":
			// 驱动不认识，丢弃
		default:
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params[k] = v
		}
	}
	return nil
}

// NormalizePostgresDSN 接受 postgres:// URL、jdbc:postgresql:// URL 或 key=value DSN
func NormalizePostgresDSN(input, userOverride, passOverride string) (string, string, error) {
	in := strings.TrimSpace(input)
	if strings.HasPrefix(in, "jdbc:postgresql://") {
		in = "postgres://" + strings.TrimPrefix(in, "jdbc:postgresql://")
	}

	if !strings.HasPrefix(in, "postgres://") && !strings.HasPrefix(in, "postgresql://") {
		// key=value 形式直接追加覆盖项，后出现的键生效
		dsn := in
		if userOverride != "" {
			dsn += " user=" + userOverride
		}
		if passOverride != "" {
			dsn += " password=" + passOverride
		}
		return strings.TrimSpace(dsn), maskKeyValue(dsn), nil
	}

	u, err := url.Parse(in)
	if err != nil {
		return "", "", fmt.Errorf("parse postgres url: %w", err)
	}
	q := u.Query()
	user, pass := "", ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	if v := q.Get("user"); v != "" {
		user = v
		q.Del("user")
	}
	if v := q.Get("password"); v != "" {
		pass = v
		q.Del("password")
	}
	if userOverride != "" {
		user = userOverride
	}
	if passOverride != "" {
		pass = passOverride
	}
	// JDBC 的 ssl=true 对应 sslmode=require
	if v := q.Get("ssl"); v != "" {
		if q.Get("sslmode") == "" {
			if v == "true" {
				q.Set("sslmode", "require")
			} else {
				q.Set("sslmode", "disable")
			}
		}
		q.Del("ssl")
	}
	q.Del("currentSchema")

	switch {
	case user != "" && pass != "":
		u.User = url.UserPassword(user, pass)
	case user != "":
		u.User = url.User(user)
	default:
		u.User = nil
	}
	u.Scheme = "postgres"
	u.RawQuery = q.Encode()
	return u.String(), u.Redacted(), nil
}

func maskKeyValue(dsn string) string {
	parts := strings.Fields(dsn)
	for i, p := range parts {
		if strings.HasPrefix(p, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
