package database

import (
	"fmt"
	"net/url"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
)

// mysqlConfig 接受驱动原生 DSN 或 mysql:// URL；配置里的账号密码优先
func mysqlConfig(dsn, user, pass string) (*gomysql.Config, error) {
	dsn = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(dsn), "jdbc:"))
	if strings.HasPrefix(dsn, "mysql://") {
		native, err := fromURL(dsn)
		if err != nil {
			return nil, err
		}
		dsn = native
	}
	mc, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	if user != "" {
		mc.User = user
	}
	if pass != "" {
		mc.Passwd = pass
	}
	mc.ParseTime = true
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	if _, ok := mc.Params["charset"]; !ok {
		mc.Params["charset"] = "utf8mb4"
	}
	return mc, nil
}

// fromURL mysql://u:p@host:3306/db?x=y -> u:p@tcp(host:3306)/db?x=y
func fromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	mc := gomysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = u.Host
	mc.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
	}
	native := mc.FormatDSN()
	if u.RawQuery != "" {
		sep := "?"
		if strings.Contains(native, "?") {
			sep = "&"
		}
		native += sep + u.RawQuery
	}
	return native, nil
}

func maskedDSN(mc *gomysql.Config) string {
	c := mc.Clone()
	if c.Passwd != "" {
		c.Passwd = "****"
	}
	return c.FormatDSN()
}
