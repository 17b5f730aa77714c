package config

import (
	"fmt"
	neturl "net/url"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

// buildDSN assembles a MySQL DSN from discrete database settings.
func buildDSN(db *DatabaseRuntimeConfig) string {
	port := db.Port
	if port <= 0 {
		port = defaultDBPort
	}

	cfg := mysqlDriver.NewConfig()
	cfg.User = firstNonEmpty(db.User, defaultDBUser)
	cfg.Passwd = firstNonEmpty(db.Password, defaultDBPassword)
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", firstNonEmpty(db.Host, defaultDBHost), port)
	cfg.DBName = firstNonEmpty(db.Name, defaultDBName)
	cfg.ParseTime = true
	cfg.Loc = resolveLocation(firstNonEmpty(db.Loc, defaultDBLoc))
	cfg.Params = map[string]string{
		"charset": firstNonEmpty(db.Charset, defaultDBCharset),
	}
	return cfg.FormatDSN()
}

func resolveLocation(name string) *time.Location {
	if strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// buildRedisURL assembles a redis:// URL from discrete redis settings.
func buildRedisURL(r *RedisRuntimeConfig) string {
	host := firstNonEmpty(r.Host, defaultRedisHost)
	port := r.Port
	if port <= 0 {
		port = defaultRedisPort
	}

	var sb strings.Builder
	sb.WriteString("redis://")
	if r.Username != "" || r.Password != "" {
		sb.WriteString(neturl.QueryEscape(r.Username))
		if r.Password != "" {
			sb.WriteString(":")
			sb.WriteString(neturl.QueryEscape(r.Password))
		}
		sb.WriteString("@")
	}
	fmt.Fprintf(&sb, "%s:%d/%d", host, port, r.DB)
	return sb.String()
}
