// Package dburl builds driver-specific DSN strings from resolved server
// endpoints.
package dburl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/handydb/handydb/config"
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("dburl: unknown database driver")

// DSN builds the database/sql driver name and DSN for an endpoint.
// autoCommit false is honored where the driver supports it (MySQL session
// parameter); Postgres and SQLite connections always autocommit and rely on
// explicit transactions instead.
func DSN(srv config.Server, autoCommit bool) (driverName, dsn string, err error) {
	switch srv.Driver {
	case DriverMySQL:
		return "mysql", mysqlDSN(srv, autoCommit), nil
	case DriverPostgres:
		return "pgx", postgresDSN(srv), nil
	case DriverSQLite:
		return "sqlite", sqliteDSN(srv), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownDriver, srv.Driver)
	}
}

// mysqlDSN formats a go-sql-driver DSN. The endpoint's database name falls
// back to the first schema when unset.
func mysqlDSN(srv config.Server, autoCommit bool) string {
	cfg := mysql.NewConfig()
	cfg.User = srv.User
	cfg.Passwd = srv.Password
	cfg.Net = "tcp"
	cfg.Addr = hostPort(srv.Host, srv.Port, 3306)
	cfg.DBName = srv.Database
	if cfg.DBName == "" && len(srv.Schemas) > 0 {
		cfg.DBName = srv.Schemas[0]
	}
	if !autoCommit {
		cfg.Params = map[string]string{"autocommit": "0"}
	}
	return cfg.FormatDSN()
}

// postgresDSN formats a keyword/value DSN for the pgx stdlib driver.
// The schema list becomes the session search_path.
func postgresDSN(srv config.Server) string {
	var b strings.Builder
	kv := func(k, v string) {
		if v == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteKV(v))
	}
	kv("host", srv.Host)
	if srv.Port != 0 {
		kv("port", fmt.Sprintf("%d", srv.Port))
	}
	kv("dbname", srv.Database)
	kv("user", srv.User)
	kv("password", srv.Password)
	if len(srv.Schemas) > 0 {
		kv("options", "-c search_path="+strings.Join(srv.Schemas, ","))
	}
	return b.String()
}

// sqliteDSN returns the file path (or :memory:) for the modernc driver.
func sqliteDSN(srv config.Server) string {
	if srv.Database == "" {
		return ":memory:"
	}
	return srv.Database
}

func hostPort(host string, port, defaultPort int) string {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// quoteKV quotes a libpq keyword/value setting when it contains spaces or
// quotes.
func quoteKV(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
