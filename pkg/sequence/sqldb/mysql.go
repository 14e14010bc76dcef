package sqldb

import (
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/astro-panda/queryable/pkg/fields"
)

// MySQLDialect implements Dialect for MySQL.
type MySQLDialect struct{}

func (d *MySQLDialect) DriverName() string { return "mysql" }

func (d *MySQLDialect) BuildDSN(cfg *Config) (string, error) {
	port := cfg.Port
	if port <= 0 {
		port = 3306
	}

	mc := mysqldriver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
	mc.DBName = cfg.Database
	mc.AllowNativePasswords = true
	mc.ParseTime = true
	mc.Collation = cfg.Collation
	mc.Params = map[string]string{
		"charset": cfg.Charset,
	}

	if cfg.ConnectTimeout > 0 {
		mc.Timeout = time.Duration(cfg.ConnectTimeout) * time.Second
	}

	switch strings.ToLower(cfg.SSLMode) {
	case "true", "required", "require":
		mc.TLSConfig = "true"
	case "skip-verify", "preferred":
		mc.TLSConfig = "skip-verify"
	case "false", "disable", "":
		mc.TLSConfig = "false"
	default:
		mc.TLSConfig = cfg.SSLMode
	}

	return mc.FormatDSN(), nil
}

func (d *MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MySQLDialect) Placeholder(n int) string {
	return "?"
}

func (d *MySQLDialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`
}

func (d *MySQLDialect) MapColumnType(dbTypeName string) fields.Kind {
	t := strings.ToLower(dbTypeName)

	if t == "tinyint(1)" {
		return fields.KindBool
	}

	// Strip parenthesized parameters: varchar(255) -> varchar.
	if idx := strings.Index(t, "("); idx >= 0 {
		t = t[:idx]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, " unsigned")

	switch t {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint", "year":
		return fields.KindInt
	case "float", "double", "decimal", "numeric", "real":
		return fields.KindFloat
	case "varchar", "char", "text", "tinytext", "mediumtext", "longtext", "enum", "set", "json":
		return fields.KindString
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		return fields.KindBytes
	case "date", "datetime", "timestamp":
		return fields.KindTime
	case "bit", "bool", "boolean":
		return fields.KindBool
	default:
		return fields.KindString
	}
}

// NullsOrdering is empty: MySQL already sorts NULLs first ascending and
// last descending.
func (d *MySQLDialect) NullsOrdering(desc bool) string {
	return ""
}
