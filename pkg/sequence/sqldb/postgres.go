package sqldb

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/astro-panda/queryable/pkg/fields"
)

// PostgresDialect implements Dialect for PostgreSQL.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) BuildDSN(cfg *Config) (string, error) {
	port := cfg.Port
	if port <= 0 {
		port = 5432
	}

	parts := []string{
		fmt.Sprintf("host=%s", cfg.Host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", cfg.User),
		fmt.Sprintf("password=%s", cfg.Password),
		fmt.Sprintf("dbname=%s", cfg.Database),
		fmt.Sprintf("sslmode=%s", cfg.SSLMode),
	}

	if cfg.Schema != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", cfg.Schema))
	}
	if cfg.ConnectTimeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", cfg.ConnectTimeout))
	}

	return strings.Join(parts, " "), nil
}

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *PostgresDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (d *PostgresDialect) ColumnsQuery() string {
	return `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`
}

func (d *PostgresDialect) MapColumnType(dbTypeName string) fields.Kind {
	t := strings.ToLower(strings.TrimSpace(dbTypeName))
	t = strings.TrimSuffix(t, "[]")

	switch t {
	case "smallint", "integer", "bigint", "serial", "bigserial", "smallserial", "int2", "int4", "int8":
		return fields.KindInt
	case "real", "float4", "double precision", "float8", "numeric", "decimal", "money":
		return fields.KindFloat
	case "boolean", "bool":
		return fields.KindBool
	case "character varying", "varchar", "character", "char", "text", "name", "citext",
		"json", "jsonb", "uuid", "interval", "xml", "inet", "cidr", "macaddr", "macaddr8":
		return fields.KindString
	case "bytea":
		return fields.KindBytes
	case "date", "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz":
		return fields.KindTime
	case "time", "time without time zone", "time with time zone", "timetz":
		return fields.KindString
	default:
		return fields.KindString
	}
}

// NullsOrdering forces the smallest-first convention: PostgreSQL sorts
// NULLs last ascending by default.
func (d *PostgresDialect) NullsOrdering(desc bool) string {
	if desc {
		return " NULLS LAST"
	}
	return " NULLS FIRST"
}
