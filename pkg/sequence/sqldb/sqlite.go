package sqldb

import (
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (cgo-free)

	"github.com/astro-panda/queryable/pkg/fields"
)

// SQLiteDialect implements Dialect for SQLite files and in-memory
// databases.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) BuildDSN(cfg *Config) (string, error) {
	if cfg.Path != "" {
		return cfg.Path, nil
	}
	if cfg.Database != "" {
		return cfg.Database, nil
	}
	return ":memory:", nil
}

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *SQLiteDialect) Placeholder(n int) string {
	return "?"
}

func (d *SQLiteDialect) ColumnsQuery() string {
	return `SELECT name, type, CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END
FROM pragma_table_info(?)
ORDER BY cid`
}

func (d *SQLiteDialect) MapColumnType(dbTypeName string) fields.Kind {
	t := strings.ToLower(strings.TrimSpace(dbTypeName))
	if idx := strings.Index(t, "("); idx >= 0 {
		t = t[:idx]
	}
	t = strings.TrimSpace(t)

	switch {
	case t == "boolean" || t == "bool":
		return fields.KindBool
	case strings.Contains(t, "int"):
		return fields.KindInt
	case t == "real" || t == "double" || t == "float" || strings.Contains(t, "numeric") || strings.Contains(t, "decimal"):
		return fields.KindFloat
	case t == "blob":
		return fields.KindBytes
	case t == "date" || t == "datetime" || t == "timestamp":
		return fields.KindTime
	default:
		// SQLite's affinity rules funnel everything else to TEXT.
		return fields.KindString
	}
}

// NullsOrdering is empty: SQLite sorts NULLs first ascending and last
// descending.
func (d *SQLiteDialect) NullsOrdering(desc bool) string {
	return ""
}
