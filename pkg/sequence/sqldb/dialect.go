// Package sqldb backs a sequence with a relational table over
// database/sql. Resolved filter trees and sort keys are accepted
// through the pushdown interfaces and translated into parameterized
// WHERE and ORDER BY clauses; operations that arrive as compiled Go
// functions instead are applied to the fetched rows.
package sqldb

import (
	"github.com/astro-panda/queryable/pkg/fields"
)

// Dialect encapsulates database-engine-specific behavior.
type Dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// BuildDSN constructs the driver-specific connection string.
	BuildDSN(cfg *Config) (string, error)

	// QuoteIdentifier wraps a table/column name in dialect quoting.
	QuoteIdentifier(name string) string

	// Placeholder returns the parameter placeholder for the n-th
	// parameter (1-based).
	Placeholder(n int) string

	// ColumnsQuery returns SQL selecting (column_name, data_type,
	// is_nullable) for a table given as its single parameter, in
	// ordinal position order. is_nullable is 'YES' or 'NO'.
	ColumnsQuery() string

	// MapColumnType converts a database column type name to a field
	// kind.
	MapColumnType(dbTypeName string) fields.Kind

	// NullsOrdering returns the clause appended to an ORDER BY key so
	// NULL values sort as the smallest, or "" when the engine already
	// orders them that way.
	NullsOrdering(desc bool) string
}

// Config holds the connection settings shared by the SQL dialects.
type Config struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`

	// Path is the database file for file-backed engines.
	Path string `json:"path,omitempty"`

	// Pool settings, in seconds where durations apply.
	MaxOpenConns    int `json:"max_open_conns,omitempty"`
	MaxIdleConns    int `json:"max_idle_conns,omitempty"`
	ConnMaxLifetime int `json:"conn_max_lifetime,omitempty"`
	ConnMaxIdleTime int `json:"conn_max_idle_time,omitempty"`
	ConnectTimeout  int `json:"connect_timeout,omitempty"`

	SSLMode string `json:"ssl_mode,omitempty"`

	// MySQL-specific.
	Charset   string `json:"charset,omitempty"`
	Collation string `json:"collation,omitempty"`

	// PostgreSQL-specific.
	Schema string `json:"schema,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 300
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 60
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10
	}
	if c.Charset == "" {
		c.Charset = "utf8mb4"
	}
	if c.Collation == "" {
		c.Collation = "utf8mb4_unicode_ci"
	}
	if c.Schema == "" {
		c.Schema = "public"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
}
