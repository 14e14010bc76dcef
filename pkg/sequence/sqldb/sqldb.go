package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// Source owns a database connection pool and hands out table-backed
// sequences.
type Source struct {
	db      *sql.DB
	dialect Dialect
	log     logging.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger replaces the no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.log = l
		}
	}
}

// Open connects to the database described by the config and verifies
// connectivity.
func Open(ctx context.Context, dialect Dialect, cfg *Config, opts ...Option) (*Source, error) {
	cfg.applyDefaults()

	dsn, err := dialect.BuildDSN(cfg)
	if err != nil {
		return nil, sequence.NewErrConnectionFailed(dialect.DriverName(), fmt.Sprintf("build DSN: %v", err))
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, sequence.NewErrConnectionFailed(dialect.DriverName(), err.Error())
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ConnectTimeout)*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, sequence.NewErrConnectionFailed(dialect.DriverName(), err.Error())
	}

	return FromDB(db, dialect, opts...), nil
}

// FromDB wraps an already-opened pool.
func FromDB(db *sql.DB, dialect Dialect, opts ...Option) *Source {
	s := &Source{db: db, dialect: dialect, log: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying pool.
func (s *Source) DB() *sql.DB { return s.db }

// Close releases the pool.
func (s *Source) Close() error { return s.db.Close() }

// Columns discovers a table's column metadata.
func (s *Source) Columns(ctx context.Context, table string) ([]fields.Column, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.ColumnsQuery(), table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	var cols []fields.Column
	for rows.Next() {
		var name, dbType, nullable string
		if err := rows.Scan(&name, &dbType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, fields.Column{
			Name:     name,
			Kind:     s.dialect.MapColumnType(dbType),
			Nullable: nullable == "YES",
		})
	}
	return cols, rows.Err()
}

// Table builds a sequence over the named table, discovering its
// columns.
func (s *Source) Table(ctx context.Context, table string) (*Sequence, error) {
	cols, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	kinds := make(map[string]fields.Kind, len(cols))
	for _, col := range cols {
		kinds[col.Name] = col.Kind
	}
	return &Sequence{
		src:   s,
		table: table,
		cols:  cols,
		kinds: kinds,
		reg:   fields.FromColumns(cols),
	}, nil
}

type localOp func([]sequence.Row) []sequence.Row

// Sequence is a lazily built SELECT over one table. Pushed-down
// filters and sorts become SQL; compiled predicates, comparators and
// post-slice narrowing run on the fetched rows.
type Sequence struct {
	src   *Source
	table string
	cols  []fields.Column
	kinds map[string]fields.Kind
	reg   *fields.Registry[sequence.Row]

	where    string
	params   []interface{}
	order    string
	offset   int
	limit    int
	hasLimit bool

	local []localOp
}

// Registry exposes the field registry discovered from the table.
func (q *Sequence) Registry() *fields.Registry[sequence.Row] { return q.reg }

// TableColumns exposes the discovered column metadata.
func (q *Sequence) TableColumns() []fields.Column { return q.cols }

func (q *Sequence) clone() *Sequence {
	next := *q
	next.params = append([]interface{}(nil), q.params...)
	next.local = append([]localOp(nil), q.local...)
	return &next
}

func (q *Sequence) withLocal(op localOp) *Sequence {
	next := q.clone()
	next.local = append(next.local, op)
	return next
}

// sliceable reports whether skip/take can still compose into
// OFFSET/LIMIT without reordering against pending local operations.
func (q *Sequence) sliceable() bool { return len(q.local) == 0 }

// PushFilter translates a resolved filter tree into the WHERE clause.
// It declines once the sequence has been sliced or carries local
// operations, since a later WHERE would apply before them.
func (q *Sequence) PushFilter(node *sequence.FilterNode) (sequence.Sequence[sequence.Row], bool) {
	if q.hasLimit || q.offset > 0 || len(q.local) > 0 {
		return nil, false
	}
	clause, params := buildWhere(q.src.dialect, q.kinds, node, len(q.params))
	if clause == "" {
		return q, true
	}
	next := q.clone()
	if next.where != "" {
		next.where = "(" + next.where + ") AND " + clause
	} else {
		next.where = clause
	}
	next.params = append(next.params, params...)
	q.src.log.Debug("sqldb: pushed filter on %s: %s", q.table, clause)
	return next, true
}

// PushSort translates sort keys into the ORDER BY clause, declining
// under the same conditions as PushFilter.
func (q *Sequence) PushSort(keys []sequence.SortKey) (sequence.Sequence[sequence.Row], bool) {
	if q.hasLimit || q.offset > 0 || len(q.local) > 0 {
		return nil, false
	}
	body := buildOrder(q.src.dialect, q.kinds, keys)
	if body == "" {
		return q, true
	}
	next := q.clone()
	next.order = body
	q.src.log.Debug("sqldb: pushed sort on %s: %s", q.table, body)
	return next, true
}

// Where applies a compiled predicate to the fetched rows.
func (q *Sequence) Where(p sequence.Predicate[sequence.Row]) sequence.Sequence[sequence.Row] {
	if p == nil {
		return q
	}
	return q.withLocal(func(in []sequence.Row) []sequence.Row {
		out := make([]sequence.Row, 0, len(in))
		for _, row := range in {
			if p(row) {
				out = append(out, row)
			}
		}
		return out
	})
}

// SortBy applies a compiled comparator to the fetched rows.
func (q *Sequence) SortBy(cmp sequence.Comparator[sequence.Row]) sequence.Sequence[sequence.Row] {
	if cmp == nil {
		return q
	}
	return q.withLocal(func(in []sequence.Row) []sequence.Row {
		out := make([]sequence.Row, len(in))
		copy(out, in)
		sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) < 0 })
		return out
	})
}

// Skip drops the first n rows, composing into OFFSET while possible.
func (q *Sequence) Skip(n int) sequence.Sequence[sequence.Row] {
	if n <= 0 {
		return q
	}
	if q.sliceable() {
		next := q.clone()
		next.offset += n
		if next.hasLimit {
			next.limit -= n
			if next.limit < 0 {
				next.limit = 0
			}
		}
		return next
	}
	return q.withLocal(func(in []sequence.Row) []sequence.Row {
		if n >= len(in) {
			return nil
		}
		return in[n:]
	})
}

// Take keeps at most n rows, composing into LIMIT while possible.
func (q *Sequence) Take(n int) sequence.Sequence[sequence.Row] {
	if n < 0 {
		n = 0
	}
	if q.sliceable() {
		next := q.clone()
		if !next.hasLimit || n < next.limit {
			next.limit = n
		}
		next.hasLimit = true
		return next
	}
	return q.withLocal(func(in []sequence.Row) []sequence.Row {
		if n >= len(in) {
			return in
		}
		return in[:n]
	})
}

// Count issues SELECT COUNT(*) with the accumulated WHERE clause and
// adjusts for any composed slice. Pending local operations force a
// fetch, since the database cannot see them.
func (q *Sequence) Count(ctx context.Context) (int, error) {
	if len(q.local) > 0 {
		rows, err := q.Materialize(ctx)
		if err != nil {
			return 0, err
		}
		return len(rows), nil
	}

	var n int
	query := buildCount(q.src.dialect, q.table, q.where)
	if err := q.src.db.QueryRowContext(ctx, query, q.params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}

	n -= q.offset
	if n < 0 {
		n = 0
	}
	if q.hasLimit && n > q.limit {
		n = q.limit
	}
	return n, nil
}

// Materialize executes the accumulated SELECT and applies any local
// operations to the fetched rows.
func (q *Sequence) Materialize(ctx context.Context) ([]sequence.Row, error) {
	query := buildSelect(q.src.dialect, q.table, q.where, q.order, q.offset, q.limit, q.hasLimit)
	q.src.log.Debug("sqldb: %s", query)

	rows, err := q.src.db.QueryContext(ctx, query, q.params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	// OFFSET without LIMIT is not portable, so a skip that never got a
	// take is trimmed here instead of in SQL.
	if !q.hasLimit && q.offset > 0 {
		if q.offset >= len(out) {
			out = nil
		} else {
			out = out[q.offset:]
		}
	}
	for _, op := range q.local {
		out = op(out)
	}
	return out, nil
}
