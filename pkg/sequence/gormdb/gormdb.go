// Package gormdb adapts a gorm session to the sequence contract.
// Pushed-down filters and sorts become clause expressions; compiled
// predicates, comparators and post-slice narrowing run on the fetched
// rows. The package Dialector lets the session run over any
// database/sql pool, so engines without a dedicated gorm driver are
// still reachable.
package gormdb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// Source owns a gorm session and hands out table-backed sequences.
type Source struct {
	db  *gorm.DB
	log logging.Logger
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

// Open wraps an already-opened pool in a gorm session through the
// package Dialector. gorm's own trace logging stays off; the Source
// logs through the configured logger instead.
func Open(driverName string, db *sql.DB, opts ...Option) (*Source, error) {
	if db == nil {
		return nil, sequence.NewErrConnectionFailed("gorm", "nil connection pool")
	}
	gdb, err := gorm.Open(New(driverName, db), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, sequence.NewErrConnectionFailed("gorm", err.Error())
	}
	return FromDB(gdb, opts...), nil
}

// FromDB wraps an existing gorm session.
func FromDB(db *gorm.DB, opts ...Option) *Source {
	s := &Source{db: db, log: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying session.
func (s *Source) DB() *gorm.DB { return s.db }

// Close releases the session's connection pool.
func (s *Source) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Columns discovers a table's column metadata through the migrator,
// which probes the table itself rather than engine catalogs, so it
// works under any dialector.
func (s *Source) Columns(ctx context.Context, table string) ([]fields.Column, error) {
	types, err := s.db.WithContext(ctx).Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}

	cols := make([]fields.Column, 0, len(types))
	for _, ct := range types {
		nullable, known := ct.Nullable()
		if !known {
			nullable = true
		}
		cols = append(cols, fields.Column{
			Name:     ct.Name(),
			Kind:     kindOfTypeName(ct.DatabaseTypeName()),
			Nullable: nullable,
		})
	}
	return cols, nil
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

// kindOfTypeName maps a reported database type to a field kind by
// affinity, the way SQLite resolves declared types.
func kindOfTypeName(name string) fields.Kind {
	t := strings.ToLower(name)
	switch {
	case strings.Contains(t, "bool"):
		return fields.KindBool
	case strings.Contains(t, "int"):
		return fields.KindInt
	case strings.Contains(t, "char"), strings.Contains(t, "text"),
		strings.Contains(t, "clob"), strings.Contains(t, "uuid"),
		strings.Contains(t, "json"):
		return fields.KindString
	case strings.Contains(t, "real"), strings.Contains(t, "floa"),
		strings.Contains(t, "doub"), strings.Contains(t, "dec"),
		strings.Contains(t, "num"):
		return fields.KindFloat
	case strings.Contains(t, "blob"), strings.Contains(t, "binary"),
		strings.Contains(t, "bytea"):
		return fields.KindBytes
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return fields.KindTime
	default:
		return fields.KindString
	}
}

type localOp func([]sequence.Row) []sequence.Row

// Sequence is a lazily built query over one table. Pushed-down filters
// and sorts accumulate as clause expressions; compiled predicates,
// comparators and post-slice narrowing run on the fetched rows.
type Sequence struct {
	src   *Source
	table string
	cols  []fields.Column
	kinds map[string]fields.Kind
	reg   *fields.Registry[sequence.Row]

	conds    []clause.Expression
	order    []clause.OrderByColumn
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
	next.conds = append([]clause.Expression(nil), q.conds...)
	next.order = append([]clause.OrderByColumn(nil), q.order...)
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

// PushFilter translates a resolved filter tree into query conditions.
// It declines once the sequence has been sliced or carries local
// operations, since a later WHERE would apply before them.
func (q *Sequence) PushFilter(node *sequence.FilterNode) (sequence.Sequence[sequence.Row], bool) {
	if q.hasLimit || q.offset > 0 || len(q.local) > 0 {
		return nil, false
	}
	expr := buildConds(q.kinds, node)
	if expr == nil {
		return q, true
	}
	next := q.clone()
	next.conds = append(next.conds, expr)
	q.src.log.Debug("gormdb: pushed filter on %s", q.table)
	return next, true
}

// PushSort translates sort keys into ORDER BY columns, declining under
// the same conditions as PushFilter.
func (q *Sequence) PushSort(keys []sequence.SortKey) (sequence.Sequence[sequence.Row], bool) {
	if q.hasLimit || q.offset > 0 || len(q.local) > 0 {
		return nil, false
	}
	cols := buildOrderColumns(q.kinds, keys)
	if len(cols) == 0 {
		return q, true
	}
	next := q.clone()
	next.order = cols
	q.src.log.Debug("gormdb: pushed sort on %s", q.table)
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

// session builds the base query with accumulated conditions applied.
func (q *Sequence) session(ctx context.Context) *gorm.DB {
	tx := q.src.db.WithContext(ctx).Table(q.table)
	for _, cond := range q.conds {
		tx = tx.Where(cond)
	}
	return tx
}

// Count issues a COUNT with the accumulated conditions and adjusts for
// any composed slice. Pending local operations force a fetch, since
// the database cannot see them.
func (q *Sequence) Count(ctx context.Context) (int, error) {
	if len(q.local) > 0 {
		rows, err := q.Materialize(ctx)
		if err != nil {
			return 0, err
		}
		return len(rows), nil
	}

	var n int64
	if err := q.session(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}

	count := int(n) - q.offset
	if count < 0 {
		count = 0
	}
	if q.hasLimit && count > q.limit {
		count = q.limit
	}
	return count, nil
}

// Materialize executes the accumulated query and applies any local
// operations to the fetched rows.
func (q *Sequence) Materialize(ctx context.Context) ([]sequence.Row, error) {
	tx := q.session(ctx)
	for _, col := range q.order {
		tx = tx.Order(col)
	}
	if q.hasLimit {
		tx = tx.Limit(q.limit)
		if q.offset > 0 {
			tx = tx.Offset(q.offset)
		}
	}

	var raw []map[string]interface{}
	if err := tx.Find(&raw).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", q.table, err)
	}

	out := make([]sequence.Row, 0, len(raw))
	for _, m := range raw {
		row := make(sequence.Row, len(m))
		for k, v := range m {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[k] = v
		}
		out = append(out, row)
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
