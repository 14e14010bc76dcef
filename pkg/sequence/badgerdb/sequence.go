package badgerdb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
)

type localOp func([]sequence.Row) []sequence.Row

// Sequence scans one table's rows in key order. All operations run on
// the scanned rows; the store cannot evaluate predicates itself.
type Sequence struct {
	store *Store
	table string
	cols  []fields.Column
	reg   *fields.Registry[sequence.Row]

	ops []localOp
}

// Registry exposes the field registry loaded from the table schema.
func (q *Sequence) Registry() *fields.Registry[sequence.Row] { return q.reg }

// TableColumns exposes the recorded column metadata.
func (q *Sequence) TableColumns() []fields.Column { return q.cols }

func (q *Sequence) withOp(op localOp) *Sequence {
	next := *q
	next.ops = append(append([]localOp(nil), q.ops...), op)
	return &next
}

// Where applies a compiled predicate to the scanned rows.
func (q *Sequence) Where(p sequence.Predicate[sequence.Row]) sequence.Sequence[sequence.Row] {
	if p == nil {
		return q
	}
	return q.withOp(func(in []sequence.Row) []sequence.Row {
		out := make([]sequence.Row, 0, len(in))
		for _, row := range in {
			if p(row) {
				out = append(out, row)
			}
		}
		return out
	})
}

// SortBy applies a compiled comparator to the scanned rows.
func (q *Sequence) SortBy(cmp sequence.Comparator[sequence.Row]) sequence.Sequence[sequence.Row] {
	if cmp == nil {
		return q
	}
	return q.withOp(func(in []sequence.Row) []sequence.Row {
		out := make([]sequence.Row, len(in))
		copy(out, in)
		sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) < 0 })
		return out
	})
}

// Skip drops the first n rows.
func (q *Sequence) Skip(n int) sequence.Sequence[sequence.Row] {
	if n <= 0 {
		return q
	}
	return q.withOp(func(in []sequence.Row) []sequence.Row {
		if n >= len(in) {
			return nil
		}
		return in[n:]
	})
}

// Take keeps at most n rows.
func (q *Sequence) Take(n int) sequence.Sequence[sequence.Row] {
	if n < 0 {
		n = 0
	}
	return q.withOp(func(in []sequence.Row) []sequence.Row {
		if n >= len(in) {
			return in
		}
		return in[:n]
	})
}

// Count scans keys only while no operation is pending, otherwise it
// materializes and counts the result.
func (q *Sequence) Count(ctx context.Context) (int, error) {
	if len(q.ops) > 0 {
		rows, err := q.Materialize(ctx)
		if err != nil {
			return 0, err
		}
		return len(rows), nil
	}

	n := 0
	err := q.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = rowPrefix(q.table)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	return n, nil
}

// Materialize scans the table and applies the pending operations.
func (q *Sequence) Materialize(ctx context.Context) ([]sequence.Row, error) {
	var out []sequence.Row
	err := q.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = rowPrefix(q.table)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var row sequence.Row
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return fmt.Errorf("decode row %s: %w", it.Item().Key(), err)
			}
			if row == nil {
				continue
			}
			restoreKinds(row, q.cols)
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, op := range q.ops {
		out = op(out)
	}
	return out, nil
}

// restoreKinds undoes the JSON round-trip flattening: integers come
// back as float64, times and bytes as strings.
func restoreKinds(row sequence.Row, cols []fields.Column) {
	for _, col := range cols {
		v, ok := row[col.Name]
		if !ok || v == nil {
			continue
		}
		switch col.Kind {
		case fields.KindInt:
			if f, ok := v.(float64); ok && f == math.Trunc(f) {
				row[col.Name] = int64(f)
			}
		case fields.KindTime:
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					row[col.Name] = t
				}
			}
		case fields.KindBytes:
			if s, ok := v.(string); ok {
				if b, err := base64.StdEncoding.DecodeString(s); err == nil {
					row[col.Name] = b
				}
			}
		}
	}
}
