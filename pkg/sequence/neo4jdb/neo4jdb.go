// Package neo4jdb exposes nodes of one label as a queryable sequence.
// Filters and sorts push down into Cypher with generated $pN
// parameters; the graph is schemaless, so property metadata is either
// declared by the caller or sampled from existing nodes.
package neo4jdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// propertySampleSize bounds the node scan used to infer property kinds.
const propertySampleSize = 100

// Config carries the connection settings for a Neo4j server.
type Config struct {
	URI      string `json:"uri"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// Source owns a Neo4j driver and hands out label-backed sequences.
type Source struct {
	driver   neo4j.DriverWithContext
	database string
	log      logging.Logger
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

// Open connects to the server described by the config and verifies
// connectivity before handing the driver out.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Source, error) {
	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, sequence.NewErrConnectionFailed("neo4j", err.Error())
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, sequence.NewErrConnectionFailed("neo4j", err.Error())
	}
	return FromDriver(driver, cfg.Database, opts...), nil
}

// FromDriver wraps an already-connected driver. The database name may
// be empty, which targets the server default.
func FromDriver(driver neo4j.DriverWithContext, database string, opts ...Option) *Source {
	s := &Source{driver: driver, database: database, log: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver exposes the underlying driver.
func (s *Source) Driver() neo4j.DriverWithContext { return s.driver }

// Close releases the driver and its pooled connections.
func (s *Source) Close(ctx context.Context) error { return s.driver.Close(ctx) }

// read runs one query in a read transaction and collects the records.
func (s *Source) read(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return records.([]*neo4j.Record), nil
}

// Properties samples nodes of the label and infers a column list from
// the property values seen. Every property is nullable, nodes are free
// to omit any of them.
func (s *Source) Properties(ctx context.Context, label string) ([]fields.Column, error) {
	query := fmt.Sprintf(
		"MATCH (n:%s) WITH n LIMIT $sample UNWIND keys(n) AS key RETURN key, n[key] AS value",
		escapeName(label),
	)
	records, err := s.read(ctx, query, map[string]interface{}{"sample": propertySampleSize})
	if err != nil {
		return nil, fmt.Errorf("describe label %s: %w", label, err)
	}

	counts := map[string]map[fields.Kind]int{}
	for _, rec := range records {
		keyVal, ok := rec.Get("key")
		if !ok {
			continue
		}
		key, ok := keyVal.(string)
		if !ok {
			continue
		}
		value, _ := rec.Get("value")
		kind := fields.KindOf(value)
		if kind == fields.KindInvalid {
			continue
		}
		if counts[key] == nil {
			counts[key] = map[fields.Kind]int{}
		}
		counts[key][kind]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]fields.Column, 0, len(names))
	for _, name := range names {
		best, bestCount := fields.KindString, 0
		for kind, n := range counts[name] {
			if n > bestCount {
				best, bestCount = kind, n
			}
		}
		cols = append(cols, fields.Column{Name: name, Kind: best, Nullable: true})
	}
	return cols, nil
}

// Nodes builds a sequence over the label, sampling its properties
// first. Labels without nodes cannot be described and are rejected.
func (s *Source) Nodes(ctx context.Context, label string) (*Sequence, error) {
	cols, err := s.Properties(ctx, label)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("label %s has no nodes to describe", label)
	}
	return s.NodesWith(label, cols), nil
}

// NodesWith builds a sequence over the label using a declared property
// list instead of sampling.
func (s *Source) NodesWith(label string, cols []fields.Column) *Sequence {
	kinds := make(map[string]fields.Kind, len(cols))
	for _, col := range cols {
		kinds[col.Name] = col.Kind
	}
	return &Sequence{
		src:    s,
		label:  label,
		cols:   cols,
		kinds:  kinds,
		reg:    fields.FromColumns(cols),
		params: newParamSet(),
	}
}

type localOp func([]sequence.Row) []sequence.Row

// Sequence is a lazily built node scan over one label. Pushed-down
// filters and sorts become Cypher; compiled predicates, comparators
// and post-slice narrowing run on the fetched rows.
type Sequence struct {
	src   *Source
	label string
	cols  []fields.Column
	kinds map[string]fields.Kind
	reg   *fields.Registry[sequence.Row]

	where    string
	params   *paramSet
	order    string
	offset   int
	limit    int
	hasLimit bool

	local []localOp
}

// Registry exposes the field registry built from the property list.
func (q *Sequence) Registry() *fields.Registry[sequence.Row] { return q.reg }

// NodeColumns exposes the property metadata the sequence was built
// with.
func (q *Sequence) NodeColumns() []fields.Column { return q.cols }

func (q *Sequence) clone() *Sequence {
	next := *q
	next.params = q.params.clone()
	next.local = append([]localOp(nil), q.local...)
	return &next
}

func (q *Sequence) withLocal(op localOp) *Sequence {
	next := q.clone()
	next.local = append(next.local, op)
	return next
}

func (q *Sequence) sliceable() bool { return len(q.local) == 0 }

// PushFilter translates a resolved filter tree into the WHERE clause.
// It declines once the sequence has been sliced or carries local
// operations, since a later WHERE would apply before them.
func (q *Sequence) PushFilter(node *sequence.FilterNode) (sequence.Sequence[sequence.Row], bool) {
	if q.hasLimit || q.offset > 0 || len(q.local) > 0 {
		return nil, false
	}
	next := q.clone()
	clause := buildPredicate(q.kinds, node, next.params)
	if clause == "" {
		return q, true
	}
	if next.where != "" {
		next.where = "(" + next.where + ") AND " + clause
	} else {
		next.where = clause
	}
	q.src.log.Debug("neo4jdb: pushed filter on %s: %s", q.label, clause)
	return next, true
}

// PushSort translates sort keys into the ORDER BY clause, declining
// under the same conditions as PushFilter.
func (q *Sequence) PushSort(keys []sequence.SortKey) (sequence.Sequence[sequence.Row], bool) {
	if q.hasLimit || q.offset > 0 || len(q.local) > 0 {
		return nil, false
	}
	body := buildOrder(q.kinds, keys)
	if body == "" {
		return q, true
	}
	next := q.clone()
	next.order = body
	q.src.log.Debug("neo4jdb: pushed sort on %s: %s", q.label, body)
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

// Skip drops the first n rows, composing into SKIP while possible.
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

// Count issues RETURN count(n) with the accumulated WHERE clause and
// adjusts for any composed slice. Pending local operations force a
// fetch, since the server cannot see them.
func (q *Sequence) Count(ctx context.Context) (int, error) {
	if len(q.local) > 0 {
		rows, err := q.Materialize(ctx)
		if err != nil {
			return 0, err
		}
		return len(rows), nil
	}

	records, err := q.src.read(ctx, buildCount(q), q.params.values)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.label, err)
	}
	if len(records) == 0 || len(records[0].Values) == 0 {
		return 0, fmt.Errorf("count %s: empty result", q.label)
	}
	total, ok := records[0].Values[0].(int64)
	if !ok {
		return 0, fmt.Errorf("count %s: unexpected value %T", q.label, records[0].Values[0])
	}

	n := int(total) - q.offset
	if n < 0 {
		n = 0
	}
	if q.hasLimit && n > q.limit {
		n = q.limit
	}
	return n, nil
}

// Materialize executes the accumulated scan and applies any local
// operations to the fetched rows. Properties a node omits stay absent
// from its row.
func (q *Sequence) Materialize(ctx context.Context) ([]sequence.Row, error) {
	query := buildQuery(q)
	q.src.log.Debug("neo4jdb: %s", query)

	records, err := q.src.read(ctx, query, q.params.values)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.label, err)
	}

	out := make([]sequence.Row, 0, len(records))
	for _, rec := range records {
		val, ok := rec.Get("n")
		if !ok {
			continue
		}
		node, ok := val.(neo4j.Node)
		if !ok {
			continue
		}
		out = append(out, sequence.Row(node.Props))
	}
	for _, op := range q.local {
		out = op(out)
	}
	return out, nil
}
