// Package queryable translates a dynamic filter dictionary, ordered
// sort groups and relay paging arguments into operations on an abstract
// sequence. Backends that can translate a resolved filter or sort
// natively receive it through the pushdown interfaces; everything else
// falls back to compiled in-memory predicates and comparators.
package queryable

import (
	"context"
	"time"

	"golang.org/x/text/collate"

	"github.com/astro-panda/queryable/pkg/coerce"
	"github.com/astro-panda/queryable/pkg/connection"
	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/filter"
	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/order"
	"github.com/astro-panda/queryable/pkg/paging"
	"github.com/astro-panda/queryable/pkg/sequence"
	"github.com/astro-panda/queryable/pkg/sequence/memory"
)

// DefaultPageSize caps pages when neither first nor last is given.
const DefaultPageSize = 10

// Parser drives the translation pipeline for one request. Every handler
// recomputes its inputs from the sources, so invoking a handler twice
// observes the same arguments rather than values cached at construction.
type Parser[T any] struct {
	source   sequence.Sequence[T]
	registry *fields.Registry[T]
	args     paging.ArgumentSource
	filter   FilterSource
	sort     SortSource
	mapper   fields.PropertyMapper
	coercer  *coerce.Coercer
	collator *collate.Collator
	pageSize int
	log      logging.Logger

	window paging.Window
}

// Option configures a Parser.
type Option[T any] func(*Parser[T])

// WithArguments supplies the request's paging arguments.
func WithArguments[T any](src paging.ArgumentSource) Option[T] {
	return func(p *Parser[T]) { p.args = src }
}

// WithFilterSource supplies the request's filter dictionary.
func WithFilterSource[T any](src FilterSource) Option[T] {
	return func(p *Parser[T]) { p.filter = src }
}

// WithSortSource supplies the request's sort groups.
func WithSortSource[T any](src SortSource) Option[T] {
	return func(p *Parser[T]) { p.sort = src }
}

// WithMapper restricts external field names to the mapping's keys. A
// nil or empty mapper resolves names by normalization instead.
func WithMapper[T any](m fields.PropertyMapper) Option[T] {
	return func(p *Parser[T]) { p.mapper = m }
}

// WithDefaultPageSize sets the limit used when neither first nor last
// is given. Non-positive values keep the default.
func WithDefaultPageSize[T any](n int) Option[T] {
	return func(p *Parser[T]) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithCoercer replaces the literal coercer.
func WithCoercer[T any](c *coerce.Coercer) Option[T] {
	return func(p *Parser[T]) {
		if c != nil {
			p.coercer = c
		}
	}
}

// WithLocation sets the canonical zone timestamp literals are coerced
// into.
func WithLocation[T any](loc *time.Location) Option[T] {
	return func(p *Parser[T]) { p.coercer = coerce.New(coerce.WithLocation(loc)) }
}

// WithCollator orders string fields with the collator instead of byte
// order.
func WithCollator[T any](c *collate.Collator) Option[T] {
	return func(p *Parser[T]) { p.collator = c }
}

// WithLogger replaces the no-op logger.
func WithLogger[T any](l logging.Logger) Option[T] {
	return func(p *Parser[T]) {
		if l != nil {
			p.log = l
		}
	}
}

// New builds a Parser over the given sequence and field registry.
func New[T any](src sequence.Sequence[T], reg *fields.Registry[T], opts ...Option[T]) *Parser[T] {
	p := &Parser[T]{
		source:   src,
		registry: reg,
		coercer:  coerce.New(),
		pageSize: DefaultPageSize,
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse runs the full pipeline: filter, order, window, and the
// corrective re-sort for tail windows. The returned sequence yields the
// final page in caller-requested order.
func (p *Parser[T]) Parse(ctx context.Context) (sequence.Sequence[T], error) {
	seq, err := p.HandleFilter(p.source)
	if err != nil {
		return nil, err
	}
	seq, err = p.HandleSort(seq)
	if err != nil {
		return nil, err
	}
	return p.HandlePage(ctx, seq)
}

// HandleFilter decodes, resolves and applies the filter, preferring the
// backend's native translation. The source is marked handled once the
// filter is consumed, including when it decodes to nothing.
func (p *Parser[T]) HandleFilter(seq sequence.Sequence[T]) (sequence.Sequence[T], error) {
	if p.filter == nil {
		return seq, nil
	}
	node, err := filter.Decode(p.filter.Dictionary())
	if err != nil {
		return nil, err
	}
	resolved, err := filter.Resolve(node, p.registry, p.mapper, p.coercer)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		pushed := false
		if fp, ok := seq.(sequence.FilterPushdown[T]); ok {
			if ps, ok := fp.PushFilter(resolved); ok {
				seq, pushed = ps, true
			}
		}
		if !pushed {
			seq = seq.Where(filter.Compile(resolved, p.registry, filter.WithLogger(p.log)))
		}
	}
	p.filter.Handled(true)
	return seq, nil
}

// HandleSort applies the first sort group. When the request pages from
// the tail, every direction is inverted first, so the head of the
// inverted order is the tail of the true order; HandlePage restores
// caller order afterwards and marks the source handled then. Head
// windows mark the source handled here, since the applied order already
// matches the request.
func (p *Parser[T]) HandleSort(seq sequence.Sequence[T]) (sequence.Sequence[T], error) {
	keys, err := p.sortKeys()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		if p.sort != nil {
			p.sort.Handled(true)
		}
		return seq, nil
	}

	flip := !paging.ReadArguments(p.args).UsingFirst()
	pushed := false
	if sp, ok := seq.(sequence.SortPushdown[T]); ok {
		applied := keys
		if flip {
			applied = order.Flip(keys)
		}
		if ps, ok := sp.PushSort(applied); ok {
			seq, pushed = ps, true
		}
	}
	if !pushed {
		seq = seq.SortBy(order.Compile(keys, p.registry, flip, p.orderOpts()...))
	}
	if !flip {
		p.sort.Handled(true)
	}
	return seq, nil
}

// HandlePage counts the narrowed sequence, computes the window and
// slices it. Tail windows are then materialized (bounded by the limit,
// not the collection size) and re-sorted into caller-requested order,
// since the sequence abstraction does not promise reverse traversal.
func (p *Parser[T]) HandlePage(ctx context.Context, seq sequence.Sequence[T]) (sequence.Sequence[T], error) {
	total, err := paging.Total(ctx, seq)
	if err != nil {
		return nil, err
	}
	w := paging.Compute(paging.ReadArguments(p.args), total, p.pageSize)
	p.window = w

	seq = seq.Skip(w.Offset).Take(w.Limit)
	if w.UsingFirst {
		return seq, nil
	}

	keys, err := p.sortKeys()
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		items, err := seq.Materialize(ctx)
		if err != nil {
			return nil, err
		}
		order.Sort(items, order.Compile(keys, p.registry, false, p.orderOpts()...))
		seq = memory.FromSlice(items)
	}
	if p.sort != nil {
		p.sort.Handled(true)
	}
	return seq, nil
}

// Window reports the window computed by the most recent HandlePage.
func (p *Parser[T]) Window() paging.Window {
	return p.window
}

// Connection runs the pipeline, materializes the page and pairs each
// element with its cursor under the page metadata.
func (p *Parser[T]) Connection(ctx context.Context) (connection.Connection[T], error) {
	seq, err := p.Parse(ctx)
	if err != nil {
		return connection.Connection[T]{}, err
	}
	items, err := seq.Materialize(ctx)
	if err != nil {
		return connection.Connection[T]{}, err
	}
	return connection.New(items, p.window), nil
}

func (p *Parser[T]) sortKeys() ([]sequence.SortKey, error) {
	if p.sort == nil {
		return nil, nil
	}
	return order.Resolve(p.sort.OrderedGroups(), p.registry, p.mapper)
}

func (p *Parser[T]) orderOpts() []order.Option {
	if p.collator == nil {
		return nil
	}
	return []order.Option{order.WithCollator(p.collator)}
}
