// Package order compiles an ordered (field, direction) list into a
// composite comparator, with the flip mode the paging engine uses to
// materialize "last N" windows through a head slice.
package order

import (
	"sort"

	"golang.org/x/text/collate"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// Resolve honors only the first sort group and rewrites each key's
// external field name to its internal name via the property-mapper rule.
func Resolve[T any](groups [][]sequence.SortKey, reg *fields.Registry[T], mapper fields.PropertyMapper) ([]sequence.SortKey, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	first := groups[0]
	out := make([]sequence.SortKey, 0, len(first))
	for _, key := range first {
		f, err := reg.Resolve(key.Field, mapper)
		if err != nil {
			return nil, err
		}
		out = append(out, sequence.SortKey{Field: f.Name, Desc: key.Desc})
	}
	return out, nil
}

// Flip inverts every direction, so the head of the flipped order is the
// tail of the true order.
func Flip(keys []sequence.SortKey) []sequence.SortKey {
	out := make([]sequence.SortKey, len(keys))
	for i, k := range keys {
		out[i] = sequence.SortKey{Field: k.Field, Desc: !k.Desc}
	}
	return out
}

type settings struct {
	collator *collate.Collator
}

// Option configures compilation.
type Option func(*settings)

// WithCollator switches string comparison to a locale-aware collator.
func WithCollator(c *collate.Collator) Option {
	return func(s *settings) { s.collator = c }
}

// Compile builds the composite comparator: the first key establishes
// the primary order (ascending unless Desc, XOR'd with flip), each
// subsequent key breaks ties the same way. Keys naming unregistered
// fields are inert (Resolve-produced keys always exist). A nil
// comparator is returned when no key survives, meaning source order.
func Compile[T any](keys []sequence.SortKey, reg *fields.Registry[T], flip bool, opts ...Option) sequence.Comparator[T] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	type compiledKey struct {
		get  func(T) (interface{}, bool)
		desc bool
	}
	compiled := make([]compiledKey, 0, len(keys))
	for _, k := range keys {
		f, ok := reg.Field(k.Field)
		if !ok {
			continue
		}
		compiled = append(compiled, compiledKey{get: f.Get, desc: k.Desc != flip})
	}
	if len(compiled) == 0 {
		return nil
	}

	return func(a, b T) int {
		for _, k := range compiled {
			av, _ := k.get(a)
			bv, _ := k.get(b)
			c := compare(s.collator, av, bv)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
}

// Sort applies a comparator to a materialized slice in place. A nil
// comparator leaves source order.
func Sort[T any](items []T, cmp sequence.Comparator[T]) {
	if cmp == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		return cmp(items[i], items[j]) < 0
	})
}

func compare(col *collate.Collator, a, b interface{}) int {
	if col != nil {
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				return col.CompareString(as, bs)
			}
		}
	}
	return fields.Compare(a, b)
}
