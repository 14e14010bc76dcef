// Package sequence defines the abstract data sequence the translation
// engine operates on, together with the declarative filter/sort node
// types shared by the compilers and the pushdown-capable backends.
package sequence

import "context"

// Row is the element type used by the dynamic (schema-at-runtime) backends.
type Row = map[string]interface{}

// Predicate reports whether an element passes a compiled filter.
type Predicate[T any] func(T) bool

// Comparator orders two elements: negative when a sorts before b,
// positive when after, zero when tied.
type Comparator[T any] func(a, b T) int

// Sequence is a lazily evaluated, orderable, filterable stream of
// elements. Derivation methods return a narrowed sequence without
// executing anything; Count and Materialize execute.
//
// Implementations must keep derived sequences independent: narrowing a
// sequence never mutates the sequence it derived from.
type Sequence[T any] interface {
	// Where narrows the sequence to elements matching the predicate.
	Where(Predicate[T]) Sequence[T]

	// SortBy orders the sequence by the comparator.
	SortBy(Comparator[T]) Sequence[T]

	// Skip drops the first n elements. Negative n means zero.
	Skip(n int) Sequence[T]

	// Take keeps at most n elements. Negative n means zero.
	Take(n int) Sequence[T]

	// Count returns the number of elements the sequence would yield as
	// currently narrowed. Implementations that cannot count return
	// ErrCountUnsupported.
	Count(ctx context.Context) (int, error)

	// Materialize executes the sequence and returns its elements.
	Materialize(ctx context.Context) ([]T, error)
}

// FilterPushdown is implemented by sequences that can translate a
// resolved filter tree natively (SQL WHERE, Cypher, ...). PushFilter
// returns the narrowed sequence and true when the node was fully
// translated; returning false leaves the receiver unchanged and the
// caller falls back to a compiled predicate.
type FilterPushdown[T any] interface {
	PushFilter(node *FilterNode) (Sequence[T], bool)
}

// SortPushdown is the ordering counterpart of FilterPushdown.
type SortPushdown[T any] interface {
	PushSort(keys []SortKey) (Sequence[T], bool)
}
