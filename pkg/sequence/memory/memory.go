// Package memory provides the slice-backed sequence used for
// in-process data and for re-wrapping materialized page windows.
package memory

import (
	"context"
	"sort"

	"github.com/astro-panda/queryable/pkg/sequence"
)

type op[T any] func([]T) []T

// Sequence is a lazily evaluated view over a slice snapshot. Each
// derivation appends one operation; nothing runs until Count or
// Materialize.
type Sequence[T any] struct {
	src []T
	ops []op[T]
}

// FromSlice wraps items. The slice is shared until an operation copies;
// callers must not mutate it while the sequence is live.
func FromSlice[T any](items []T) *Sequence[T] {
	return &Sequence[T]{src: items}
}

func (s *Sequence[T]) with(o op[T]) *Sequence[T] {
	ops := make([]op[T], len(s.ops), len(s.ops)+1)
	copy(ops, s.ops)
	return &Sequence[T]{src: s.src, ops: append(ops, o)}
}

// Where narrows to elements matching the predicate.
func (s *Sequence[T]) Where(p sequence.Predicate[T]) sequence.Sequence[T] {
	if p == nil {
		return s
	}
	return s.with(func(in []T) []T {
		out := make([]T, 0, len(in))
		for _, v := range in {
			if p(v) {
				out = append(out, v)
			}
		}
		return out
	})
}

// SortBy orders by the comparator, stably.
func (s *Sequence[T]) SortBy(cmp sequence.Comparator[T]) sequence.Sequence[T] {
	if cmp == nil {
		return s
	}
	return s.with(func(in []T) []T {
		out := make([]T, len(in))
		copy(out, in)
		sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) < 0 })
		return out
	})
}

// Skip drops the first n elements.
func (s *Sequence[T]) Skip(n int) sequence.Sequence[T] {
	return s.with(func(in []T) []T {
		if n <= 0 {
			return in
		}
		if n >= len(in) {
			return nil
		}
		return in[n:]
	})
}

// Take keeps at most n elements.
func (s *Sequence[T]) Take(n int) sequence.Sequence[T] {
	return s.with(func(in []T) []T {
		if n <= 0 {
			return nil
		}
		if n >= len(in) {
			return in
		}
		return in[:n]
	})
}

// Count evaluates the chain and returns the element count.
func (s *Sequence[T]) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out := s.src
	for _, o := range s.ops {
		out = o(out)
	}
	return len(out), nil
}

// Materialize evaluates the chain into a fresh slice.
func (s *Sequence[T]) Materialize(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := s.src
	for _, o := range s.ops {
		out = o(out)
	}
	result := make([]T, len(out))
	copy(result, out)
	return result, nil
}
