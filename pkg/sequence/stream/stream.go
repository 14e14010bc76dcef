// Package stream provides a pull-based sequence over data that exists
// only as it is produced (channels, row iterators, network reads). A
// stream cannot report a total without consuming itself, so Count
// returns ErrCountUnsupported and page totals degrade to zero.
//
// Sequences are single-use: materializing drains the source, so a
// second pass yields nothing.
package stream

import (
	"context"
	"sort"

	"github.com/astro-panda/queryable/pkg/sequence"
)

// Next pulls one element. ok=false ends the stream.
type Next[T any] func(ctx context.Context) (T, bool, error)

type op[T any] func([]T) []T

// Sequence narrows during the pull while it can: filters, skips and
// takes fuse into the pull function (a satisfied take stops pulling
// upstream), until a sort forces buffering; operations after a sort
// apply to the drained buffer.
type Sequence[T any] struct {
	pull     Next[T]
	buffered bool
	post     []op[T]
}

// FromFunc wraps a pull function.
func FromFunc[T any](next Next[T]) *Sequence[T] {
	return &Sequence[T]{pull: next}
}

// FromChannel wraps a channel. The stream ends when the channel closes.
func FromChannel[T any](ch <-chan T) *Sequence[T] {
	return FromFunc(func(ctx context.Context) (T, bool, error) {
		var zero T
		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		case v, ok := <-ch:
			if !ok {
				return zero, false, nil
			}
			return v, true, nil
		}
	})
}

func (s *Sequence[T]) withPull(next Next[T]) *Sequence[T] {
	return &Sequence[T]{pull: next, buffered: s.buffered, post: s.post}
}

func (s *Sequence[T]) withPost(o op[T]) *Sequence[T] {
	post := make([]op[T], len(s.post), len(s.post)+1)
	copy(post, s.post)
	return &Sequence[T]{pull: s.pull, buffered: true, post: append(post, o)}
}

// Where narrows to matching elements.
func (s *Sequence[T]) Where(p sequence.Predicate[T]) sequence.Sequence[T] {
	if p == nil {
		return s
	}
	if s.buffered {
		return s.withPost(func(in []T) []T {
			out := make([]T, 0, len(in))
			for _, v := range in {
				if p(v) {
					out = append(out, v)
				}
			}
			return out
		})
	}
	parent := s.pull
	return s.withPull(func(ctx context.Context) (T, bool, error) {
		for {
			v, ok, err := parent(ctx)
			if !ok || err != nil {
				return v, ok, err
			}
			if p(v) {
				return v, true, nil
			}
		}
	})
}

// SortBy buffers the stream and orders it.
func (s *Sequence[T]) SortBy(cmp sequence.Comparator[T]) sequence.Sequence[T] {
	if cmp == nil {
		return s
	}
	return s.withPost(func(in []T) []T {
		out := make([]T, len(in))
		copy(out, in)
		sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) < 0 })
		return out
	})
}

// Skip drops the first n elements.
func (s *Sequence[T]) Skip(n int) sequence.Sequence[T] {
	if s.buffered {
		return s.withPost(func(in []T) []T {
			if n <= 0 {
				return in
			}
			if n >= len(in) {
				return nil
			}
			return in[n:]
		})
	}
	parent := s.pull
	remaining := n
	return s.withPull(func(ctx context.Context) (T, bool, error) {
		for remaining > 0 {
			_, ok, err := parent(ctx)
			if !ok || err != nil {
				var zero T
				return zero, ok, err
			}
			remaining--
		}
		return parent(ctx)
	})
}

// Take keeps at most n elements; in streaming mode a satisfied take
// stops pulling upstream.
func (s *Sequence[T]) Take(n int) sequence.Sequence[T] {
	if s.buffered {
		return s.withPost(func(in []T) []T {
			if n <= 0 {
				return nil
			}
			if n >= len(in) {
				return in
			}
			return in[:n]
		})
	}
	parent := s.pull
	remaining := n
	return s.withPull(func(ctx context.Context) (T, bool, error) {
		if remaining <= 0 {
			var zero T
			return zero, false, nil
		}
		v, ok, err := parent(ctx)
		if ok && err == nil {
			remaining--
		}
		return v, ok, err
	})
}

// Count is unsupported on streams.
func (s *Sequence[T]) Count(ctx context.Context) (int, error) {
	return 0, sequence.ErrCountUnsupported
}

// Materialize drains the pull pipeline, then applies any buffered
// operations.
func (s *Sequence[T]) Materialize(ctx context.Context) ([]T, error) {
	var out []T
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, ok, err := s.pull(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, v)
	}
	for _, o := range s.post {
		out = o(out)
	}
	return out, nil
}
