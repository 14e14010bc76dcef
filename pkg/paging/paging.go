// Package paging computes the effective offset/limit window from the
// relay-style first/after/last/before arguments, plus the page metadata
// (has-next, has-previous, cursors, total).
package paging

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/astro-panda/queryable/pkg/cursor"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// Argument names read from the request context.
const (
	ArgFirst  = "first"
	ArgAfter  = "after"
	ArgLast   = "last"
	ArgBefore = "before"
)

// ArgumentSource supplies raw paging arguments by name, the way the
// host request context exposes them.
type ArgumentSource interface {
	Argument(name string) (interface{}, bool)
}

// Args is a map-backed ArgumentSource.
type Args map[string]interface{}

// Argument implements ArgumentSource.
func (a Args) Argument(name string) (interface{}, bool) {
	v, ok := a[name]
	return v, ok
}

// Arguments are the extracted paging arguments. Nil means absent.
// Before is carried for interface completeness and never honored.
type Arguments struct {
	First  *int
	After  *string
	Last   *int
	Before *string
}

// UsingFirst reports whether the window runs from the head: true when
// first is provided or when neither first nor last is.
func (a Arguments) UsingFirst() bool {
	return a.First != nil || a.Last == nil
}

// ReadArguments pulls first/after/last/before from the source,
// tolerating the numeric representations decoded transports produce.
func ReadArguments(src ArgumentSource) Arguments {
	if src == nil {
		return Arguments{}
	}
	var a Arguments
	if n, ok := intArg(src, ArgFirst); ok {
		a.First = &n
	}
	if n, ok := intArg(src, ArgLast); ok {
		a.Last = &n
	}
	if s, ok := stringArg(src, ArgAfter); ok {
		a.After = &s
	}
	if s, ok := stringArg(src, ArgBefore); ok {
		a.Before = &s
	}
	return a
}

func intArg(src ArgumentSource, name string) (int, bool) {
	v, ok := src.Argument(name)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func stringArg(src ArgumentSource, name string) (string, bool) {
	v, ok := src.Argument(name)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// PageInfo is the page metadata handed back to the caller.
type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor"`
	EndCursor       string `json:"endCursor"`
}

// Window is the computed slice plus its metadata.
type Window struct {
	Offset     int
	Limit      int
	UsingFirst bool
	Total      int
	Info       PageInfo
}

// Compute derives the window from the arguments, the total count of the
// filtered sequence and the default page size. Pure; callers recompute
// it whenever the inputs could have changed.
//
// UsingFirst is true unless last alone was provided. The offset is the
// decoded after-cursor plus one (the cursor names the last element
// already seen); a malformed or absent cursor degrades to zero. The
// slice is always skip offset / take limit: first-vs-last direction is
// expressed entirely through the sort compiler's flip. Before is never
// read.
func Compute(args Arguments, total, defaultSize int) Window {
	usingFirst := args.UsingFirst()

	offset := 0
	if args.After != nil {
		if n, ok := cursor.Decode(*args.After); ok {
			offset = n + 1
		}
	}

	limit := defaultSize
	if usingFirst {
		if args.First != nil {
			limit = *args.First
		}
	} else {
		limit = *args.Last
	}
	if limit < 0 {
		limit = 0
	}

	return Window{
		Offset:     offset,
		Limit:      limit,
		UsingFirst: usingFirst,
		Total:      total,
		Info: PageInfo{
			HasNextPage:     total > limit+offset,
			HasPreviousPage: offset > 0,
			StartCursor:     cursor.Encode(offset),
			EndCursor:       cursor.Encode(offset + limit),
		},
	}
}

// Total counts the filtered sequence prior to slicing. A sequence that
// cannot count degrades the total to zero instead of failing; any other
// error is fatal.
func Total[T any](ctx context.Context, seq sequence.Sequence[T]) (int, error) {
	n, err := seq.Count(ctx)
	if err != nil {
		if errors.Is(err, sequence.ErrCountUnsupported) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
