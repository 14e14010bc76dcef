// Package connection builds the paginated result envelope: each element
// of a materialized window paired with an offset-based cursor, wrapped
// with the page metadata and total count.
package connection

import (
	"github.com/astro-panda/queryable/pkg/cursor"
	"github.com/astro-panda/queryable/pkg/paging"
)

// Edge pairs one element with the cursor that resumes after it.
type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

// Connection is the caller-facing page envelope.
type Connection[T any] struct {
	Edges      []Edge[T]       `json:"edges"`
	PageInfo   paging.PageInfo `json:"pageInfo"`
	TotalCount int             `json:"totalCount"`
}

// New wraps a materialized window. Element i receives the cursor for
// window offset + i, sequential from the window start.
func New[T any](items []T, w paging.Window) Connection[T] {
	edges := make([]Edge[T], len(items))
	for i, item := range items {
		edges[i] = Edge[T]{Node: item, Cursor: cursor.Encode(w.Offset + i)}
	}
	return Connection[T]{Edges: edges, PageInfo: w.Info, TotalCount: w.Total}
}
