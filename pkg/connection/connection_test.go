package connection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astro-panda/queryable/pkg/cursor"
	"github.com/astro-panda/queryable/pkg/paging"
)

func TestNewAssignsSequentialCursors(t *testing.T) {
	w := paging.Window{
		Offset: 2,
		Limit:  3,
		Total:  10,
		Info:   paging.PageInfo{HasNextPage: true, HasPreviousPage: true},
	}
	conn := New([]string{"c", "d", "e"}, w)

	require.Len(t, conn.Edges, 3)
	for i, edge := range conn.Edges {
		offset, ok := cursor.Decode(edge.Cursor)
		require.True(t, ok)
		assert.Equal(t, 2+i, offset)
	}
	assert.Equal(t, "c", conn.Edges[0].Node)
	assert.Equal(t, 10, conn.TotalCount)
	assert.True(t, conn.PageInfo.HasNextPage)
}

func TestNewEmptyWindow(t *testing.T) {
	conn := New([]int{}, paging.Window{})
	assert.Empty(t, conn.Edges)
	assert.Equal(t, 0, conn.TotalCount)
}

func TestConnectionJSONShape(t *testing.T) {
	w := paging.Window{Offset: 0, Limit: 1, Total: 1}
	w.Info.StartCursor = cursor.Encode(0)
	w.Info.EndCursor = cursor.Encode(1)

	data, err := json.Marshal(New([]int{7}, w))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "edges")
	assert.Contains(t, decoded, "pageInfo")
	assert.Contains(t, decoded, "totalCount")

	info := decoded["pageInfo"].(map[string]interface{})
	assert.Contains(t, info, "hasNextPage")
	assert.Contains(t, info, "startCursor")
}
