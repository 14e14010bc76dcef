package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
	"github.com/astro-panda/queryable/pkg/sequence/memory"
)

type connEnvelope struct {
	Edges []struct {
		Node   map[string]interface{} `json:"node"`
		Cursor string                 `json:"cursor"`
	} `json:"edges"`
	PageInfo struct {
		HasNextPage     bool   `json:"hasNextPage"`
		HasPreviousPage bool   `json:"hasPreviousPage"`
		StartCursor     string `json:"startCursor"`
		EndCursor       string `json:"endCursor"`
	} `json:"pageInfo"`
	TotalCount int `json:"totalCount"`
}

func playerDeps(t *testing.T) *ToolDeps {
	t.Helper()

	cols := []fields.Column{
		{Name: "id", Kind: fields.KindInt},
		{Name: "name", Kind: fields.KindString, Nullable: true},
		{Name: "score", Kind: fields.KindInt, Nullable: true},
	}
	rows := []sequence.Row{
		{"id": 1, "name": "alice", "score": 42},
		{"id": 2, "name": "bob", "score": 17},
		{"id": 3, "name": "carol", "score": 99},
		{"id": 4, "name": "dave", "score": 7},
		{"id": 5, "name": nil, "score": 55},
	}

	reg := NewRegistry()
	require.NoError(t, reg.Register(NewSource("players", cols, memory.FromSlice(rows))))

	return &ToolDeps{
		Sources:  reg,
		PageSize: 10,
	}
}

func callQuery(t *testing.T, deps *ToolDeps, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := deps.HandleQuery(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func decodeEnvelope(t *testing.T, result *mcp.CallToolResult) connEnvelope {
	t.Helper()

	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var env connEnvelope
	require.NoError(t, json.Unmarshal([]byte(text.Text), &env))
	return env
}

func errorText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleQuery_FilterSortPage(t *testing.T) {
	deps := playerDeps(t)

	result := callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"filter": `{"score":{"gte":20}}`,
		"sort":   `[{"field":"score","direction":"desc"}]`,
		"first":  float64(2),
	})

	env := decodeEnvelope(t, result)
	assert.Equal(t, 3, env.TotalCount)
	require.Len(t, env.Edges, 2)
	assert.Equal(t, "carol", env.Edges[0].Node["name"])
	assert.Equal(t, float64(55), env.Edges[1].Node["score"])
	assert.True(t, env.PageInfo.HasNextPage)
	assert.False(t, env.PageInfo.HasPreviousPage)
	assert.NotEmpty(t, env.Edges[0].Cursor)
	assert.Equal(t, env.Edges[0].Cursor, env.PageInfo.StartCursor)
	assert.NotEmpty(t, env.PageInfo.EndCursor)
}

func TestHandleQuery_AfterCursorAdvances(t *testing.T) {
	deps := playerDeps(t)

	first := decodeEnvelope(t, callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"sort":   `[{"field":"id","direction":"asc"}]`,
		"first":  float64(2),
	}))
	require.Len(t, first.Edges, 2)

	second := decodeEnvelope(t, callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"sort":   `[{"field":"id","direction":"asc"}]`,
		"first":  float64(2),
		"after":  first.Edges[1].Cursor,
	}))
	require.Len(t, second.Edges, 2)
	assert.Equal(t, float64(3), second.Edges[0].Node["id"])
	assert.Equal(t, float64(4), second.Edges[1].Node["id"])
	assert.True(t, second.PageInfo.HasPreviousPage)
	assert.True(t, second.PageInfo.HasNextPage)
}

func TestHandleQuery_LastTakesTailInOrder(t *testing.T) {
	deps := playerDeps(t)

	env := decodeEnvelope(t, callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"sort":   `[{"field":"id","direction":"asc"}]`,
		"last":   float64(2),
	}))

	require.Len(t, env.Edges, 2)
	assert.Equal(t, float64(4), env.Edges[0].Node["id"])
	assert.Equal(t, float64(5), env.Edges[1].Node["id"])
	assert.Equal(t, 5, env.TotalCount)
}

func TestHandleQuery_DefaultPageSize(t *testing.T) {
	deps := playerDeps(t)
	deps.PageSize = 3

	env := decodeEnvelope(t, callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"sort":   `[{"field":"id"}]`,
	}))

	assert.Len(t, env.Edges, 3)
	assert.Equal(t, 5, env.TotalCount)
	assert.True(t, env.PageInfo.HasNextPage)
}

func TestHandleQuery_MissingSource(t *testing.T) {
	deps := playerDeps(t)

	result := callQuery(t, deps, map[string]interface{}{})
	assert.Contains(t, errorText(t, result), "source parameter is required")
}

func TestHandleQuery_UnknownSource(t *testing.T) {
	deps := playerDeps(t)

	result := callQuery(t, deps, map[string]interface{}{"source": "ghosts"})
	assert.Contains(t, errorText(t, result), "unknown source: ghosts")
}

func TestHandleQuery_MalformedFilter(t *testing.T) {
	deps := playerDeps(t)

	result := callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"filter": `[1,2,3]`,
	})
	assert.Contains(t, errorText(t, result), "filter is not a JSON object")
}

func TestHandleQuery_MalformedSort(t *testing.T) {
	deps := playerDeps(t)

	result := callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"sort":   `{"field":"id"}`,
	})
	assert.Contains(t, errorText(t, result), "sort is not a JSON array")
}

func TestHandleQuery_UnknownSortDirection(t *testing.T) {
	deps := playerDeps(t)

	result := callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"sort":   `[{"field":"id","direction":"sideways"}]`,
	})
	assert.Contains(t, errorText(t, result), `unknown direction "sideways"`)
}

func TestHandleQuery_SortEntryWithoutField(t *testing.T) {
	deps := playerDeps(t)

	result := callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"sort":   `[{"direction":"asc"}]`,
	})
	assert.Contains(t, errorText(t, result), "sort entry 0 has no field")
}

func TestHandleQuery_UnknownFilterFieldFails(t *testing.T) {
	deps := playerDeps(t)

	result := callQuery(t, deps, map[string]interface{}{
		"source": "players",
		"filter": `{"nonexistent":{"eq":1}}`,
	})
	assert.Contains(t, errorText(t, result), "query failed")
}

func TestHandleQuery_DeniedContext(t *testing.T) {
	deps := playerDeps(t)

	ctx := context.WithValue(context.Background(), ctxKeyDenied, true)
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: map[string]interface{}{"source": "players"}},
	}
	result, err := deps.HandleQuery(ctx, request)
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "unauthorized")
}

func TestHandleSources_ListsCounts(t *testing.T) {
	deps := playerDeps(t)

	result, err := deps.HandleSources(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "- players (5 rows)")
}

func TestHandleSources_EmptyRegistry(t *testing.T) {
	deps := &ToolDeps{Sources: NewRegistry(), PageSize: 10}

	result, err := deps.HandleSources(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "(none registered)")
}

func TestHandleSources_Denied(t *testing.T) {
	deps := playerDeps(t)

	ctx := context.WithValue(context.Background(), ctxKeyDenied, true)
	result, err := deps.HandleSources(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "unauthorized")
}

func TestHandleDescribe_ListsColumns(t *testing.T) {
	deps := playerDeps(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: map[string]interface{}{"source": "players"}},
	}
	result, err := deps.HandleDescribe(context.Background(), request)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Source: players")
	assert.Contains(t, text.Text, "id\tint\tfalse")
	assert.Contains(t, text.Text, "name\tstring\ttrue")
	assert.Contains(t, text.Text, "score\tint\ttrue")
}

func TestHandleDescribe_UnknownSource(t *testing.T) {
	deps := playerDeps(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: map[string]interface{}{"source": "ghosts"}},
	}
	result, err := deps.HandleDescribe(context.Background(), request)
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "unknown source: ghosts")
}

func TestParseSortKeys_Directions(t *testing.T) {
	keys, err := parseSortKeys(`[{"field":"a"},{"field":"b","direction":"ASC"},{"field":"c","direction":"Descending"}]`)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, sequence.Asc("a"), keys[0])
	assert.Equal(t, sequence.Asc("b"), keys[1])
	assert.Equal(t, sequence.Desc("c"), keys[2])
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	cols := []fields.Column{{Name: "id", Kind: fields.KindInt}}

	require.NoError(t, reg.Register(NewSource("a", cols, memory.FromSlice([]sequence.Row{}))))
	require.NoError(t, reg.Register(NewSource("b", cols, memory.FromSlice([]sequence.Row{}))))

	err := reg.Register(NewSource("a", cols, memory.FromSlice([]sequence.Row{})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	src, ok := reg.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", src.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.Equal(t, 2, reg.Len())
}
