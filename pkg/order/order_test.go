package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
)

type player struct {
	Name  string
	Score int
	Rank  *int
}

func playerRegistry(t *testing.T) *fields.Registry[player] {
	t.Helper()
	reg, err := fields.FromStruct[player]()
	require.NoError(t, err)
	return reg
}

func names(items []player) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Name
	}
	return out
}

func TestResolveFirstGroupOnly(t *testing.T) {
	reg := playerRegistry(t)
	groups := [][]sequence.SortKey{
		{sequence.Desc("score"), sequence.Asc("name")},
		{sequence.Asc("rank")},
	}

	keys, err := Resolve(groups, reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []sequence.SortKey{
		{Field: "Score", Desc: true},
		{Field: "Name"},
	}, keys)
}

func TestResolveUnknownFieldIsFatal(t *testing.T) {
	reg := playerRegistry(t)
	_, err := Resolve([][]sequence.SortKey{{sequence.Asc("elo")}}, reg, nil)
	var unknown *sequence.ErrUnknownField
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Elo", unknown.Field)
}

func TestResolveMapperRule(t *testing.T) {
	reg := playerRegistry(t)
	mapper := fields.NewPropertyMapper(map[string]string{"points": "Score"})

	keys, err := Resolve([][]sequence.SortKey{{sequence.Asc("Points")}}, reg, mapper)
	require.NoError(t, err)
	assert.Equal(t, "Score", keys[0].Field)

	_, err = Resolve([][]sequence.SortKey{{sequence.Asc("name")}}, reg, mapper)
	var unknown *sequence.ErrUnknownField
	assert.ErrorAs(t, err, &unknown)
}

func TestResolveEmpty(t *testing.T) {
	reg := playerRegistry(t)
	keys, err := Resolve(nil, reg, nil)
	require.NoError(t, err)
	assert.Nil(t, keys)
}

func TestCompileAscendingAndDescending(t *testing.T) {
	reg := playerRegistry(t)
	items := []player{{Name: "c", Score: 3}, {Name: "a", Score: 1}, {Name: "b", Score: 2}}

	Sort(items, Compile([]sequence.SortKey{{Field: "Score"}}, reg, false))
	assert.Equal(t, []string{"a", "b", "c"}, names(items))

	Sort(items, Compile([]sequence.SortKey{{Field: "Score", Desc: true}}, reg, false))
	assert.Equal(t, []string{"c", "b", "a"}, names(items))
}

func TestCompileFlipInvertsEveryDirection(t *testing.T) {
	reg := playerRegistry(t)
	items := []player{{Name: "a", Score: 1}, {Name: "b", Score: 2}, {Name: "c", Score: 3}}

	// Ascending request, flipped: head of the flipped order is the tail
	// of the true order.
	Sort(items, Compile([]sequence.SortKey{{Field: "Score"}}, reg, true))
	assert.Equal(t, []string{"c", "b", "a"}, names(items))

	// Descending request, flipped, turns ascending.
	Sort(items, Compile([]sequence.SortKey{{Field: "Score", Desc: true}}, reg, true))
	assert.Equal(t, []string{"a", "b", "c"}, names(items))
}

func TestCompileCompositeTieBreak(t *testing.T) {
	reg := playerRegistry(t)
	items := []player{
		{Name: "delta", Score: 2},
		{Name: "alpha", Score: 2},
		{Name: "omega", Score: 1},
	}

	Sort(items, Compile([]sequence.SortKey{
		{Field: "Score", Desc: true},
		{Field: "Name"},
	}, reg, false))

	assert.Equal(t, []string{"alpha", "delta", "omega"}, names(items))
}

func TestCompileAbsentValuesSortFirst(t *testing.T) {
	reg := playerRegistry(t)
	two := 2
	items := []player{
		{Name: "ranked", Rank: &two},
		{Name: "unranked"},
	}

	Sort(items, Compile([]sequence.SortKey{{Field: "Rank"}}, reg, false))
	assert.Equal(t, []string{"unranked", "ranked"}, names(items))

	Sort(items, Compile([]sequence.SortKey{{Field: "Rank", Desc: true}}, reg, false))
	assert.Equal(t, []string{"ranked", "unranked"}, names(items))
}

func TestCompileUnknownKeysAreInert(t *testing.T) {
	reg := playerRegistry(t)
	cmp := Compile([]sequence.SortKey{{Field: "NoSuch"}}, reg, false)
	assert.Nil(t, cmp)

	items := []player{{Name: "b"}, {Name: "a"}}
	Sort(items, cmp)
	assert.Equal(t, []string{"b", "a"}, names(items))
}

func TestFlip(t *testing.T) {
	keys := []sequence.SortKey{{Field: "A"}, {Field: "B", Desc: true}}
	assert.Equal(t, []sequence.SortKey{
		{Field: "A", Desc: true},
		{Field: "B"},
	}, Flip(keys))
	// Input untouched.
	assert.False(t, keys[0].Desc)
}

func TestCompileWithCollator(t *testing.T) {
	reg := playerRegistry(t)
	items := []player{{Name: "Banana"}, {Name: "apple"}}

	// Byte order puts "Banana" first; a case-folding collator restores
	// dictionary order.
	Sort(items, Compile([]sequence.SortKey{{Field: "Name"}}, reg, false))
	assert.Equal(t, []string{"Banana", "apple"}, names(items))

	col := collate.New(language.English, collate.IgnoreCase)
	Sort(items, Compile([]sequence.SortKey{{Field: "Name"}}, reg, false, WithCollator(col)))
	assert.Equal(t, []string{"apple", "Banana"}, names(items))
}

func TestFlipThenRestore(t *testing.T) {
	reg := playerRegistry(t)
	items := []player{{Name: "a", Score: 3}, {Name: "b", Score: 1}, {Name: "c", Score: 2}}

	// Flip, take the head two, restore: the tail of the ascending order
	// in ascending order.
	Sort(items, Compile([]sequence.SortKey{{Field: "Score"}}, reg, true))
	window := items[:2]
	Sort(window, Compile([]sequence.SortKey{{Field: "Score"}}, reg, false))

	assert.Equal(t, []string{"c", "a"}, names(window))
}
