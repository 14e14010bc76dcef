package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astro-panda/queryable/pkg/sequence"
)

func rowRegistry(t *testing.T) *Registry[sequence.Row] {
	t.Helper()
	return FromColumns([]Column{
		{Name: "Id", Kind: KindInt},
		{Name: "Name", Kind: KindString},
		{Name: "Score", Kind: KindFloat, Nullable: true},
	})
}

func TestResolveWithoutMapperNormalizes(t *testing.T) {
	r := rowRegistry(t)

	f, err := r.Resolve("name", nil)
	require.NoError(t, err)
	assert.Equal(t, "Name", f.Name)
	assert.Equal(t, KindString, f.Kind)

	_, err = r.Resolve("missing", nil)
	require.Error(t, err)
	var unknown *sequence.ErrUnknownField
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Missing", unknown.Field)
}

func TestResolveWithMapperIsExhaustive(t *testing.T) {
	r := rowRegistry(t)
	mapper := NewPropertyMapper(map[string]string{"displayName": "Name"})

	f, err := r.Resolve("DISPLAYNAME", mapper)
	require.NoError(t, err)
	assert.Equal(t, "Name", f.Name)

	// The mapper is active, so even a directly resolvable name must be
	// listed in it.
	_, err = r.Resolve("name", mapper)
	var unknown *sequence.ErrUnknownField
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Name", unknown.Field)
}

func TestResolveMapperPointingAtMissingField(t *testing.T) {
	r := rowRegistry(t)
	mapper := NewPropertyMapper(map[string]string{"ghost": "NoSuchColumn"})

	_, err := r.Resolve("ghost", mapper)
	var unknown *sequence.ErrUnknownField
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "NoSuchColumn", unknown.Field)
}

func TestEmptyMapperBehavesAsAbsent(t *testing.T) {
	r := rowRegistry(t)
	f, err := r.Resolve("score", PropertyMapper{})
	require.NoError(t, err)
	assert.Equal(t, "Score", f.Name)
}

func TestFromColumnsAccessors(t *testing.T) {
	r := rowRegistry(t)
	f, ok := r.Field("Score")
	require.True(t, ok)

	v, present := f.Get(sequence.Row{"Score": 12.5})
	assert.True(t, present)
	assert.Equal(t, 12.5, v)

	_, present = f.Get(sequence.Row{})
	assert.False(t, present)

	_, present = f.Get(sequence.Row{"Score": nil})
	assert.False(t, present)
}

func TestNamesSorted(t *testing.T) {
	r := rowRegistry(t)
	assert.Equal(t, []string{"Id", "Name", "Score"}, r.Names())
	assert.Equal(t, 3, r.Len())
}

func TestNormalizerOption(t *testing.T) {
	r := FromColumns(
		[]Column{{Name: "lower_name", Kind: KindString}},
		WithNormalizer[sequence.Row](func(s string) string { return "lower_" + s }),
	)
	f, err := r.Resolve("name", nil)
	assert.NoError(t, err)
	assert.Equal(t, "lower_name", f.Name)
}

func TestExportedName(t *testing.T) {
	cases := map[string]string{
		"name":      "Name",
		"Name":      "Name",
		"createdAt": "CreatedAt",
		"":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExportedName(in))
	}
}
