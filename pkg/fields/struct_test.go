package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	Id        int
	Name      string
	Balance   float64
	Active    bool
	CreatedAt time.Time
	Nickname  *string
	Raw       []byte
	Renamed   string `db:"display_name"`
	Aliased   string `json:"alias,omitempty"`
	Skipped   string `db:"-"`
	hidden    int
	Weird     chan int
}

func TestFromStructRegistersSupportedFields(t *testing.T) {
	r, err := FromStruct[account]()
	require.NoError(t, err)

	expect := map[string]Kind{
		"Id":           KindInt,
		"Name":         KindString,
		"Balance":      KindFloat,
		"Active":       KindBool,
		"CreatedAt":    KindTime,
		"Nickname":     KindString,
		"Raw":          KindBytes,
		"display_name": KindString,
		"alias":        KindString,
	}
	assert.Equal(t, len(expect), r.Len())
	for name, kind := range expect {
		f, ok := r.Field(name)
		require.True(t, ok, "field %s", name)
		assert.Equal(t, kind, f.Kind, "field %s", name)
	}

	_, ok := r.Field("Skipped")
	assert.False(t, ok)
	_, ok = r.Field("hidden")
	assert.False(t, ok)
	_, ok = r.Field("Weird")
	assert.False(t, ok)

	nick, _ := r.Field("Nickname")
	assert.True(t, nick.Nullable)
	id, _ := r.Field("Id")
	assert.False(t, id.Nullable)
}

func TestFromStructAccessors(t *testing.T) {
	r, err := FromStruct[account]()
	require.NoError(t, err)

	nick := "kas"
	a := account{Id: 7, Name: "alpha", Nickname: &nick}

	idField, _ := r.Field("Id")
	v, ok := idField.Get(a)
	require.True(t, ok)
	assert.Equal(t, 7, v)

	nickField, _ := r.Field("Nickname")
	v, ok = nickField.Get(a)
	require.True(t, ok)
	assert.Equal(t, "kas", v)

	_, ok = nickField.Get(account{})
	assert.False(t, ok)
}

func TestFromStructPointerElement(t *testing.T) {
	r, err := FromStruct[*account]()
	require.NoError(t, err)

	nameField, _ := r.Field("Name")
	v, ok := nameField.Get(&account{Name: "beta"})
	require.True(t, ok)
	assert.Equal(t, "beta", v)

	_, ok = nameField.Get(nil)
	assert.False(t, ok)
}

func TestFromStructRejectsNonStruct(t *testing.T) {
	_, err := FromStruct[int]()
	assert.Error(t, err)
}

func TestFromStructResolveCamelCase(t *testing.T) {
	r, err := FromStruct[account]()
	require.NoError(t, err)

	f, err := r.Resolve("createdAt", nil)
	require.NoError(t, err)
	assert.Equal(t, "CreatedAt", f.Name)
	assert.Equal(t, KindTime, f.Kind)
}
