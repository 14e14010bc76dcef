package coerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
)

func TestTimeLiteralNormalizedToCanonicalZone(t *testing.T) {
	c := New()
	offset := time.FixedZone("UTC+8", 8*3600)
	lit := time.Date(2024, 5, 1, 20, 0, 0, 0, offset)

	got, err := c.Coerce(lit, fields.KindTime, false)
	require.NoError(t, err)

	ts := got.(time.Time)
	assert.Equal(t, time.UTC, ts.Location())
	assert.True(t, ts.Equal(lit))
	assert.Equal(t, 12, ts.Hour())
}

func TestStringToTime(t *testing.T) {
	c := New()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T20:00:00+08:00", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"2024-05-01T12:00:00Z", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"2024-05-01 09:30:00", time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := c.Coerce(tt.in, fields.KindTime, false)
		require.NoError(t, err, tt.in)
		assert.True(t, got.(time.Time).Equal(tt.want), "input %q got %v", tt.in, got)
	}

	_, err := c.Coerce("not a timestamp", fields.KindTime, false)
	var ce *sequence.ErrCoercion
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "string", ce.FromType)
	assert.Equal(t, "time", ce.ToType)
}

func TestCanonicalZoneIsConfigurable(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	c := New(WithLocation(zone))
	assert.Equal(t, zone, c.Location())

	got, err := c.Coerce("2024-05-01 10:00:00", fields.KindTime, true)
	require.NoError(t, err)
	ts := got.(time.Time)
	assert.Equal(t, zone, ts.Location())
	assert.True(t, ts.Equal(time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)))
}

func TestNumericTextToNullableInt(t *testing.T) {
	c := New()

	got, err := c.Coerce("123", fields.KindInt, true)
	require.NoError(t, err)
	assert.Equal(t, 123, got)

	got, err = c.Coerce(" 42 ", fields.KindInt, true)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	// Unparsable text degrades to the zero value, not an error.
	got, err = c.Coerce("abc", fields.KindInt, true)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	// The non-nullable target keeps the original strictness.
	_, err = c.Coerce("123", fields.KindInt, false)
	var ce *sequence.ErrCoercion
	assert.ErrorAs(t, err, &ce)
}

func TestSameFamilyPassesThrough(t *testing.T) {
	c := New()

	got, err := c.Coerce(5, fields.KindFloat, false)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	got, err = c.Coerce(2.5, fields.KindInt, false)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)

	got, err = c.Coerce("plain", fields.KindString, false)
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	got, err = c.Coerce(nil, fields.KindString, true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnsupportedPairNamesBothTypes(t *testing.T) {
	c := New()

	_, err := c.Coerce(true, fields.KindString, false)
	var ce *sequence.ErrCoercion
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "bool", ce.FromType)
	assert.Equal(t, "string", ce.ToType)

	_, err = c.Coerce([]int{1}, fields.KindInt, true)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "[]int", ce.FromType)
}
