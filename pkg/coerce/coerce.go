// Package coerce converts filter literals whose runtime representation
// differs from the target field's representation in one of the known,
// limited ways. Anything outside that set is a fatal coercion error.
package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// Coercer carries the canonical time zone all coerced timestamps are
// expressed in. The zone is configuration, never guessed from the host.
type Coercer struct {
	loc *time.Location
}

// Option configures a Coercer.
type Option func(*Coercer)

// WithLocation sets the canonical time zone. Nil is ignored.
func WithLocation(loc *time.Location) Option {
	return func(c *Coercer) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// New creates a Coercer. The canonical zone defaults to UTC.
func New(opts ...Option) *Coercer {
	c := &Coercer{loc: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the canonical zone.
func (c *Coercer) Location() *time.Location { return c.loc }

// Coerce adapts a literal to a field of the given kind and nullability.
// Supported conversions:
//
//   - time literal → time field: re-expressed in the canonical zone;
//   - string literal → time field: parsed (RFC 3339, then
//     "2006-01-02 15:04:05", then "2006-01-02"; the latter two are read
//     in the canonical zone) and normalized to the canonical zone;
//   - numeric-looking string → nullable int field: best-effort parse,
//     unparsable text becomes the zero value rather than an error;
//   - int and float are one family and pass through unchanged.
//
// A nil literal passes through (nullness checks need no conversion).
// Every other mismatched pair is an ErrCoercion naming both sides.
func (c *Coercer) Coerce(literal interface{}, kind fields.Kind, nullable bool) (interface{}, error) {
	if literal == nil {
		return nil, nil
	}
	lk := fields.KindOf(literal)

	if lk == fields.KindTime && kind == fields.KindTime {
		return literal.(time.Time).In(c.loc), nil
	}
	if lk == kind || (lk.Numeric() && kind.Numeric()) {
		return literal, nil
	}

	if lk == fields.KindString {
		s := literal.(string)
		switch {
		case kind == fields.KindTime:
			if t, ok := c.parseTime(s); ok {
				return t, nil
			}
			return nil, sequence.NewErrCoercion(lk.String(), kind.String(), literal)
		case kind == fields.KindInt && nullable:
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return 0, nil
			}
			return n, nil
		}
	}

	return nil, sequence.NewErrCoercion(kindName(lk, literal), kind.String(), literal)
}

// parseTime accepts the wire formats timestamps arrive in.
func (c *Coercer) parseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(c.loc), true
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, c.loc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", s, c.loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func kindName(k fields.Kind, v interface{}) string {
	if k == fields.KindInvalid {
		return fmt.Sprintf("%T", v)
	}
	return k.String()
}
