// Package fields provides the per-element-type field accessor registry
// the compilers resolve names against, plus the value classification and
// comparison primitives shared by filtering and ordering.
package fields

import "time"

// Kind classifies the representation of a field or literal value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
	KindBytes
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Numeric reports whether the kind belongs to the numeric family.
// Int and float literals compare against either field kind without
// coercion; comparison widens them to a common representation.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// KindOf classifies a literal's runtime representation. Nil is invalid.
func KindOf(v interface{}) Kind {
	switch v.(type) {
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case time.Time:
		return KindTime
	case []byte:
		return KindBytes
	default:
		return KindInvalid
	}
}
