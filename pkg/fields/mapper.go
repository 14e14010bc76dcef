package fields

import (
	"strings"
	"unicode"
)

// Normalizer converts an external (caller-facing) field name into the
// internal identifier convention of the element type.
type Normalizer func(string) string

// ExportedName is the default Normalizer: it upper-cases the first rune,
// mapping external camelCase onto exported Go field names.
func ExportedName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Identity leaves external names untouched. Dynamic-row registries whose
// column names match the caller-facing names use it.
func Identity(name string) string { return name }

// PropertyMapper translates external field names to internal ones. Keys
// are stored lower-cased; lookups are case-insensitive on the external
// name. A non-empty mapper is exhaustive: resolving a name it does not
// contain is a fatal unknown-field error, never a fallthrough to the
// normalization convention.
type PropertyMapper map[string]string

// NewPropertyMapper copies m, lower-casing its keys.
func NewPropertyMapper(m map[string]string) PropertyMapper {
	if m == nil {
		return nil
	}
	pm := make(PropertyMapper, len(m))
	for k, v := range m {
		pm[strings.ToLower(k)] = v
	}
	return pm
}

// Lookup resolves an external name case-insensitively.
func (m PropertyMapper) Lookup(external string) (string, bool) {
	internal, ok := m[strings.ToLower(external)]
	return internal, ok
}
