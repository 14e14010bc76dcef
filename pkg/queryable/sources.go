package queryable

import "github.com/astro-panda/queryable/pkg/sequence"

// FilterSource exposes the raw filter dictionary of the host request
// context. Handled signals the host that the engine consumed the
// filter, so an outer resolver must not re-apply its own.
type FilterSource interface {
	Dictionary() map[string]interface{}
	Handled(bool)
}

// SortSource exposes the ordered sort groups of the host request
// context. Only the first group is honored; later groups are ignored.
type SortSource interface {
	OrderedGroups() [][]sequence.SortKey
	Handled(bool)
}

// Filter is a value-backed FilterSource for hosts without a richer
// request context.
type Filter struct {
	Fields map[string]interface{}

	handled bool
}

// Dictionary implements FilterSource.
func (f *Filter) Dictionary() map[string]interface{} { return f.Fields }

// Handled implements FilterSource.
func (f *Filter) Handled(v bool) { f.handled = v }

// IsHandled reports whether the engine consumed the filter.
func (f *Filter) IsHandled() bool { return f.handled }

// Sort is a value-backed SortSource.
type Sort struct {
	Groups [][]sequence.SortKey

	handled bool
}

// OrderedGroups implements SortSource.
func (s *Sort) OrderedGroups() [][]sequence.SortKey { return s.Groups }

// Handled implements SortSource.
func (s *Sort) Handled(v bool) { s.handled = v }

// IsHandled reports whether the engine consumed the sort.
func (s *Sort) IsHandled() bool { return s.handled }
