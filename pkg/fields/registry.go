package fields

import (
	"sort"

	"github.com/astro-panda/queryable/pkg/sequence"
)

// Field describes one named, typed accessor on the element type T.
// Get reports presence: nil pointers and missing or nil map entries are
// absent, and absent values order before any present value.
type Field[T any] struct {
	Name     string
	Kind     Kind
	Nullable bool
	Get      func(T) (interface{}, bool)
}

// Registry holds the fields of one element type, keyed by internal name.
// It is built once per element type and read-only afterwards.
type Registry[T any] struct {
	fields map[string]Field[T]
	norm   Normalizer
}

// Option configures a Registry.
type Option[T any] func(*Registry[T])

// WithNormalizer replaces the default ExportedName convention.
func WithNormalizer[T any](n Normalizer) Option[T] {
	return func(r *Registry[T]) {
		if n != nil {
			r.norm = n
		}
	}
}

// NewRegistry builds a registry from explicit field definitions.
func NewRegistry[T any](fields []Field[T], opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{
		fields: make(map[string]Field[T], len(fields)),
		norm:   ExportedName,
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, f := range fields {
		r.fields[f.Name] = f
	}
	return r
}

// Field looks up a field by its internal name.
func (r *Registry[T]) Field(internal string) (Field[T], bool) {
	f, ok := r.fields[internal]
	return f, ok
}

// Resolve maps an external field name to its Field. With a non-empty
// mapper the name must exist in the mapper and the mapped name must
// exist in the registry; either miss is a fatal unknown-field error
// naming the normalized (or mapped) field. Without a mapper the name is
// normalized and looked up directly.
func (r *Registry[T]) Resolve(external string, mapper PropertyMapper) (Field[T], error) {
	normalized := r.norm(external)
	if len(mapper) > 0 {
		internal, ok := mapper.Lookup(external)
		if !ok {
			return Field[T]{}, sequence.NewErrUnknownField(normalized)
		}
		f, ok := r.fields[internal]
		if !ok {
			return Field[T]{}, sequence.NewErrUnknownField(internal)
		}
		return f, nil
	}
	f, ok := r.fields[normalized]
	if !ok {
		return Field[T]{}, sequence.NewErrUnknownField(normalized)
	}
	return f, nil
}

// Names returns the internal field names, sorted.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered fields.
func (r *Registry[T]) Len() int { return len(r.fields) }

// Column describes one field of a dynamic row source.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// FromColumns builds a Row registry from column metadata. Row keys are
// the column names verbatim, so the Identity normalizer is the default.
func FromColumns(cols []Column, opts ...Option[sequence.Row]) *Registry[sequence.Row] {
	fs := make([]Field[sequence.Row], 0, len(cols))
	for _, col := range cols {
		name := col.Name
		fs = append(fs, Field[sequence.Row]{
			Name:     name,
			Kind:     col.Kind,
			Nullable: col.Nullable,
			Get: func(row sequence.Row) (interface{}, bool) {
				v, ok := row[name]
				if !ok || v == nil {
					return nil, false
				}
				return v, true
			},
		})
	}
	all := append([]Option[sequence.Row]{WithNormalizer[sequence.Row](Identity)}, opts...)
	return NewRegistry(fs, all...)
}
