package mcp

import (
	"fmt"
	"sort"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// Source pairs a registered name with a base sequence and the column
// metadata its registry was built from. Query handlers derive from the
// base sequence, which stays untouched, so one Source serves any number
// of concurrent requests.
type Source struct {
	name string
	cols []fields.Column
	seq  sequence.Sequence[sequence.Row]
	reg  *fields.Registry[sequence.Row]
}

// NewSource builds a Source over a base sequence.
func NewSource(name string, cols []fields.Column, seq sequence.Sequence[sequence.Row]) *Source {
	return &Source{
		name: name,
		cols: cols,
		seq:  seq,
		reg:  fields.FromColumns(cols),
	}
}

// Name returns the registered name.
func (s *Source) Name() string { return s.name }

// Columns returns the column metadata.
func (s *Source) Columns() []fields.Column { return s.cols }

// Sequence returns the base sequence queries derive from.
func (s *Source) Sequence() sequence.Sequence[sequence.Row] { return s.seq }

// Registry returns the field registry.
func (s *Source) Registry() *fields.Registry[sequence.Row] { return s.reg }

// Registry holds the queryable sources by name. Registration happens
// at startup, before the server accepts requests; it is not safe to
// interleave with lookups.
type Registry struct {
	sources map[string]*Source
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]*Source{}}
}

// Register adds a source, rejecting duplicate names.
func (r *Registry) Register(src *Source) error {
	if src == nil || src.name == "" {
		return fmt.Errorf("source must have a name")
	}
	if _, exists := r.sources[src.name]; exists {
		return fmt.Errorf("source %s is already registered", src.name)
	}
	r.sources[src.name] = src
	return nil
}

// Get looks a source up by name.
func (r *Registry) Get(name string) (*Source, bool) {
	src, ok := r.sources[name]
	return src, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many sources are registered.
func (r *Registry) Len() int { return len(r.sources) }
