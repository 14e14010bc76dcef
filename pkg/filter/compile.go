package filter

import (
	"strings"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/logging"
	"github.com/astro-panda/queryable/pkg/sequence"
)

type settings struct {
	log logging.Logger
}

// Option configures compilation.
type Option func(*settings)

// WithLogger routes skipped-clause notices somewhere visible.
func WithLogger(l logging.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// Compile turns a resolved tree into a single predicate. It never
// fails: a nil tree compiles to match-all, and a leaf with an operator
// the engine does not model contributes no predicate (the documented
// soft-failure mode, reported at debug level).
func Compile[T any](node *sequence.FilterNode, reg *fields.Registry[T], opts ...Option) sequence.Predicate[T] {
	s := settings{log: logging.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	p := compileNode(node, reg, s)
	if p == nil {
		return func(T) bool { return true }
	}
	return p
}

func compileNode[T any](node *sequence.FilterNode, reg *fields.Registry[T], s settings) sequence.Predicate[T] {
	if node == nil {
		return nil
	}
	if node.IsLeaf() {
		return compileLeaf(node, reg, s)
	}

	parts := make([]sequence.Predicate[T], 0, len(node.Children))
	for _, child := range node.Children {
		if p := compileNode(child, reg, s); p != nil {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	if node.Logic == sequence.LogicOr {
		return func(v T) bool {
			for _, p := range parts {
				if p(v) {
					return true
				}
			}
			return false
		}
	}
	return func(v T) bool {
		for _, p := range parts {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

func compileLeaf[T any](node *sequence.FilterNode, reg *fields.Registry[T], s settings) sequence.Predicate[T] {
	f, ok := reg.Field(node.Field)
	if !ok {
		// Resolve guarantees presence; a hand-built tree may not.
		s.log.Debug("filter: field %s not in registry, clause skipped", node.Field)
		return nil
	}
	lit := node.Value

	switch CanonicalOp(node.Operator) {
	case sequence.OpEq:
		return func(v T) bool {
			fv, present := f.Get(v)
			if lit == nil {
				return !present
			}
			if !present {
				return false
			}
			return fields.Compare(fv, lit) == 0
		}
	case sequence.OpNeq:
		return func(v T) bool {
			fv, present := f.Get(v)
			if lit == nil {
				return present
			}
			if !present {
				return true
			}
			return fields.Compare(fv, lit) != 0
		}
	case sequence.OpContains:
		return stringLeaf(f, lit, strings.Contains)
	case sequence.OpStartsWith:
		return stringLeaf(f, lit, strings.HasPrefix)
	case sequence.OpEndsWith:
		return stringLeaf(f, lit, strings.HasSuffix)
	case sequence.OpLt:
		return orderedLeaf(f, lit, func(c int) bool { return c < 0 })
	case sequence.OpLte:
		return orderedLeaf(f, lit, func(c int) bool { return c <= 0 })
	case sequence.OpGt:
		return orderedLeaf(f, lit, func(c int) bool { return c > 0 })
	case sequence.OpGte:
		return orderedLeaf(f, lit, func(c int) bool { return c >= 0 })
	default:
		s.log.Debug("filter: unsupported operator %q on field %s, clause skipped", node.Operator, node.Field)
		return nil
	}
}

// stringLeaf builds contains/startsWith/endsWith. Non-string operands
// never match; operator applicability beyond the documented coercions
// is not validated.
func stringLeaf[T any](f fields.Field[T], lit interface{}, match func(s, substr string) bool) sequence.Predicate[T] {
	needle, litOK := lit.(string)
	return func(v T) bool {
		if !litOK {
			return false
		}
		fv, present := f.Get(v)
		if !present {
			return false
		}
		s, ok := fv.(string)
		return ok && match(s, needle)
	}
}

// orderedLeaf builds the ordering comparisons. An absent field value or
// nil literal satisfies no ordering operator.
func orderedLeaf[T any](f fields.Field[T], lit interface{}, accept func(int) bool) sequence.Predicate[T] {
	return func(v T) bool {
		if lit == nil {
			return false
		}
		fv, present := f.Get(v)
		if !present {
			return false
		}
		return accept(fields.Compare(fv, lit))
	}
}
