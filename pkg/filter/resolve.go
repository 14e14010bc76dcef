package filter

import (
	"github.com/astro-panda/queryable/pkg/coerce"
	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// knownOps are the operators a leaf can compile to, post-canonicalization.
var knownOps = map[string]struct{}{
	sequence.OpEq:         {},
	sequence.OpNeq:        {},
	sequence.OpContains:   {},
	sequence.OpStartsWith: {},
	sequence.OpEndsWith:   {},
	sequence.OpLt:         {},
	sequence.OpLte:        {},
	sequence.OpGt:         {},
	sequence.OpGte:        {},
}

// canonical maps the negated aliases onto the operator they invert to.
var canonical = map[string]string{
	sequence.OpNgte: sequence.OpLt,
	sequence.OpNgt:  sequence.OpLte,
	sequence.OpNlte: sequence.OpGt,
	sequence.OpNlt:  sequence.OpGte,
}

// CanonicalOp rewrites a negated operator alias to its canonical form
// and leaves every other operator untouched.
func CanonicalOp(op string) string {
	if c, ok := canonical[op]; ok {
		return c
	}
	return op
}

// Known reports whether an operator (canonical or alias) compiles to a
// leaf predicate.
func Known(op string) bool {
	_, ok := knownOps[CanonicalOp(op)]
	return ok
}

// Resolve returns a copy of the tree with every leaf's external field
// name rewritten to its internal name, negated operator aliases
// canonicalized, and literals coerced to the resolved field's
// representation. All fatal filter validation happens here: an unknown
// field (per the property-mapper rule) or an unsupported coercion fails
// the whole compilation. Literals of unrecognized operators stay
// untouched since their leaves contribute nothing downstream.
func Resolve[T any](node *sequence.FilterNode, reg *fields.Registry[T], mapper fields.PropertyMapper, coercer *coerce.Coercer) (*sequence.FilterNode, error) {
	if node == nil {
		return nil, nil
	}
	if coercer == nil {
		coercer = coerce.New()
	}
	return resolveNode(node, reg, mapper, coercer)
}

func resolveNode[T any](node *sequence.FilterNode, reg *fields.Registry[T], mapper fields.PropertyMapper, coercer *coerce.Coercer) (*sequence.FilterNode, error) {
	if !node.IsLeaf() {
		out := &sequence.FilterNode{
			Logic:    node.Logic,
			Children: make([]*sequence.FilterNode, 0, len(node.Children)),
		}
		for _, child := range node.Children {
			rc, err := resolveNode(child, reg, mapper, coercer)
			if err != nil {
				return nil, err
			}
			out.Children = append(out.Children, rc)
		}
		return out, nil
	}

	f, err := reg.Resolve(node.Field, mapper)
	if err != nil {
		return nil, err
	}
	op := CanonicalOp(node.Operator)
	value := node.Value
	if _, known := knownOps[op]; known {
		value, err = coercer.Coerce(value, f.Kind, f.Nullable)
		if err != nil {
			return nil, err
		}
	}
	return sequence.Leaf(f.Name, op, value), nil
}
