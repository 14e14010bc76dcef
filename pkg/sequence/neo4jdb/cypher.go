package neo4jdb

import (
	"fmt"
	"strings"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/filter"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// paramSet collects query parameters under generated $pN names.
type paramSet struct {
	values map[string]interface{}
}

func newParamSet() *paramSet {
	return &paramSet{values: map[string]interface{}{}}
}

func (p *paramSet) add(v interface{}) string {
	name := fmt.Sprintf("p%d", len(p.values))
	p.values[name] = v
	return "$" + name
}

func (p *paramSet) clone() *paramSet {
	next := newParamSet()
	for k, v := range p.values {
		next.values[k] = v
	}
	return next
}

// escapeName quotes a label or property name, doubling embedded
// backticks.
func escapeName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func propRef(field string) string {
	return "n." + escapeName(field)
}

// buildPredicate converts a resolved filter tree into a Cypher WHERE
// body. Operators the translation does not model contribute nothing,
// matching the compiled predicate's permissive skip.
func buildPredicate(kinds map[string]fields.Kind, node *sequence.FilterNode, params *paramSet) string {
	if node == nil {
		return ""
	}
	if node.IsLeaf() {
		return buildLeaf(kinds, node, params)
	}

	joiner := " AND "
	if node.Logic == sequence.LogicOr {
		joiner = " OR "
	}

	var parts []string
	for _, child := range node.Children {
		if clause := buildPredicate(kinds, child, params); clause != "" {
			parts = append(parts, clause)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, joiner) + ")"
}

func buildLeaf(kinds map[string]fields.Kind, node *sequence.FilterNode, params *paramSet) string {
	prop := propRef(node.Field)

	switch filter.CanonicalOp(node.Operator) {
	case sequence.OpEq:
		if node.Value == nil {
			return prop + " IS NULL"
		}
		return prop + " = " + params.add(node.Value)
	case sequence.OpNeq:
		if node.Value == nil {
			return prop + " IS NOT NULL"
		}
		// Absent properties match a not-equal test, like the compiled
		// predicate.
		return "(" + prop + " <> " + params.add(node.Value) + " OR " + prop + " IS NULL)"
	case sequence.OpLt:
		return orderedClause(prop, "<", node.Value, params)
	case sequence.OpLte:
		return orderedClause(prop, "<=", node.Value, params)
	case sequence.OpGt:
		return orderedClause(prop, ">", node.Value, params)
	case sequence.OpGte:
		return orderedClause(prop, ">=", node.Value, params)
	case sequence.OpContains:
		return textClause(kinds, node, prop, "CONTAINS", params)
	case sequence.OpStartsWith:
		return textClause(kinds, node, prop, "STARTS WITH", params)
	case sequence.OpEndsWith:
		return textClause(kinds, node, prop, "ENDS WITH", params)
	default:
		return ""
	}
}

func orderedClause(prop, op string, value interface{}, params *paramSet) string {
	if value == nil {
		return "false"
	}
	return prop + " " + op + " " + params.add(value)
}

// textClause emits a Cypher text operator. These take no wildcards, so
// no escaping is needed.
func textClause(kinds map[string]fields.Kind, node *sequence.FilterNode, prop, op string, params *paramSet) string {
	lit, ok := node.Value.(string)
	if !ok {
		return "false"
	}
	if kinds != nil {
		if k, known := kinds[node.Field]; known && k != fields.KindString {
			return "false"
		}
	}
	return prop + " " + op + " " + params.add(lit)
}

// buildOrder converts sort keys into an ORDER BY body. Cypher places
// nulls last ascending and first descending, the reverse of the
// compiled comparator, so each key leads with a null-rank term.
func buildOrder(kinds map[string]fields.Kind, keys []sequence.SortKey) string {
	var parts []string
	for _, k := range keys {
		if kinds != nil {
			if _, known := kinds[k.Field]; !known {
				continue
			}
		}
		ref := propRef(k.Field)
		if k.Desc {
			parts = append(parts, ref+" IS NULL, "+ref+" DESC")
		} else {
			parts = append(parts, ref+" IS NOT NULL, "+ref)
		}
	}
	return strings.Join(parts, ", ")
}

// buildQuery assembles the node scan. SKIP composes without LIMIT,
// Cypher allows it standalone.
func buildQuery(q *Sequence) string {
	var b strings.Builder
	b.WriteString("MATCH (n:")
	b.WriteString(escapeName(q.label))
	b.WriteString(")")
	if q.where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.where)
	}
	b.WriteString(" RETURN n")
	if q.order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.order)
	}
	if q.offset > 0 {
		fmt.Fprintf(&b, " SKIP %d", q.offset)
	}
	if q.hasLimit {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	return b.String()
}

func buildCount(q *Sequence) string {
	var b strings.Builder
	b.WriteString("MATCH (n:")
	b.WriteString(escapeName(q.label))
	b.WriteString(")")
	if q.where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.where)
	}
	b.WriteString(" RETURN count(n)")
	return b.String()
}
