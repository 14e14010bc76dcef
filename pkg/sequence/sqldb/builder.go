package sqldb

import (
	"fmt"
	"strings"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/filter"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// buildWhere converts a resolved filter tree into a parameterized
// clause. Operators the translation does not model contribute nothing,
// matching the compiled predicate's permissive skip. paramOffset is the
// number of parameters already emitted (for $N placeholders).
func buildWhere(d Dialect, kinds map[string]fields.Kind, node *sequence.FilterNode, paramOffset int) (string, []interface{}) {
	if node == nil {
		return "", nil
	}
	if node.IsLeaf() {
		return buildLeaf(d, kinds, node, paramOffset)
	}

	joiner := " AND "
	if node.Logic == sequence.LogicOr {
		joiner = " OR "
	}

	var parts []string
	var params []interface{}
	for _, child := range node.Children {
		clause, childParams := buildWhere(d, kinds, child, paramOffset)
		if clause == "" {
			continue
		}
		parts = append(parts, clause)
		params = append(params, childParams...)
		paramOffset += len(childParams)
	}
	if len(parts) == 0 {
		return "", nil
	}
	if len(parts) == 1 {
		return parts[0], params
	}
	return "(" + strings.Join(parts, joiner) + ")", params
}

func buildLeaf(d Dialect, kinds map[string]fields.Kind, node *sequence.FilterNode, paramOffset int) (string, []interface{}) {
	col := d.QuoteIdentifier(node.Field)
	ph := d.Placeholder(paramOffset + 1)

	switch filter.CanonicalOp(node.Operator) {
	case sequence.OpEq:
		if node.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + ph, []interface{}{node.Value}
	case sequence.OpNeq:
		if node.Value == nil {
			return col + " IS NOT NULL", nil
		}
		// NULL rows match a not-equal test, like the compiled predicate.
		return "(" + col + " <> " + ph + " OR " + col + " IS NULL)", []interface{}{node.Value}
	case sequence.OpLt:
		return orderedClause(col, "<", ph, node.Value)
	case sequence.OpLte:
		return orderedClause(col, "<=", ph, node.Value)
	case sequence.OpGt:
		return orderedClause(col, ">", ph, node.Value)
	case sequence.OpGte:
		return orderedClause(col, ">=", ph, node.Value)
	case sequence.OpContains:
		return likeClause(col, ph, kinds, node, "%", "%")
	case sequence.OpStartsWith:
		return likeClause(col, ph, kinds, node, "", "%")
	case sequence.OpEndsWith:
		return likeClause(col, ph, kinds, node, "%", "")
	default:
		return "", nil
	}
}

func orderedClause(col, op, ph string, value interface{}) (string, []interface{}) {
	if value == nil {
		return "1=0", nil
	}
	return col + " " + op + " " + ph, []interface{}{value}
}

func likeClause(col, ph string, kinds map[string]fields.Kind, node *sequence.FilterNode, prefix, suffix string) (string, []interface{}) {
	lit, ok := node.Value.(string)
	if !ok {
		return "1=0", nil
	}
	if kinds != nil {
		if k, known := kinds[node.Field]; known && k != fields.KindString {
			return "1=0", nil
		}
	}
	pattern := prefix + escapeLike(lit) + suffix
	return col + " LIKE " + ph + " ESCAPE '!'", []interface{}{pattern}
}

// The escape character must not be a backslash: under MySQL's default
// sql_mode a backslash escapes inside string literals, so ESCAPE '\'
// would swallow the closing quote. '!' parses identically everywhere.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildOrder converts sort keys into an ORDER BY body. Keys naming
// unknown columns are inert, matching the compiled comparator.
func buildOrder(d Dialect, kinds map[string]fields.Kind, keys []sequence.SortKey) string {
	var parts []string
	for _, k := range keys {
		if kinds != nil {
			if _, known := kinds[k.Field]; !known {
				continue
			}
		}
		dir := " ASC"
		if k.Desc {
			dir = " DESC"
		}
		parts = append(parts, d.QuoteIdentifier(k.Field)+dir+d.NullsOrdering(k.Desc))
	}
	return strings.Join(parts, ", ")
}

// buildSelect assembles the final statement from the accumulated query
// state.
func buildSelect(d Dialect, table, where, order string, offset, limit int, hasLimit bool) string {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(d.QuoteIdentifier(table))
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
	}
	if hasLimit {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
		if offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", offset)
		}
	}
	return sb.String()
}

func buildCount(d Dialect, table, where string) string {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(d.QuoteIdentifier(table))
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return sb.String()
}
