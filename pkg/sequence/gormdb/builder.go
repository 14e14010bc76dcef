package gormdb

import (
	"strings"

	"gorm.io/gorm/clause"

	"github.com/astro-panda/queryable/pkg/fields"
	"github.com/astro-panda/queryable/pkg/filter"
	"github.com/astro-panda/queryable/pkg/sequence"
)

// never is a condition no row satisfies, used where a comparison
// cannot hold (ordering against a null literal, LIKE on non-text).
var never = clause.Expr{SQL: "1=0"}

// buildConds converts a resolved filter tree into a clause expression.
// Operators the translation does not model contribute nothing,
// matching the compiled predicate's permissive skip.
func buildConds(kinds map[string]fields.Kind, node *sequence.FilterNode) clause.Expression {
	if node == nil {
		return nil
	}
	if node.IsLeaf() {
		return buildLeaf(kinds, node)
	}

	var parts []clause.Expression
	for _, child := range node.Children {
		if expr := buildConds(kinds, child); expr != nil {
			parts = append(parts, expr)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 {
		return parts[0]
	}
	if node.Logic == sequence.LogicOr {
		return clause.OrConditions{Exprs: parts}
	}
	return clause.AndConditions{Exprs: parts}
}

func buildLeaf(kinds map[string]fields.Kind, node *sequence.FilterNode) clause.Expression {
	col := clause.Column{Name: node.Field}

	switch filter.CanonicalOp(node.Operator) {
	case sequence.OpEq:
		return clause.Eq{Column: col, Value: node.Value}
	case sequence.OpNeq:
		if node.Value == nil {
			return clause.Neq{Column: col, Value: nil}
		}
		// NULL rows match a not-equal test, like the compiled predicate.
		return clause.OrConditions{Exprs: []clause.Expression{
			clause.Neq{Column: col, Value: node.Value},
			clause.Eq{Column: col, Value: nil},
		}}
	case sequence.OpLt:
		return orderedExpr(clause.Lt{Column: col, Value: node.Value}, node.Value)
	case sequence.OpLte:
		return orderedExpr(clause.Lte{Column: col, Value: node.Value}, node.Value)
	case sequence.OpGt:
		return orderedExpr(clause.Gt{Column: col, Value: node.Value}, node.Value)
	case sequence.OpGte:
		return orderedExpr(clause.Gte{Column: col, Value: node.Value}, node.Value)
	case sequence.OpContains:
		return likeExpr(kinds, node, "%", "%")
	case sequence.OpStartsWith:
		return likeExpr(kinds, node, "", "%")
	case sequence.OpEndsWith:
		return likeExpr(kinds, node, "%", "")
	default:
		return nil
	}
}

func orderedExpr(expr clause.Expression, value interface{}) clause.Expression {
	if value == nil {
		return never
	}
	return expr
}

func likeExpr(kinds map[string]fields.Kind, node *sequence.FilterNode, prefix, suffix string) clause.Expression {
	lit, ok := node.Value.(string)
	if !ok {
		return never
	}
	if kinds != nil {
		if k, known := kinds[node.Field]; known && k != fields.KindString {
			return never
		}
	}
	pattern := prefix + escapeLike(lit) + suffix
	return clause.Expr{
		SQL:  "? LIKE ? ESCAPE '!'",
		Vars: []interface{}{clause.Column{Name: node.Field}, pattern},
	}
}

// The escape character must not be a backslash: a session over a mysql
// pool would parse ESCAPE '\' as an escaped quote under the default
// sql_mode. '!' parses identically everywhere.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildOrderColumns converts sort keys into ORDER BY columns. Keys
// naming unknown columns are inert, matching the compiled comparator.
// Null placement follows the engine's default ordering.
func buildOrderColumns(kinds map[string]fields.Kind, keys []sequence.SortKey) []clause.OrderByColumn {
	var cols []clause.OrderByColumn
	for _, k := range keys {
		if kinds != nil {
			if _, known := kinds[k.Field]; !known {
				continue
			}
		}
		cols = append(cols, clause.OrderByColumn{
			Column: clause.Column{Name: k.Field},
			Desc:   k.Desc,
		})
	}
	return cols
}
