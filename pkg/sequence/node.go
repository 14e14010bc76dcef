package sequence

// LogicOp is the grouping mode of a non-leaf filter node.
type LogicOp string

const (
	LogicAnd LogicOp = "and"
	LogicOr  LogicOp = "or"
)

// Comparison operators understood by the compilers and translators.
// The n-prefixed forms are negated aliases; Resolve rewrites them to
// their canonical counterparts so backends only see the left column.
const (
	OpEq         = "eq"
	OpNeq        = "neq"
	OpContains   = "contains"
	OpStartsWith = "startsWith"
	OpEndsWith   = "endsWith"
	OpLt         = "lt"
	OpLte        = "lte"
	OpGt         = "gt"
	OpGte        = "gte"

	OpNgte = "ngte" // lt
	OpNgt  = "ngt"  // lte
	OpNlte = "nlte" // gt
	OpNlt  = "nlt"  // gte
)

// FilterNode is the tagged filter-tree variant: a group node carries
// Logic and Children, a leaf carries Field, Operator and Value. The raw
// caller representation is decoded into this shape once at the
// boundary; nothing deeper in the pipeline inspects dynamic values.
type FilterNode struct {
	Logic    LogicOp
	Children []*FilterNode

	Field    string
	Operator string
	Value    interface{}
}

// And groups child nodes under conjunction.
func And(children ...*FilterNode) *FilterNode {
	return &FilterNode{Logic: LogicAnd, Children: children}
}

// Or groups child nodes under disjunction.
func Or(children ...*FilterNode) *FilterNode {
	return &FilterNode{Logic: LogicOr, Children: children}
}

// Leaf builds a field/operator/literal comparison node.
func Leaf(field, operator string, value interface{}) *FilterNode {
	return &FilterNode{Field: field, Operator: operator, Value: value}
}

// IsLeaf reports whether the node is a comparison rather than a group.
func (n *FilterNode) IsLeaf() bool {
	return n != nil && n.Logic == ""
}

// SortKey is one entry of an ordered sort specification.
type SortKey struct {
	Field string
	Desc  bool
}

// Asc builds an ascending sort key.
func Asc(field string) SortKey { return SortKey{Field: field} }

// Desc builds a descending sort key.
func Desc(field string) SortKey { return SortKey{Field: field, Desc: true} }
