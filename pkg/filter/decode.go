// Package filter turns the caller's declarative filter tree into a
// boolean predicate over the element type. The work happens in three
// phases: Decode maps the raw input onto the tagged node type once at
// the boundary, Resolve rewrites field names and literals against a
// field registry (all fatal validation lives here), and Compile builds
// the predicate. Pushdown-capable backends consume the resolved tree
// directly instead of the compiled predicate.
package filter

import (
	"fmt"
	"sort"

	"github.com/astro-panda/queryable/pkg/sequence"
)

const (
	keyAnd = "and"
	keyOr  = "or"
)

// Decode converts a raw filter mapping into a node tree. Top-level keys
// are either the literal groupers "and"/"or", each holding a list of
// filter-group objects (field→operator-map mappings combined internally
// with AND), or a field name holding an operator→literal mapping. All
// top-level results combine with AND. Empty input decodes to nil.
func Decode(raw map[string]interface{}) (*sequence.FilterNode, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	root := sequence.And()
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		switch key {
		case keyAnd, keyOr:
			group, err := decodeGroups(key, value)
			if err != nil {
				return nil, err
			}
			root.Children = append(root.Children, group)
		default:
			leaves, err := decodeField(key, value)
			if err != nil {
				return nil, err
			}
			root.Children = append(root.Children, leaves...)
		}
	}
	if len(root.Children) == 1 {
		return root.Children[0], nil
	}
	return root, nil
}

// decodeGroups decodes an "and"/"or" key: a list of filter-group
// objects whose members AND together inside each group.
func decodeGroups(key string, value interface{}) (*sequence.FilterNode, error) {
	groups, ok := value.([]interface{})
	if !ok {
		return nil, sequence.NewErrMalformedFilter(fmt.Sprintf("%s must be a list of filter groups", key))
	}
	node := &sequence.FilterNode{Logic: sequence.LogicAnd}
	if key == keyOr {
		node.Logic = sequence.LogicOr
	}
	for i, g := range groups {
		gm, ok := g.(map[string]interface{})
		if !ok {
			return nil, sequence.NewErrMalformedFilter(fmt.Sprintf("%s group %d is not a filter object", key, i))
		}
		member := sequence.And()
		for _, field := range sortedKeys(gm) {
			leaves, err := decodeField(field, gm[field])
			if err != nil {
				return nil, err
			}
			member.Children = append(member.Children, leaves...)
		}
		switch {
		case node.Logic == sequence.LogicAnd:
			// AND of ANDs flattens.
			node.Children = append(node.Children, member.Children...)
		case len(member.Children) == 1:
			node.Children = append(node.Children, member.Children[0])
		default:
			node.Children = append(node.Children, member)
		}
	}
	return node, nil
}

// decodeField decodes one field key: its value maps operators to
// literals, and every operator contributes one leaf (combined with AND
// by the caller).
func decodeField(field string, value interface{}) ([]*sequence.FilterNode, error) {
	ops, ok := value.(map[string]interface{})
	if !ok {
		return nil, sequence.NewErrMalformedFilter(fmt.Sprintf("field %s must map operators to literals", field))
	}
	leaves := make([]*sequence.FilterNode, 0, len(ops))
	for _, op := range sortedKeys(ops) {
		leaves = append(leaves, sequence.Leaf(field, op, ops[op]))
	}
	return leaves, nil
}

// sortedKeys keeps decoded trees deterministic; map order carries no
// meaning under AND.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
