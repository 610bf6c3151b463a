package filter

import "encoding/json"

// The canonical tree serializes back to the same plain-object form Build
// accepts, so a saved filter round-trips: marshal, store, unmarshal into a
// map, Build. Default logical operators and empty branches are omitted to
// keep the serialized form (and the fingerprint derived from it) stable
// regardless of whether the caller spelled the defaults out.

// MarshalJSON implements json.Marshaler for AttributeFilter.
func (f *AttributeFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeMap(f))
}

// MarshalJSON implements json.Marshaler for EntityFilter.
func (f *EntityFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeMap(f))
}

// MarshalJSON implements json.Marshaler for Group.
func (g *Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeMap(g))
}

// nodeMap converts a canonical node back to its plain-object form.
func nodeMap(n Node) map[string]any {
	switch f := n.(type) {
	case *AttributeFilter:
		m := map[string]any{"attribute": f.Attribute}
		if f.LogicalOp != "" && f.LogicalOp != LogicalAnd {
			m["logicalOp"] = f.LogicalOp
		}
		for op, v := range f.Ops {
			m[op] = valueForm(v)
		}
		return m

	case *EntityFilter:
		m := make(map[string]any, len(f.Attributes)+3)
		if f.FilterID != "" {
			m["filterId"] = f.FilterID
		}
		if f.FilterLabel != "" {
			m["filterLabel"] = f.FilterLabel
		}
		if f.LogicalOp != "" && f.LogicalOp != LogicalAnd {
			m["logicalOp"] = f.LogicalOp
		}
		for attr, ops := range f.Attributes {
			opMap := make(map[string]any, len(ops))
			for op, v := range ops {
				opMap[op] = valueForm(v)
			}
			m[attr] = opMap
		}
		return m

	case *Group:
		m := make(map[string]any, 5)
		if f.FilterID != "" {
			m["filterId"] = f.FilterID
		}
		if f.FilterLabel != "" {
			m["filterLabel"] = f.FilterLabel
		}
		if len(f.And) > 0 {
			m["and"] = branchForm(f.And)
		}
		if len(f.Or) > 0 {
			m["or"] = branchForm(f.Or)
		}
		if len(f.Not) > 0 {
			m["not"] = branchForm(f.Not)
		}
		return m

	default:
		return nil
	}
}

func branchForm(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = nodeMap(n)
	}
	return out
}

// valueForm converts shaped values back to plain JSON shapes.
func valueForm(v any) any {
	switch val := v.(type) {
	case ComplexValue:
		return complexForm(val)
	case *ComplexValue:
		return complexForm(*val)
	case [2]any:
		return []any{valueForm(val[0]), valueForm(val[1])}
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = valueForm(elem)
		}
		return out
	default:
		return v
	}
}

func complexForm(cv ComplexValue) map[string]any {
	m := map[string]any{"val": cv.Val}
	if cv.ValType != "" && cv.ValType != ValueLiteral {
		m["valType"] = string(cv.ValType)
	}
	if cv.Label != "" {
		m["label"] = cv.Label
	}
	return m
}
