package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/sift/internal/operator"
)

// Build converts a raw filter — the nested tree produced by qstring.Parse, or
// a hand-authored object — into the canonical Group tree.
//
// A root object exposing and/or/not branches is treated as a Group and each
// branch is built recursively. Any other object is treated as an
// EntityFilter (every key an attribute name) and wrapped in a single-branch
// Group. Operator aliases are resolved here; after Build, internal code only
// ever sees core operator names.
func Build(raw map[string]any) (*Group, error) {
	if IsGroupShape(raw) {
		return buildGroup(raw, "")
	}
	node, err := buildNode(raw, "")
	if err != nil {
		return nil, err
	}
	return &Group{And: []Node{node}}, nil
}

// buildNode dispatches on shape, in the fixed predicate order.
func buildNode(raw map[string]any, path string) (Node, error) {
	switch {
	case IsAttributeFilterShape(raw):
		return buildAttributeFilter(raw, path)
	case IsGroupShape(raw):
		return buildGroup(raw, path)
	default:
		return buildEntityFilter(raw, path)
	}
}

func buildAttributeFilter(raw map[string]any, path string) (*AttributeFilter, error) {
	f := &AttributeFilter{LogicalOp: LogicalAnd}

	attr, _ := raw["attribute"].(string)
	if attr == "" {
		return nil, &InvalidShapeError{Path: path, Detail: "attribute name must be a non-empty string"}
	}
	f.Attribute = attr

	ops := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "attribute" {
			continue
		}
		if k == "logicalOp" {
			op, err := normalizeLogicalOp(v, path)
			if err != nil {
				return nil, err
			}
			f.LogicalOp = op
			continue
		}
		ops[k] = v
	}

	shaped, err := buildOperatorMap(attr, ops, path)
	if err != nil {
		return nil, err
	}
	f.Ops = shaped
	return f, nil
}

func buildEntityFilter(raw map[string]any, path string) (*EntityFilter, error) {
	f := &EntityFilter{
		LogicalOp:  LogicalAnd,
		Attributes: make(map[string]map[string]any),
	}

	for k, v := range raw {
		// Only the long metadata spellings here: "id" and "label" are
		// legitimate attribute names on an entity filter.
		switch k {
		case "filterId":
			if s, ok := v.(string); ok {
				f.FilterID = s
			}
			continue
		case "filterLabel":
			if s, ok := v.(string); ok {
				f.FilterLabel = s
			}
			continue
		case "logicalOp":
			op, err := normalizeLogicalOp(v, path)
			if err != nil {
				return nil, err
			}
			f.LogicalOp = op
			continue
		}

		attrPath := joinPath(path, k)
		switch val := v.(type) {
		case map[string]any:
			shaped, err := buildOperatorMap(k, val, attrPath)
			if err != nil {
				return nil, err
			}
			f.Attributes[k] = shaped
		case []any:
			// Bare list sugar: attribute in [...].
			arr, err := shapeOperatorValue(k, operator.In, val, attrPath)
			if err != nil {
				return nil, err
			}
			f.Attributes[k] = map[string]any{operator.In: arr}
		default:
			// Bare scalar sugar: attribute equals value.
			f.Attributes[k] = map[string]any{operator.Eq: CoerceScalar(v)}
		}
	}

	return f, nil
}

func buildGroup(raw map[string]any, path string) (*Group, error) {
	g := &Group{}

	for k, v := range raw {
		switch k {
		case "filterId", "id":
			if s, ok := v.(string); ok {
				g.FilterID = s
			}
		case "filterLabel", "label":
			if s, ok := v.(string); ok {
				g.FilterLabel = s
			}
		case "logicalOp":
			// Meaningless on a group; tolerated for round-tripping inputs
			// that set it everywhere.
		case "and", "or", "not":
			branch, err := buildBranch(v, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			switch k {
			case "and":
				g.And = branch
			case "or":
				g.Or = branch
			case "not":
				g.Not = branch
			}
		default:
			return nil, &InvalidShapeError{
				Path:   joinPath(path, k),
				Detail: fmt.Sprintf("unexpected key %q in filter group", k),
			}
		}
	}

	return g, nil
}

// buildBranch builds one and/or/not branch. A single object is accepted in
// place of a one-element array; an empty array is legal and yields nil.
func buildBranch(v any, path string) ([]Node, error) {
	var items []any
	switch val := v.(type) {
	case []any:
		items = val
	case map[string]any:
		items = []any{val}
	case nil:
		return nil, nil
	default:
		return nil, &InvalidShapeError{Path: path, Detail: "group branch must be an array of filters"}
	}

	var nodes []Node
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &InvalidShapeError{
				Path:   fmt.Sprintf("%s[%d]", path, i),
				Detail: "group branch element must be an object",
			}
		}
		node, err := buildNode(m, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// buildOperatorMap normalizes every operator key and shapes its value.
func buildOperatorMap(attr string, raw map[string]any, path string) (map[string]any, error) {
	shaped := make(map[string]any, len(raw))
	for k, v := range raw {
		op := operator.Normalize(k)
		if !operator.IsCore(op) {
			return nil, &InvalidOperatorError{Attribute: attr, Operator: k}
		}
		val, err := shapeOperatorValue(attr, op, v, path)
		if err != nil {
			return nil, err
		}
		if existing, ok := shaped[op]; ok {
			// Two spellings of the same operator combine rather than
			// overwrite, matching repeated-key handling upstream.
			shaped[op] = append(ToArray(existing), ToArray(val)...)
			continue
		}
		shaped[op] = val
	}
	return shaped, nil
}

// shapeOperatorValue coerces v into the shape op consumes: an array for
// array-shaped operators, a [from, to] pair for ranges, a coerced scalar
// otherwise. Complex values are kept intact; the compiler extracts them.
func shapeOperatorValue(attr, op string, v any, path string) (any, error) {
	if IsComplex(v) {
		return v, nil
	}

	switch {
	case operator.IsArrayShaped(op):
		arr := ToArray(v)
		out := make([]any, len(arr))
		for i, elem := range arr {
			if IsComplex(elem) {
				out[i] = elem
				continue
			}
			out[i] = CoerceScalar(elem)
		}
		return out, nil

	case op == operator.Bt:
		pair, err := NormalizeRange(v)
		if err != nil {
			return nil, err
		}
		pair[0] = CoerceScalar(pair[0])
		pair[1] = CoerceScalar(pair[1])
		return pair, nil

	default:
		return CoerceScalar(v), nil
	}
}

func normalizeLogicalOp(v any, path string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &InvalidShapeError{Path: path, Detail: "logicalOp must be a string"}
	}
	switch strings.ToLower(s) {
	case "", LogicalAnd:
		return LogicalAnd, nil
	case LogicalOr:
		return LogicalOr, nil
	default:
		return "", &InvalidShapeError{Path: path, Detail: fmt.Sprintf("logicalOp must be %q or %q, got %q", LogicalAnd, LogicalOr, s)}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
