package filter

import (
	"log/slog"
	"strconv"

	"github.com/roach88/sift/internal/operator"
)

// AttrResolver resolves an attribute name to its opaque reference token.
// Supplied by the expression compiler when extracting propRef values.
type AttrResolver func(name string) (any, error)

// IsComplex reports whether raw carries provenance metadata: either a
// ComplexValue (by value or pointer) or a raw object with a "val" key.
func IsComplex(raw any) bool {
	switch v := raw.(type) {
	case ComplexValue, *ComplexValue:
		return true
	case map[string]any:
		_, ok := v["val"]
		return ok
	default:
		return false
	}
}

// ExtractValue resolves a filter value that may be complex. Bare values are
// returned as-is. For complex values the valType governs resolution:
//
//   - literal (default): Val is returned unchanged.
//   - propRef: Val names another attribute of the same record; it is resolved
//     through resolve into a reference token.
//   - expression: tokens such as now() are not interpretable yet. They pass
//     through literally, with a logged warning so the gap is visible.
func ExtractValue(raw any, resolve AttrResolver) (any, error) {
	if !IsComplex(raw) {
		return raw, nil
	}

	cv := asComplex(raw)
	switch cv.ValType {
	case ValuePropRef:
		name, ok := cv.Val.(string)
		if !ok {
			return nil, &InvalidShapeError{Detail: "propRef value must name an attribute"}
		}
		if resolve == nil {
			return nil, &InvalidShapeError{Detail: "propRef value requires an attribute resolver"}
		}
		return resolve(name)
	case ValueExpression:
		slog.Warn("expression filter values are not interpreted; passing through literally",
			"val", cv.Val)
		return cv.Val, nil
	default: // literal
		return cv.Val, nil
	}
}

// asComplex converts any complex shape to a ComplexValue.
func asComplex(raw any) ComplexValue {
	switch v := raw.(type) {
	case ComplexValue:
		return v
	case *ComplexValue:
		return *v
	case map[string]any:
		cv := ComplexValue{Val: v["val"]}
		if t, ok := v["valType"].(string); ok {
			cv.ValType = ValueType(t)
		}
		if l, ok := v["label"].(string); ok {
			cv.Label = l
		}
		return cv
	default:
		return ComplexValue{Val: raw}
	}
}

// ShouldCoerceNumber reports whether value should be coerced to a number:
// true iff the normalized operator compares numerically and the value is a
// number or a numeric-looking string.
func ShouldCoerceNumber(value any, op string) bool {
	if !operator.IsNumeric(op) {
		return false
	}
	switch v := value.(type) {
	case int, int64, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}

// Coerce applies the ShouldCoerceNumber decision.
func Coerce(value any, op string) any {
	if !ShouldCoerceNumber(value, op) {
		return value
	}
	return CoerceScalar(value)
}

// CoerceScalar converts a numeric-looking string into a number, integers
// first. Non-strings and non-numeric strings are returned unchanged. The AST
// builder applies this to every scalar so that query-string input (which is
// all strings) carries the same value types as hand-authored filters.
func CoerceScalar(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return value
}

// ToArray wraps non-array values in a single-element array. Every
// array-shaped operator goes through this so downstream code never branches
// on arity.
func ToArray(value any) []any {
	if s, ok := asSlice(value); ok {
		return s
	}
	return []any{value}
}

// asSlice converts the common slice shapes to []any.
func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case [2]any:
		return []any{v[0], v[1]}, true
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []int64:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	default:
		return nil, false
	}
}

// NormalizeRange accepts either a two-element ordered sequence or an object
// with from/to keys and returns the [from, to] pair. Any other shape is an
// InvalidRangeError. Idempotent once in pair form.
func NormalizeRange(value any) ([2]any, error) {
	if s, ok := asSlice(value); ok {
		if len(s) != 2 {
			return [2]any{}, &InvalidRangeError{Value: value}
		}
		return [2]any{s[0], s[1]}, nil
	}
	if m, ok := value.(map[string]any); ok {
		from, hasFrom := m["from"]
		to, hasTo := m["to"]
		if !hasFrom || !hasTo {
			return [2]any{}, &InvalidRangeError{Value: value}
		}
		return [2]any{from, to}, nil
	}
	return [2]any{}, &InvalidRangeError{Value: value}
}
