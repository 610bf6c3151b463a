// Package qstring converts flat URL-style parameter maps into the nested raw
// filter tree the AST builder consumes.
//
// Three key notations are interchangeable: bracket (foo[eq]), dot (foo.eq),
// and indexed-array for group membership (or[0].foo.eq, or[].foo.eq). This
// stage performs no operator normalization and no type coercion — it
// produces strings; the builder and value coercer consume them.
package qstring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/sift/internal/operator"
)

// valueDelimiters split a single raw value into multiple values for
// operators that consume lists (and for ranges). Any run of these characters
// acts as one separator.
const valueDelimiters = "&,+;:."

// Parse converts a flat parameter map into a nested raw filter tree.
// Repeated logical keys (foo[eq] and foo.eq address the same leaf) are
// combined into an array rather than overwriting.
func Parse(params map[string]string) (map[string]any, error) {
	values := make(map[string][]string, len(params))
	for k, v := range params {
		values[k] = []string{v}
	}
	return ParseValues(values)
}

// ParseValues is Parse for multi-valued parameter maps (url.Values). Every
// occurrence of a repeated key contributes its value to the same leaf.
func ParseValues(params map[string][]string) (map[string]any, error) {
	// Deterministic insertion order keeps error messages and combined
	// arrays stable across calls.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tree := make(map[string]any)
	for _, key := range keys {
		segs := splitKey(key)
		if len(segs) == 0 {
			continue
		}
		for _, raw := range params[key] {
			if err := insert(tree, segs, leafValue(segs[len(segs)-1], raw)); err != nil {
				return nil, fmt.Errorf("parameter %q: %w", key, err)
			}
		}
	}

	return normalizeGroups(tree), nil
}

// splitKey tokenizes a parameter name into path segments. Bracket segments
// are rewritten to dot segments first, so foo[eq] and foo.eq tokenize
// identically. An empty segment (from or[]) is an append marker.
func splitKey(key string) []string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '[':
			b.WriteByte('.')
		case ']':
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	parts := strings.Split(b.String(), ".")
	// A trailing empty segment from or[] stays; leading ones are noise.
	for len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	return parts
}

// leafValue splits the raw string when the final segment is an operator that
// consumes multiple values. All values remain strings.
func leafValue(lastSeg, raw string) any {
	if !multiValued(lastSeg) {
		return raw
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(valueDelimiters, r)
	})
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

// multiValued reports whether a key segment names an operator whose value is
// a list (array-shaped operators and ranges). This is classification only;
// the segment itself is stored unchanged.
func multiValued(seg string) bool {
	return operator.IsArrayShaped(seg) || operator.Normalize(seg) == operator.Bt
}

func insert(node map[string]any, segs []string, val any) error {
	seg := segs[0]

	if len(segs) == 1 {
		existing, ok := node[seg]
		if !ok {
			node[seg] = val
			return nil
		}
		if _, isMap := existing.(map[string]any); isMap {
			return fmt.Errorf("key %q used as both value and object", seg)
		}
		node[seg] = append(flatten(existing), flatten(val)...)
		return nil
	}

	child, ok := node[seg]
	if !ok {
		m := make(map[string]any)
		node[seg] = m
		return insert(m, segs[1:], val)
	}
	m, isMap := child.(map[string]any)
	if !isMap {
		return fmt.Errorf("key %q used as both value and object", seg)
	}
	return insert(m, segs[1:], val)
}

func flatten(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

// normalizeGroups rewrites group branches into arrays of fragments. The
// and/or/not keys always produce arrays, whether the caller used bracket,
// dot, or index notation, and whether one or many items were supplied.
func normalizeGroups(node map[string]any) map[string]any {
	for k, v := range node {
		switch k {
		case "and", "or", "not":
			node[k] = groupItems(v)
		default:
			if m, ok := v.(map[string]any); ok {
				node[k] = normalizeGroups(m)
			}
		}
	}
	return node
}

// groupItems converts a group branch value into an ordered []any. Indexed
// children ("0", "1", ... and the "" append marker) are ordered numerically
// with appends last; a plain fragment object becomes a one-element array.
func groupItems(v any) []any {
	m, ok := v.(map[string]any)
	if !ok {
		return flatten(v)
	}

	indexed := true
	for k := range m {
		if k == "" {
			continue
		}
		if _, err := strconv.Atoi(k); err != nil {
			indexed = false
			break
		}
	}

	if !indexed {
		// A single unindexed fragment, e.g. and.foo.eq=1.
		return []any{normalizeGroups(m)}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "" || keys[j] == "" {
			return keys[j] == ""
		}
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		item := m[k]
		if im, ok := item.(map[string]any); ok {
			out = append(out, normalizeGroups(im))
			continue
		}
		out = append(out, item)
	}
	return out
}
