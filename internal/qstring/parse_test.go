package qstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sift/internal/filter"
)

func TestParse_NotationsAreInterchangeable(t *testing.T) {
	testCases := []struct {
		name   string
		params map[string]string
	}{
		{"bracket", map[string]string{"foo[eq]": "1"}},
		{"dot", map[string]string{"foo.eq": "1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := Parse(tc.params)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"foo": map[string]any{"eq": "1"}}, tree)
		})
	}
}

func TestParse_MixedNotationsMergeOnOneAttribute(t *testing.T) {
	tree, err := Parse(map[string]string{
		"foo[eq]": "1",
		"foo.neq": "3",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"foo": map[string]any{"eq": "1", "neq": "3"},
	}, tree)
}

func TestParse_ProducesStringsOnly(t *testing.T) {
	// No coercion at this stage; the builder owns that.
	tree, err := Parse(map[string]string{"age.gt": "18"})
	require.NoError(t, err)
	assert.Equal(t, "18", tree["age"].(map[string]any)["gt"])
}

func TestParse_ArrayOperatorValueSplitting(t *testing.T) {
	testCases := []struct {
		name  string
		raw   string
		want  []any
	}{
		{"commas", "a,b,c", []any{"a", "b", "c"}},
		{"mixed delimiters", "a;b:c+d", []any{"a", "b", "c", "d"}},
		{"delimiter runs collapse", "a,,;b", []any{"a", "b"}},
		{"single value still an array", "a", []any{"a"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := Parse(map[string]string{"tags[in]": tc.raw})
			require.NoError(t, err)
			assert.Equal(t, tc.want, tree["tags"].(map[string]any)["in"])
		})
	}
}

func TestParse_RangeValueSplitting(t *testing.T) {
	tree, err := Parse(map[string]string{"age[bt]": "18:30"})
	require.NoError(t, err)
	assert.Equal(t, []any{"18", "30"}, tree["age"].(map[string]any)["bt"])
}

func TestParse_RepeatedKeysCombine(t *testing.T) {
	tree, err := Parse(map[string]string{
		"and.1.baz.nin":  "8989",
		"and.1.baz[nin]": "565",
	})
	require.NoError(t, err)

	and, ok := tree["and"].([]any)
	require.True(t, ok, "and must always be an array")
	require.Len(t, and, 1)

	baz := and[0].(map[string]any)["baz"].(map[string]any)
	assert.Equal(t, []any{"8989", "565"}, baz["nin"])
}

func TestParseValues_RepeatedParameterCombines(t *testing.T) {
	tree, err := ParseValues(map[string][]string{
		"baz.nin": {"8989", "565"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"8989", "565"}, tree["baz"].(map[string]any)["nin"])
}

func TestParse_GroupKeysAlwaysProduceArrays(t *testing.T) {
	testCases := []struct {
		name   string
		params map[string]string
	}{
		{"indexed", map[string]string{"or[0].foo.eq": "1"}},
		{"empty index", map[string]string{"or[].foo.eq": "1"}},
		{"dot index", map[string]string{"or.0.foo.eq": "1"}},
		{"no index", map[string]string{"or.foo.eq": "1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := Parse(tc.params)
			require.NoError(t, err)
			or, ok := tree["or"].([]any)
			require.True(t, ok, "or must be an array")
			require.Len(t, or, 1)
			assert.Equal(t, map[string]any{"foo": map[string]any{"eq": "1"}}, or[0])
		})
	}
}

func TestParse_IndexedGroupOrdering(t *testing.T) {
	tree, err := Parse(map[string]string{
		"and.1.b.eq": "second",
		"and.0.a.eq": "first",
	})
	require.NoError(t, err)

	and := tree["and"].([]any)
	require.Len(t, and, 2)
	assert.Contains(t, and[0].(map[string]any), "a")
	assert.Contains(t, and[1].(map[string]any), "b")
}

func TestParse_ConflictingKeyShapes(t *testing.T) {
	_, err := Parse(map[string]string{
		"foo":    "bare",
		"foo.eq": "1",
	})
	require.Error(t, err)
}

func TestParse_RoundTripThroughBuilder(t *testing.T) {
	// Parsing then building must yield a single attribute filter carrying
	// both operators, numeric-coerced.
	tree, err := Parse(map[string]string{
		"foo[eq]": "1",
		"foo.neq": "3",
	})
	require.NoError(t, err)

	g, err := filter.Build(tree)
	require.NoError(t, err)
	require.Len(t, g.And, 1)

	ef, ok := g.And[0].(*filter.EntityFilter)
	require.True(t, ok)
	require.Len(t, ef.Attributes, 1)
	assert.Equal(t, map[string]any{"eq": int64(1), "neq": int64(3)}, ef.Attributes["foo"])
}

func TestParse_RepeatedKeyRoundTrip(t *testing.T) {
	tree, err := Parse(map[string]string{
		"and.1.baz.nin":  "8989",
		"and.1.baz[nin]": "565",
	})
	require.NoError(t, err)

	g, err := filter.Build(tree)
	require.NoError(t, err)
	require.Len(t, g.And, 1)

	ef := g.And[0].(*filter.EntityFilter)
	assert.Equal(t, []any{int64(8989), int64(565)}, ef.Attributes["baz"]["nin"])
}
