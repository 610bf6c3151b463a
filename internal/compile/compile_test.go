package compile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sift/internal/filter"
)

// identitySurface builds a compiler whose fragment functions render the bare
// "attr<op>value" text, so tests assert structure and parenthesization
// rather than any backend syntax.
func identitySurface(attrs ...string) *Compiler {
	refs := make(AttrRefs, len(attrs))
	for _, a := range attrs {
		refs[a] = a
	}

	binary := func(sym string) OpFunc {
		return func(ref any, values ...any) string {
			return fmt.Sprintf("%v%s%v", ref, sym, values[0])
		}
	}

	return New(refs, OpFuncs{
		"eq":           binary("="),
		"neq":          binary("!="),
		"gt":           binary(">"),
		"gte":          binary(">="),
		"lt":           binary("<"),
		"lte":          binary("<="),
		"in":           binary("="),
		"nin":          binary("!="),
		"contains":     binary("~"),
		"notContains":  binary("!~"),
		"containsSome": binary("~"),
		"like":         binary("~"),
		"startsWith":   binary("^"),
		"endsWith":     binary("$"),
		"bt": func(ref any, values ...any) string {
			return fmt.Sprintf("%v in [%v..%v]", ref, values[0], values[1])
		},
		"isNull": func(ref any, values ...any) string {
			if values[0].(bool) {
				return fmt.Sprintf("%v is null", ref)
			}
			return fmt.Sprintf("%v is not null", ref)
		},
		"isEmpty": func(ref any, values ...any) string {
			if values[0].(bool) {
				return fmt.Sprintf("%v=''", ref)
			}
			return fmt.Sprintf("%v!=''", ref)
		},
	})
}

func mustBuild(t *testing.T, raw map[string]any) *filter.Group {
	t.Helper()
	g, err := filter.Build(raw)
	require.NoError(t, err)
	return g
}

func TestCompile_GroupRoundTrip(t *testing.T) {
	c := identitySurface("name", "age")
	g := mustBuild(t, map[string]any{
		"and": []any{
			map[string]any{"attribute": "name", "eq": "John"},
			map[string]any{"attribute": "age", "gt": 18},
		},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "( name=John AND age>18 )", expr)
}

func TestCompile_SingleFragmentIsBare(t *testing.T) {
	c := identitySurface("name")
	g := mustBuild(t, map[string]any{
		"and": []any{map[string]any{"attribute": "name", "eq": "John"}},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "name=John", expr)
}

func TestCompile_EmptyGroupIsEmptyString(t *testing.T) {
	c := identitySurface()

	expr, err := c.Compile(&filter.Group{})
	require.NoError(t, err)
	assert.Equal(t, "", expr)
}

func TestCompile_MetadataOnlyEntityMatchesEmpty(t *testing.T) {
	c := identitySurface()

	empty, err := c.Compile(mustBuild(t, map[string]any{}))
	require.NoError(t, err)

	metaOnly, err := c.Compile(mustBuild(t, map[string]any{"filterId": "f-1"}))
	require.NoError(t, err)

	assert.Equal(t, "", empty)
	assert.Equal(t, empty, metaOnly)
}

func TestCompile_EntityFilterLogicalOr(t *testing.T) {
	c := identitySurface("name", "age")
	g := mustBuild(t, map[string]any{
		"logicalOp": "or",
		"age":       map[string]any{"gt": 65},
		"name":      map[string]any{"eq": "John"},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	// Attributes compile in sorted order.
	assert.Equal(t, "( age>65 OR name=John )", expr)
}

func TestCompile_MultipleOperatorsOneAttribute(t *testing.T) {
	c := identitySurface("age")
	g := mustBuild(t, map[string]any{
		"and": []any{
			map[string]any{"attribute": "age", "gte": 18, "lte": 30},
		},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "( age>=18 AND age<=30 )", expr)
}

func TestCompile_InclusionJoinsWithOR(t *testing.T) {
	c := identitySurface("status")
	g := mustBuild(t, map[string]any{
		"status": map[string]any{"in": []any{"active", "pending"}},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "( status=active OR status=pending )", expr)
}

func TestCompile_ExclusionJoinsWithAND(t *testing.T) {
	c := identitySurface("status")
	g := mustBuild(t, map[string]any{
		"status": map[string]any{"nin": []any{"deleted", "banned"}},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "( status!=deleted AND status!=banned )", expr)
}

func TestCompile_ContainsAllVersusSome(t *testing.T) {
	c := identitySurface("tags")

	all, err := c.Compile(mustBuild(t, map[string]any{
		"tags": map[string]any{"contains": []any{"go", "sql"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "( tags~go AND tags~sql )", all)

	some, err := c.Compile(mustBuild(t, map[string]any{
		"tags": map[string]any{"containsSome": []any{"go", "sql"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "( tags~go OR tags~sql )", some)
}

func TestCompile_SingleElementArrayIsBare(t *testing.T) {
	c := identitySurface("status")
	g := mustBuild(t, map[string]any{
		"status": map[string]any{"in": []any{"active"}},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "status=active", expr)
}

func TestCompile_Range(t *testing.T) {
	c := identitySurface("age")
	g := mustBuild(t, map[string]any{
		"age": map[string]any{"between": []any{"18", "30"}},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "age in [18..30]", expr)
}

func TestCompile_IsNullTruthiness(t *testing.T) {
	c := identitySurface("deletedAt")

	testCases := []struct {
		value any
		want  string
	}{
		{true, "deletedAt is null"},
		{false, "deletedAt is not null"},
		{"true", "deletedAt is null"},
		{"false", "deletedAt is not null"},
		{"0", "deletedAt is not null"},
	}

	for _, tc := range testCases {
		g := mustBuild(t, map[string]any{"deletedAt": map[string]any{"isNull": tc.value}})
		expr, err := c.Compile(g)
		require.NoError(t, err)
		assert.Equal(t, tc.want, expr, "value %v", tc.value)
	}
}

func TestCompile_NotBranchNegatesConjunctively(t *testing.T) {
	c := identitySurface("status", "role")
	g := mustBuild(t, map[string]any{
		"not": []any{
			map[string]any{"attribute": "status", "eq": "deleted"},
			map[string]any{"attribute": "role", "eq": "bot"},
		},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "( NOT status=deleted AND NOT role=bot )", expr)
}

func TestCompile_BranchesJoinWithAND(t *testing.T) {
	c := identitySurface("a", "b", "c")
	g := mustBuild(t, map[string]any{
		"and": []any{map[string]any{"attribute": "a", "eq": 1}},
		"or": []any{
			map[string]any{"attribute": "b", "eq": 2},
			map[string]any{"attribute": "c", "eq": 3},
		},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "( a=1 AND ( b=2 OR c=3 ) )", expr)
}

func TestCompile_EmptyBranchElementsDropped(t *testing.T) {
	c := identitySurface("a")
	g := mustBuild(t, map[string]any{
		"and": []any{
			map[string]any{"attribute": "a", "eq": 1},
			map[string]any{"filterId": "vacuous"},
		},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "a=1", expr)
}

func TestCompile_NestedGroups(t *testing.T) {
	c := identitySurface("a", "b", "c")
	g := mustBuild(t, map[string]any{
		"and": []any{
			map[string]any{"attribute": "a", "eq": 1},
			map[string]any{
				"or": []any{
					map[string]any{"attribute": "b", "eq": 2},
					map[string]any{"attribute": "c", "eq": 3},
				},
			},
		},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "( a=1 AND ( b=2 OR c=3 ) )", expr)
}

func TestCompile_PropRefResolvesToReference(t *testing.T) {
	c := identitySurface("startDate", "endDate")
	g := mustBuild(t, map[string]any{
		"startDate": map[string]any{
			"lt": map[string]any{"val": "endDate", "valType": "propRef"},
		},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "startDate<endDate", expr)
}

func TestCompile_ExpressionValuePassesThrough(t *testing.T) {
	// Expression tokens are an unimplemented value type: they compile as
	// literal text, by design.
	c := identitySurface("createdAt")
	g := mustBuild(t, map[string]any{
		"createdAt": map[string]any{
			"lt": map[string]any{"val": "now()", "valType": "expression"},
		},
	})

	expr, err := c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, "createdAt<now()", expr)
}

func TestCompile_UnknownAttribute(t *testing.T) {
	c := identitySurface("name")
	g := mustBuild(t, map[string]any{"missing": map[string]any{"eq": 1}})

	_, err := c.Compile(g)
	var unknownErr *UnknownAttributeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "missing", unknownErr.Attribute)
}

func TestCompile_UnknownPropRefAttribute(t *testing.T) {
	c := identitySurface("name")
	g := mustBuild(t, map[string]any{
		"name": map[string]any{"eq": map[string]any{"val": "missing", "valType": "propRef"}},
	})

	_, err := c.Compile(g)
	var unknownErr *UnknownAttributeError
	require.ErrorAs(t, err, &unknownErr)
}

func TestCompile_UnsupportedOperator(t *testing.T) {
	c := New(AttrRefs{"name": "name"}, OpFuncs{})
	g := mustBuild(t, map[string]any{"name": map[string]any{"eq": "x"}})

	_, err := c.Compile(g)
	var unsupportedErr *UnsupportedOperatorError
	require.ErrorAs(t, err, &unsupportedErr)
}
