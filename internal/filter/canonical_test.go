package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_StableAcrossNotations(t *testing.T) {
	// Alias spellings, explicit defaults, and string-vs-number values all
	// normalize away before fingerprinting.
	a, err := Build(map[string]any{
		"name": map[string]any{"equalTo": "John"},
		"age":  map[string]any{"greaterThan": "18"},
	})
	require.NoError(t, err)

	b, err := Build(map[string]any{
		"logicalOp": "and",
		"age":       map[string]any{"gt": 18},
		"name":      map[string]any{"eq": "John"},
	})
	require.NoError(t, err)

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)
}

func TestFingerprint_DistinguishesFilters(t *testing.T) {
	a, err := Build(map[string]any{"name": map[string]any{"eq": "John"}})
	require.NoError(t, err)
	b, err := Build(map[string]any{"name": map[string]any{"eq": "Jane"}})
	require.NoError(t, err)

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical("a<b&c>d")
	require.NoError(t, err)
	assert.Equal(t, `"a<b&c>d"`, string(data))
}

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"b": 1, "a": 2, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(data))
}

func TestMarshalCanonical_IntegralFloat(t *testing.T) {
	// JSON decoding produces float64; 18 and 18.0 must encode identically.
	data, err := MarshalCanonical(float64(18))
	require.NoError(t, err)
	assert.Equal(t, "18", string(data))
}

func TestMarshalJSON_RoundTripsThroughBuild(t *testing.T) {
	original, err := Build(map[string]any{
		"filterId": "f-9",
		"and": []any{
			map[string]any{"attribute": "name", "eq": "John"},
			map[string]any{"status": map[string]any{"in": []any{"active"}}},
		},
		"not": []any{
			map[string]any{"deletedAt": map[string]any{"isNull": false}},
		},
	})
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	rebuilt, err := Build(raw)
	require.NoError(t, err)

	fpA, err := Fingerprint(original)
	require.NoError(t, err)
	fpB, err := Fingerprint(rebuilt)
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)
	assert.Equal(t, "f-9", rebuilt.FilterID)
}
