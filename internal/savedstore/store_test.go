package savedstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sift/internal/filter"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "filters.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func buildFilter(t *testing.T, raw map[string]any) *filter.Group {
	t.Helper()
	g, err := filter.Build(raw)
	require.NoError(t, err)
	return g
}

func TestStore_SaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	g := buildFilter(t, map[string]any{"name": map[string]any{"eq": "John"}})
	saved, err := store.Save(ctx, "johns", g)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "johns", saved.Label)
	assert.NotEmpty(t, saved.Fingerprint)
	assert.NotEmpty(t, saved.CreatedAt)

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Fingerprint, got.Fingerprint)

	// The rebuilt tree is semantically identical.
	fp, err := filter.Fingerprint(got.Filter)
	require.NoError(t, err)
	assert.Equal(t, saved.Fingerprint, fp)
}

func TestStore_SaveUsesFilterID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	g := buildFilter(t, map[string]any{
		"filterId":    "f-custom",
		"filterLabel": "Custom",
		"and":         []any{map[string]any{"age": map[string]any{"gte": 21}}},
	})

	saved, err := store.Save(ctx, "", g)
	require.NoError(t, err)
	assert.Equal(t, "f-custom", saved.ID)
	assert.Equal(t, "Custom", saved.Label, "label falls back to filterLabel")
}

func TestStore_FingerprintDedupAcrossNotations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Same filter, different spellings: alias operator and string number.
	a := buildFilter(t, map[string]any{"age": map[string]any{"greaterThan": "18"}})
	b := buildFilter(t, map[string]any{"age": map[string]any{"gt": 18}})

	first, err := store.Save(ctx, "adults", a)
	require.NoError(t, err)
	second, err := store.Save(ctx, "adults again", b)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "adults", second.Label, "existing row wins")

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_List(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"John", "Jane", "Bob"} {
		g := buildFilter(t, map[string]any{"name": map[string]any{"eq": name}})
		_, err := store.Save(ctx, name, g)
		require.NoError(t, err)
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, sf := range all {
		assert.NotNil(t, sf.Filter)
	}
}

func TestStore_GetByFingerprint(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	g := buildFilter(t, map[string]any{"status": map[string]any{"in": []any{"active"}}})
	saved, err := store.Save(ctx, "active", g)
	require.NoError(t, err)

	got, err := store.GetByFingerprint(ctx, saved.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	g := buildFilter(t, map[string]any{"name": map[string]any{"eq": "gone"}})
	saved, err := store.Save(ctx, "", g)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, saved.ID))

	_, err = store.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, saved.ID), ErrNotFound)
}

func TestStore_NotFound(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetByFingerprint(ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.db")

	first, err := Open(path)
	require.NoError(t, err)

	g := buildFilter(t, map[string]any{"name": map[string]any{"eq": "persists"}})
	saved, err := first.Save(context.Background(), "kept", g)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Label)
}
