package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/sqlite"
	"github.com/robalyx/followbot/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *sqlite.Backend {
	t.Helper()

	b, err := sqlite.New(filepath.Join(t.TempDir(), "followbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend(t *testing.T) {
	t.Parallel()

	storetest.RunBackendTests(t, func(t *testing.T) store.Backend {
		return newBackend(t)
	})
}

func TestReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "followbot.db")
	ctx := t.Context()

	first, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, store.PastActionsName, store.RawEntry{ID: 2, Data: []byte(`{"a":2}`)}))
	require.NoError(t, first.Put(ctx, store.PastActionsName, store.RawEntry{ID: 1, Data: []byte(`{"a":1}`)}))
	require.NoError(t, first.Close())

	second, err := sqlite.New(path)
	require.NoError(t, err)
	defer second.Close()

	entries, err := second.Load(ctx, store.PastActionsName)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(2), entries[0].ID)
	assert.Equal(t, uint64(1), entries[1].ID)
}

func TestLargeUserID(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	ctx := t.Context()

	const id = uint64(1) << 62
	require.NoError(t, b.Put(ctx, store.FollowedName, store.RawEntry{ID: id, Data: []byte(`{}`)}))

	entries, err := b.Load(ctx, store.FollowedName)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
}
