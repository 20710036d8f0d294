// Package storetest holds the behaviour every store.Backend must share.
package storetest

import (
	"testing"

	"github.com/robalyx/followbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBackendTests exercises a backend created fresh for every subtest.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Helper()

	t.Run("missing collection is empty", func(t *testing.T) {
		b := newBackend(t)
		ctx := t.Context()

		entries, err := b.Load(ctx, store.FollowQueueName)
		require.NoError(t, err)
		assert.Empty(t, entries)

		count, err := b.Count(ctx, store.FollowQueueName)
		require.NoError(t, err)
		assert.Zero(t, count)

		removed, err := b.Delete(ctx, store.FollowQueueName, 1)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("put keeps insertion order", func(t *testing.T) {
		b := newBackend(t)
		ctx := t.Context()

		for _, id := range []uint64{30, 10, 20} {
			require.NoError(t, b.Put(ctx, store.PendingName, store.RawEntry{ID: id, Data: []byte(`{"v":1}`)}))
		}

		// Overwrite keeps the original position
		require.NoError(t, b.Put(ctx, store.PendingName, store.RawEntry{ID: 30, Data: []byte(`{"v":2}`)}))

		entries, err := b.Load(ctx, store.PendingName)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, uint64(30), entries[0].ID)
		assert.Equal(t, uint64(10), entries[1].ID)
		assert.Equal(t, uint64(20), entries[2].ID)
		assert.JSONEq(t, `{"v":2}`, string(entries[0].Data))

		count, err := b.Count(ctx, store.PendingName)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("delete", func(t *testing.T) {
		b := newBackend(t)
		ctx := t.Context()

		require.NoError(t, b.Put(ctx, store.UnfollowQueueName, store.RawEntry{ID: 1, Data: []byte(`{}`)}))
		require.NoError(t, b.Put(ctx, store.UnfollowQueueName, store.RawEntry{ID: 2, Data: []byte(`{}`)}))

		removed, err := b.Delete(ctx, store.UnfollowQueueName, 1)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = b.Delete(ctx, store.UnfollowQueueName, 1)
		require.NoError(t, err)
		assert.False(t, removed)

		entries, err := b.Load(ctx, store.UnfollowQueueName)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, uint64(2), entries[0].ID)
	})

	t.Run("replace overwrites collection", func(t *testing.T) {
		b := newBackend(t)
		ctx := t.Context()

		require.NoError(t, b.Put(ctx, store.FollowersName, store.RawEntry{ID: 1, Data: []byte(`{}`)}))
		require.NoError(t, b.Replace(ctx, store.FollowersName, []store.RawEntry{
			{ID: 5, Data: []byte(`{"n":5}`)},
			{ID: 4, Data: []byte(`{"n":4}`)},
		}))

		entries, err := b.Load(ctx, store.FollowersName)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, uint64(5), entries[0].ID)
		assert.Equal(t, uint64(4), entries[1].ID)

		// Entries added after a replace go to the end
		require.NoError(t, b.Put(ctx, store.FollowersName, store.RawEntry{ID: 1, Data: []byte(`{}`)}))
		entries, err = b.Load(ctx, store.FollowersName)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, uint64(1), entries[2].ID)

		require.NoError(t, b.Replace(ctx, store.FollowersName, nil))
		count, err := b.Count(ctx, store.FollowersName)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		b := newBackend(t)
		ctx := t.Context()

		require.NoError(t, b.Put(ctx, store.FollowQueueName, store.RawEntry{ID: 7, Data: []byte(`{}`)}))

		count, err := b.Count(ctx, store.PendingName)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
