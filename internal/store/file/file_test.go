package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/file"
	"github.com/robalyx/followbot/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	t.Parallel()

	storetest.RunBackendTests(t, func(t *testing.T) store.Backend {
		b, err := file.New(t.TempDir())
		require.NoError(t, err)
		return b
	})
}

func TestLoadMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantErr   bool
		wantCount int
	}{
		{name: "blank file", content: "  \n\t", wantCount: 0},
		{name: "empty array", content: "[]", wantCount: 0},
		{name: "valid", content: `[{"id":1,"entry":{}},{"id":2,"entry":{}}]`, wantCount: 2},
		{name: "truncated", content: `[{"id":1,"entry":`, wantErr: true},
		{name: "wrong shape", content: `{"id":1}`, wantErr: true},
		{name: "duplicate id", content: `[{"id":1,"entry":{}},{"id":1,"entry":{}}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, store.PendingName+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			b, err := file.New(dir)
			require.NoError(t, err)

			entries, err := b.Load(t.Context(), store.PendingName)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, store.IsCorrupt(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.wantCount)
		})
	}
}

func TestPersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := t.Context()

	first, err := file.New(dir)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, store.FollowedName, store.RawEntry{ID: 42, Data: []byte(`{"user_id":42}`)}))
	require.NoError(t, first.Close())

	second, err := file.New(dir)
	require.NoError(t, err)
	entries, err := second.Load(ctx, store.FollowedName)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(42), entries[0].ID)
	assert.JSONEq(t, `{"user_id":42}`, string(entries[0].Data))

	// No temporary files are left behind
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestWriteFailsOnCorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, store.UnfollowQueueName+".json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o600))

	b, err := file.New(dir)
	require.NoError(t, err)

	err = b.Put(t.Context(), store.UnfollowQueueName, store.RawEntry{ID: 1, Data: []byte(`{}`)})
	require.Error(t, err)
	assert.True(t, store.IsCorrupt(err))

	// The corrupt document is left untouched
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{oops", string(data))
}
