// Package postgres stores collections in the lifecycle_entries table.
package postgres

import (
	"context"

	"github.com/robalyx/followbot/internal/database"
	"github.com/robalyx/followbot/internal/database/types"
	"github.com/robalyx/followbot/internal/store"
)

// Backend adapts the database entry model to store.Backend.
type Backend struct {
	db database.Client
}

// New creates a backend on top of an open database client.
// Closing the backend closes the client.
func New(db database.Client) *Backend {
	return &Backend{db: db}
}

// Load implements store.Backend.
func (b *Backend) Load(ctx context.Context, collection string) ([]store.RawEntry, error) {
	rows, err := b.db.Model().Entry().GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	entries := make([]store.RawEntry, len(rows))
	for i, row := range rows {
		entries[i] = store.RawEntry{ID: row.UserID, Data: row.Data}
	}
	return entries, nil
}

// Put implements store.Backend.
func (b *Backend) Put(ctx context.Context, collection string, entry store.RawEntry) error {
	return b.db.Model().Entry().Upsert(ctx, &types.LifecycleEntry{
		Collection: collection,
		UserID:     entry.ID,
		Data:       entry.Data,
	})
}

// Delete implements store.Backend.
func (b *Backend) Delete(ctx context.Context, collection string, id uint64) (bool, error) {
	return b.db.Model().Entry().Delete(ctx, collection, id)
}

// Count implements store.Backend.
func (b *Backend) Count(ctx context.Context, collection string) (int, error) {
	return b.db.Model().Entry().Count(ctx, collection)
}

// Replace implements store.Backend.
func (b *Backend) Replace(ctx context.Context, collection string, entries []store.RawEntry) error {
	rows := make([]*types.LifecycleEntry, len(entries))
	for i, entry := range entries {
		rows[i] = &types.LifecycleEntry{
			Collection: collection,
			UserID:     entry.ID,
			Data:       entry.Data,
		}
	}
	return b.db.Model().Entry().Replace(ctx, collection, rows)
}

// Close implements store.Backend.
func (b *Backend) Close() error {
	return b.db.Close()
}
