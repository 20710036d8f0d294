package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/followbot/internal/database/dbretry"
	"github.com/robalyx/followbot/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// EntryModel handles database operations for lifecycle collections.
type EntryModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewEntry creates an EntryModel with database access.
func NewEntry(db *bun.DB, logger *zap.Logger) *EntryModel {
	return &EntryModel{
		db:     db,
		logger: logger.Named("db_entry"),
	}
}

// GetAll retrieves every entry of a collection in insertion order.
func (r *EntryModel) GetAll(ctx context.Context, collection string) ([]*types.LifecycleEntry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.LifecycleEntry, error) {
		var entries []*types.LifecycleEntry
		err := r.db.NewSelect().Model(&entries).
			Where("collection = ?", collection).
			Order("seq ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get entries: %w (collection=%s)", err, collection)
		}
		return entries, nil
	})
}

// Upsert inserts an entry or updates its data while keeping its position.
func (r *EntryModel) Upsert(ctx context.Context, entry *types.LifecycleEntry) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		entry.UpdatedAt = time.Now()

		_, err := r.db.NewInsert().Model(entry).
			ExcludeColumn("seq").
			On("CONFLICT (collection, user_id) DO UPDATE").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert entry: %w (collection=%s, userID=%d)",
				err, entry.Collection, entry.UserID)
		}
		return nil
	})
}

// Delete removes an entry and reports whether it existed.
func (r *EntryModel) Delete(ctx context.Context, collection string, userID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := r.db.NewDelete().Model((*types.LifecycleEntry)(nil)).
			Where("collection = ?", collection).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to delete entry: %w (collection=%s, userID=%d)",
				err, collection, userID)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}
		return affected > 0, nil
	})
}

// Count returns the number of entries in a collection.
func (r *EntryModel) Count(ctx context.Context, collection string) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().Model((*types.LifecycleEntry)(nil)).
			Where("collection = ?", collection).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count entries: %w (collection=%s)", err, collection)
		}
		return count, nil
	})
}

// Replace swaps the content of a collection in a single transaction.
func (r *EntryModel) Replace(ctx context.Context, collection string, entries []*types.LifecycleEntry) error {
	return dbretry.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model((*types.LifecycleEntry)(nil)).
			Where("collection = ?", collection).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear collection: %w (collection=%s)", err, collection)
		}

		if len(entries) == 0 {
			return nil
		}

		// Rows are inserted in slice order so seq follows it
		_, err = tx.NewInsert().Model(&entries).
			ExcludeColumn("seq").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert entries: %w (collection=%s, count=%d)",
				err, collection, len(entries))
		}

		r.logger.Debug("Replaced collection",
			zap.String("collection", collection),
			zap.Int("count", len(entries)))
		return nil
	})
}
