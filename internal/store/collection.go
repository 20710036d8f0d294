package store

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/robalyx/followbot/internal/store/types"
)

// Collection is the repository for one lifecycle stage.
// Calls are not reentrant and must be serialized through Store.WithLock.
type Collection[T any] interface {
	// GetAll returns every entry in insertion order.
	GetAll(ctx context.Context) (*types.Ordered[T], error)
	// Upsert inserts the entry or overwrites the existing one.
	Upsert(ctx context.Context, id uint64, entry T) error
	// Remove deletes the entry and reports whether it existed.
	Remove(ctx context.Context, id uint64) (bool, error)
	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)
	// Replace overwrites the collection with the given entries.
	Replace(ctx context.Context, entries *types.Ordered[T]) error
}

// jsonCollection stores entries as JSON documents in a Backend.
type jsonCollection[T any] struct {
	name    string
	backend Backend
}

// NewCollection creates a collection backed by the given backend.
func NewCollection[T any](backend Backend, name string) Collection[T] {
	return &jsonCollection[T]{
		name:    name,
		backend: backend,
	}
}

// GetAll implements Collection.
func (c *jsonCollection[T]) GetAll(ctx context.Context) (*types.Ordered[T], error) {
	raw, err := c.backend.Load(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.name, err)
	}

	entries := types.NewOrdered[T]()
	for _, r := range raw {
		var entry T
		if err := sonic.Unmarshal(r.Data, &entry); err != nil {
			return nil, &CorruptStoreError{Collection: c.name, ID: r.ID, Err: err}
		}

		if entries.Has(r.ID) {
			return nil, &CorruptStoreError{
				Collection: c.name,
				ID:         r.ID,
				Err:        fmt.Errorf("duplicate entry %d", r.ID),
			}
		}
		entries.Set(r.ID, entry)
	}

	return entries, nil
}

// Upsert implements Collection.
func (c *jsonCollection[T]) Upsert(ctx context.Context, id uint64, entry T) error {
	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode %s entry %d: %w", c.name, id, err)
	}

	if err := c.backend.Put(ctx, c.name, RawEntry{ID: id, Data: data}); err != nil {
		return fmt.Errorf("failed to upsert %s entry %d: %w", c.name, id, err)
	}
	return nil
}

// Remove implements Collection.
func (c *jsonCollection[T]) Remove(ctx context.Context, id uint64) (bool, error) {
	removed, err := c.backend.Delete(ctx, c.name, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s entry %d: %w", c.name, id, err)
	}
	return removed, nil
}

// Count implements Collection.
func (c *jsonCollection[T]) Count(ctx context.Context) (int, error) {
	count, err := c.backend.Count(ctx, c.name)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return count, nil
}

// Replace implements Collection.
func (c *jsonCollection[T]) Replace(ctx context.Context, entries *types.Ordered[T]) error {
	raw := make([]RawEntry, 0, entries.Len())
	for id, entry := range entries.All() {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode %s entry %d: %w", c.name, id, err)
		}
		raw = append(raw, RawEntry{ID: id, Data: data})
	}

	if err := c.backend.Replace(ctx, c.name, raw); err != nil {
		return fmt.Errorf("failed to replace %s: %w", c.name, err)
	}
	return nil
}
