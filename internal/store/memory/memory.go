package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/robalyx/followbot/internal/store"
)

// Backend keeps collections in process memory.
// It is used for dry runs and tests; nothing survives a restart.
type Backend struct {
	collections map[string][]store.RawEntry
	mu          sync.Mutex
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		collections: make(map[string][]store.RawEntry),
	}
}

// Load implements store.Backend.
func (b *Backend) Load(_ context.Context, collection string) ([]store.RawEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.collections[collection]
	out := make([]store.RawEntry, len(entries))
	for i, e := range entries {
		out[i] = store.RawEntry{ID: e.ID, Data: slices.Clone(e.Data)}
	}
	return out, nil
}

// Put implements store.Backend.
func (b *Backend) Put(_ context.Context, collection string, entry store.RawEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry.Data = slices.Clone(entry.Data)
	entries := b.collections[collection]
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			return nil
		}
	}
	b.collections[collection] = append(entries, entry)
	return nil
}

// Delete implements store.Backend.
func (b *Backend) Delete(_ context.Context, collection string, id uint64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.collections[collection]
	for i := range entries {
		if entries[i].ID == id {
			b.collections[collection] = slices.Delete(entries, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

// Count implements store.Backend.
func (b *Backend) Count(_ context.Context, collection string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.collections[collection]), nil
}

// Replace implements store.Backend.
func (b *Backend) Replace(_ context.Context, collection string, entries []store.RawEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]store.RawEntry, len(entries))
	for i, e := range entries {
		out[i] = store.RawEntry{ID: e.ID, Data: slices.Clone(e.Data)}
	}
	b.collections[collection] = out
	return nil
}

// Close implements store.Backend.
func (b *Backend) Close() error {
	return nil
}
