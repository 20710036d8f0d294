// Package file stores each collection as a JSON document on disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/robalyx/followbot/internal/store"
)

// record is the on-disk shape of one entry.
type record struct {
	ID    uint64          `json:"id"`
	Entry json.RawMessage `json:"entry"`
}

// Backend persists collections as <dir>/<collection>.json.
// Every write rewrites the whole file through a temporary file and a rename,
// so a crash leaves either the old or the new document.
type Backend struct {
	dir string
	mu  sync.Mutex
}

// New creates a file backend rooted at dir, creating the directory if needed.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Backend{dir: dir}, nil
}

// Load implements store.Backend.
func (b *Backend) Load(_ context.Context, collection string) ([]store.RawEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.read(collection)
}

// Put implements store.Backend.
func (b *Backend) Put(_ context.Context, collection string, entry store.RawEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read(collection)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(entries, func(e store.RawEntry) bool { return e.ID == entry.ID })
	if idx >= 0 {
		entries[idx] = entry
	} else {
		entries = append(entries, entry)
	}

	return b.write(collection, entries)
}

// Delete implements store.Backend.
func (b *Backend) Delete(_ context.Context, collection string, id uint64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read(collection)
	if err != nil {
		return false, err
	}

	idx := slices.IndexFunc(entries, func(e store.RawEntry) bool { return e.ID == id })
	if idx < 0 {
		return false, nil
	}

	return true, b.write(collection, slices.Delete(entries, idx, idx+1))
}

// Count implements store.Backend.
func (b *Backend) Count(_ context.Context, collection string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read(collection)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Replace implements store.Backend.
func (b *Backend) Replace(_ context.Context, collection string, entries []store.RawEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.write(collection, entries)
}

// Close implements store.Backend.
func (b *Backend) Close() error {
	return nil
}

// path returns the file that holds the collection.
func (b *Backend) path(collection string) string {
	return filepath.Join(b.dir, collection+".json")
}

// read decodes the collection file. A missing or blank file is empty.
func (b *Backend) read(collection string) ([]store.RawEntry, error) {
	data, err := os.ReadFile(b.path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []record
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, &store.CorruptStoreError{Collection: collection, Err: err}
	}

	seen := make(map[uint64]struct{}, len(records))
	entries := make([]store.RawEntry, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			return nil, &store.CorruptStoreError{
				Collection: collection,
				ID:         r.ID,
				Err:        fmt.Errorf("duplicate entry %d", r.ID),
			}
		}
		seen[r.ID] = struct{}{}
		entries = append(entries, store.RawEntry{ID: r.ID, Data: []byte(r.Entry)})
	}

	return entries, nil
}

// write atomically replaces the collection file.
func (b *Backend) write(collection string, entries []store.RawEntry) error {
	records := make([]record, len(entries))
	for i, e := range entries {
		records[i] = record{ID: e.ID, Entry: json.RawMessage(e.Data)}
	}

	data, err := sonic.ConfigDefault.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(b.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", collection, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", collection, err)
	}

	if err := os.Rename(tmpName, b.path(collection)); err != nil {
		return fmt.Errorf("failed to commit %s: %w", collection, err)
	}
	return nil
}
