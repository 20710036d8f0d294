// Package sqlite stores collections in a single SQLite database file.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robalyx/followbot/internal/store"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
	CREATE TABLE IF NOT EXISTS lifecycle_entries (
		collection TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_lifecycle_entries_order ON lifecycle_entries (collection, seq);
`

// Backend persists collections in a SQLite database.
type Backend struct {
	conn *sqlite.Conn
	mu   sync.Mutex
}

// New opens or creates the database at path and ensures the schema exists.
func New(path string) (*Backend, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Backend{conn: conn}, nil
}

// Load implements store.Backend.
func (b *Backend) Load(ctx context.Context, collection string) ([]store.RawEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conn.SetInterrupt(ctx.Done())
	defer b.conn.SetInterrupt(nil)

	var entries []store.RawEntry
	err := sqlitex.Execute(b.conn,
		"SELECT user_id, data FROM lifecycle_entries WHERE collection = ? ORDER BY seq",
		&sqlitex.ExecOptions{
			Args: []any{collection},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, store.RawEntry{
					ID:   uint64(stmt.ColumnInt64(0)),
					Data: []byte(stmt.ColumnText(1)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}

	return entries, nil
}

// Put implements store.Backend.
func (b *Backend) Put(ctx context.Context, collection string, entry store.RawEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conn.SetInterrupt(ctx.Done())
	defer b.conn.SetInterrupt(nil)

	if err := b.put(collection, entry); err != nil {
		return fmt.Errorf("failed to put %s entry %d: %w", collection, entry.ID, err)
	}
	return nil
}

// Delete implements store.Backend.
func (b *Backend) Delete(ctx context.Context, collection string, id uint64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conn.SetInterrupt(ctx.Done())
	defer b.conn.SetInterrupt(nil)

	err := sqlitex.Execute(b.conn,
		"DELETE FROM lifecycle_entries WHERE collection = ? AND user_id = ?",
		&sqlitex.ExecOptions{Args: []any{collection, int64(id)}})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s entry %d: %w", collection, id, err)
	}

	return b.conn.Changes() > 0, nil
}

// Count implements store.Backend.
func (b *Backend) Count(ctx context.Context, collection string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conn.SetInterrupt(ctx.Done())
	defer b.conn.SetInterrupt(nil)

	var count int
	err := sqlitex.Execute(b.conn,
		"SELECT COUNT(*) FROM lifecycle_entries WHERE collection = ?",
		&sqlitex.ExecOptions{
			Args: []any{collection},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}

	return count, nil
}

// Replace implements store.Backend.
func (b *Backend) Replace(ctx context.Context, collection string, entries []store.RawEntry) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conn.SetInterrupt(ctx.Done())
	defer b.conn.SetInterrupt(nil)

	// Begin transaction
	if err := sqlitex.Execute(b.conn, "BEGIN IMMEDIATE", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := sqlitex.Execute(b.conn, "ROLLBACK", nil); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	err = sqlitex.Execute(b.conn,
		"DELETE FROM lifecycle_entries WHERE collection = ?",
		&sqlitex.ExecOptions{Args: []any{collection}})
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}

	for _, entry := range entries {
		if err = b.put(collection, entry); err != nil {
			return fmt.Errorf("failed to insert %s entry %d: %w", collection, entry.ID, err)
		}
	}

	// Commit transaction
	if err = sqlitex.Execute(b.conn, "COMMIT", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close implements store.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.conn.Close()
}

// put upserts an entry, appending it to the collection order when new.
func (b *Backend) put(collection string, entry store.RawEntry) error {
	return sqlitex.Execute(b.conn, `
		INSERT INTO lifecycle_entries (collection, user_id, seq, data)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM lifecycle_entries WHERE collection = ?), ?)
		ON CONFLICT (collection, user_id) DO UPDATE SET data = excluded.data
	`, &sqlitex.ExecOptions{
		Args: []any{collection, int64(entry.ID), collection, string(entry.Data)},
	})
}
