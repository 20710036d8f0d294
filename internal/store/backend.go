package store

import (
	"context"
	"fmt"
)

// Collection names shared by every backend.
const (
	FollowQueueName   = "follow_queue"
	PendingName       = "pending_follow_back"
	UnfollowQueueName = "unfollow_queue"
	FollowedName      = "users_followed"
	PastActionsName   = "past_follows_unfollows"
	FollowersName     = "current_followers"
	MetricsLogName    = "metrics_log"
)

// CollectionNames lists every collection in a stable order.
var CollectionNames = []string{
	FollowQueueName,
	PendingName,
	UnfollowQueueName,
	FollowedName,
	PastActionsName,
	FollowersName,
	MetricsLogName,
}

// RawEntry is an encoded entry as persisted by a backend.
type RawEntry struct {
	ID   uint64
	Data []byte
}

// Backend persists encoded entries per named collection.
// Implementations must return entries in insertion order and keep the
// original position of an entry when it is overwritten.
// A collection that was never written is empty, not an error.
type Backend interface {
	// Load returns every entry of the collection in insertion order.
	Load(ctx context.Context, collection string) ([]RawEntry, error)
	// Put inserts or overwrites a single entry.
	Put(ctx context.Context, collection string, entry RawEntry) error
	// Delete removes an entry and reports whether it existed.
	Delete(ctx context.Context, collection string, id uint64) (bool, error)
	// Count returns the number of entries in the collection.
	Count(ctx context.Context, collection string) (int, error)
	// Replace overwrites the whole collection.
	Replace(ctx context.Context, collection string, entries []RawEntry) error
	// Close releases the underlying resources.
	Close() error
}

// Copy replaces every collection of dst with the entries of src and returns
// the number of entries copied per collection.
func Copy(ctx context.Context, dst, src Backend) (map[string]int, error) {
	copied := make(map[string]int, len(CollectionNames))

	for _, name := range CollectionNames {
		entries, err := src.Load(ctx, name)
		if err != nil {
			return copied, fmt.Errorf("failed to read %s: %w", name, err)
		}

		if err := dst.Replace(ctx, name, entries); err != nil {
			return copied, fmt.Errorf("failed to write %s: %w", name, err)
		}

		copied[name] = len(entries)
	}

	return copied, nil
}
