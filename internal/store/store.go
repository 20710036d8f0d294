package store

import (
	"sync"

	"github.com/robalyx/followbot/internal/store/types"
)

// Collections groups the six durable lifecycle collections and the daily
// metrics log.
type Collections struct {
	FollowQueue   Collection[types.FollowQueueEntry]
	Pending       Collection[types.PendingEntry]
	UnfollowQueue Collection[types.UnfollowEntry]
	Followed      Collection[types.FollowedRecord]
	PastActions   Collection[types.PastAction]
	Followers     Collection[types.Follower]
	MetricsLog    Collection[types.MetricsReport]
}

// Store owns the collections and the single lock that guards them.
// Every reader and writer in the process goes through WithLock so that
// whole-collection writes never interleave.
type Store struct {
	backend     Backend
	collections *Collections
	mu          sync.Mutex
}

// New creates a Store on top of the given backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		collections: &Collections{
			FollowQueue:   NewCollection[types.FollowQueueEntry](backend, FollowQueueName),
			Pending:       NewCollection[types.PendingEntry](backend, PendingName),
			UnfollowQueue: NewCollection[types.UnfollowEntry](backend, UnfollowQueueName),
			Followed:      NewCollection[types.FollowedRecord](backend, FollowedName),
			PastActions:   NewCollection[types.PastAction](backend, PastActionsName),
			Followers:     NewCollection[types.Follower](backend, FollowersName),
			MetricsLog:    NewCollection[types.MetricsReport](backend, MetricsLogName),
		},
	}
}

// WithLock runs fn while holding the store lock.
// fn must not call WithLock again and should not perform network calls.
func (s *Store) WithLock(fn func(c *Collections) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.collections)
}

// Close closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend.Close()
}
