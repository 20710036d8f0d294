package cycle

import (
	"context"

	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/types"
	"go.uber.org/zap"
)

// snapshots keeps the last successfully decoded copy of each collection.
// They stand in for a collection whose backing data turns out to be corrupt.
type snapshots struct {
	followQueue   *types.Ordered[types.FollowQueueEntry]
	pending       *types.Ordered[types.PendingEntry]
	unfollowQueue *types.Ordered[types.UnfollowEntry]
	followed      *types.Ordered[types.FollowedRecord]
	followers     *types.Ordered[types.Follower]
}

// state is a decoded view of every collection taken under the store lock.
type state struct {
	followQueue   *types.Ordered[types.FollowQueueEntry]
	pending       *types.Ordered[types.PendingEntry]
	unfollowQueue *types.Ordered[types.UnfollowEntry]
	followed      *types.Ordered[types.FollowedRecord]
	followers     *types.Ordered[types.Follower]
}

// active reports whether the id is queued, pending or waiting to be unfollowed.
func (s *state) active(id uint64) bool {
	return s.followQueue.Has(id) || s.pending.Has(id) || s.unfollowQueue.Has(id)
}

// loadState decodes the collections used by the lifecycle steps.
// Must be called under the store lock.
func (w *Worker) loadState(ctx context.Context, c *store.Collections) (*state, error) {
	var (
		s   state
		err error
	)

	if s.followQueue, err = load(ctx, w, c.FollowQueue, store.FollowQueueName, &w.snapshots.followQueue); err != nil {
		return nil, err
	}
	if s.pending, err = load(ctx, w, c.Pending, store.PendingName, &w.snapshots.pending); err != nil {
		return nil, err
	}
	if s.unfollowQueue, err = load(ctx, w, c.UnfollowQueue, store.UnfollowQueueName, &w.snapshots.unfollowQueue); err != nil {
		return nil, err
	}
	if s.followed, err = load(ctx, w, c.Followed, store.FollowedName, &w.snapshots.followed); err != nil {
		return nil, err
	}
	if s.followers, err = load(ctx, w, c.Followers, store.FollowersName, &w.snapshots.followers); err != nil {
		return nil, err
	}

	return &s, nil
}

// load reads a collection, falling back to the last good snapshot when the
// backing data is corrupt. Without a snapshot the collection is treated as empty.
// Other errors are returned unchanged.
func load[T any](
	ctx context.Context, w *Worker, coll store.Collection[T], name string, last **types.Ordered[T],
) (*types.Ordered[T], error) {
	entries, err := coll.GetAll(ctx)
	if err == nil {
		*last = entries.Clone()
		return entries, nil
	}

	if !store.IsCorrupt(err) {
		return nil, err
	}

	if *last != nil {
		w.logger.Warn("Collection is corrupt, using last good snapshot",
			zap.String("collection", name),
			zap.Int("entries", (*last).Len()),
			zap.Error(err))
		return (*last).Clone(), nil
	}

	w.logger.Error("Collection is corrupt and no snapshot is available, treating it as empty (data loss risk)",
		zap.String("collection", name),
		zap.Error(err))
	return types.NewOrdered[T](), nil
}
