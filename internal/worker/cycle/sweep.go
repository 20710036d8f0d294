package cycle

import (
	"context"

	"github.com/robalyx/followbot/internal/lifecycle"
	"github.com/robalyx/followbot/internal/setup/config"
	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/types"
	"go.uber.org/zap"
)

// sweep refreshes the follower snapshot and moves reciprocated and expired
// pending users into the unfollow queue.
func (w *Worker) sweep(ctx context.Context, lc config.Lifecycle) error {
	if err := w.refreshFollowers(ctx, lc.Account); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("Failed to refresh followers, using previous snapshot", zap.Error(err))
	}

	var queued []types.UnfollowEntry
	err := w.withStore(func(c *store.Collections) error {
		s, err := w.loadState(ctx, c)
		if err != nil {
			return err
		}

		now := w.now()
		result := lifecycle.Classify(s.pending, s.followers, now, lc.PendingFollowBackWaitTimeDays)
		if result.Empty() {
			return nil
		}

		_, unfollowQueue := lifecycle.ApplySweep(s.pending, s.unfollowQueue, result, now)

		moved := make([]uint64, 0, len(result.FollowedBack)+len(result.Expired))
		moved = append(moved, result.FollowedBack...)
		moved = append(moved, result.Expired...)

		for _, id := range moved {
			entry, _ := unfollowQueue.Get(id)
			if err := c.UnfollowQueue.Upsert(ctx, id, entry); err != nil {
				return err
			}
			if _, err := c.Pending.Remove(ctx, id); err != nil {
				return err
			}
			queued = append(queued, entry)
		}

		w.logger.Info("Moved pending users to the unfollow queue",
			zap.Int("followedBack", len(result.FollowedBack)),
			zap.Int("expired", len(result.Expired)))
		return nil
	})
	if err != nil {
		return err
	}

	w.notifyQueued(ctx, queued)
	return nil
}

// refreshFollowers replaces the follower snapshot with the account's current
// followers. Pages are fetched until an empty page is returned. On failure the
// previous snapshot is left untouched.
func (w *Worker) refreshFollowers(ctx context.Context, account string) error {
	var followers []types.User
	for page := 1; ; page++ {
		users, err := w.client.ListFollowers(ctx, account, page)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			break
		}
		followers = append(followers, users...)
	}

	return w.withStore(func(c *store.Collections) error {
		previous, err := load(ctx, w, c.Followers, store.FollowersName, &w.snapshots.followers)
		if err != nil {
			return err
		}

		now := w.now()
		snapshot := types.NewOrdered[types.Follower]()
		for _, user := range followers {
			seenAt := now
			if existing, ok := previous.Get(user.ID); ok {
				seenAt = existing.SeenAt
			}
			snapshot.Set(user.ID, types.Follower{User: user, SeenAt: seenAt})
		}

		if err := c.Followers.Replace(ctx, snapshot); err != nil {
			return err
		}
		w.snapshots.followers = snapshot.Clone()

		w.logger.Debug("Refreshed follower snapshot", zap.Int("followers", snapshot.Len()))
		return nil
	})
}
