package cycle

import (
	"context"

	"github.com/robalyx/followbot/internal/api"
	"github.com/robalyx/followbot/internal/notify"
	"github.com/robalyx/followbot/internal/pacing"
	"github.com/robalyx/followbot/internal/setup/config"
	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/types"
	"go.uber.org/zap"
)

// follow follows a random number of users from the head of the follow queue.
func (w *Worker) follow(ctx context.Context, lc config.Lifecycle) error {
	total, err := w.client.TotalFollowingCount(ctx, lc.Account)
	if err != nil {
		w.logger.Warn("Failed to get following count, skipping follows", zap.Error(err))
		return nil
	}

	if total >= lc.MaxTotalFollowing {
		w.logger.Info("Following limit reached, skipping follows",
			zap.Int("following", total),
			zap.Int("maxTotalFollowing", lc.MaxTotalFollowing))
		return nil
	}

	count := pacing.Between(w.rng, lc.MinCycleFollowCount, lc.MaxCycleFollowCount)
	w.logger.Debug("Following users", zap.Int("count", count), zap.Int("following", total))

	for range count {
		entry, ok, err := w.nextToFollow(ctx)
		if err != nil {
			return err
		}
		if !ok {
			w.logger.Debug("Follow queue is empty")
			return nil
		}

		stop, err := w.followOne(ctx, entry)
		if err != nil {
			return err
		}

		if err := w.wait(ctx, lc); err != nil {
			return err
		}

		if stop {
			return nil
		}
	}

	return nil
}

// nextToFollow returns the head of the follow queue.
func (w *Worker) nextToFollow(ctx context.Context) (types.FollowQueueEntry, bool, error) {
	var (
		entry types.FollowQueueEntry
		ok    bool
	)

	err := w.withStore(func(c *store.Collections) error {
		followQueue, err := load(ctx, w, c.FollowQueue, store.FollowQueueName, &w.snapshots.followQueue)
		if err != nil {
			return err
		}
		_, entry, ok = followQueue.First()
		return nil
	})

	return entry, ok, err
}

// followOne follows a single user and records the outcome.
// It reports whether the step should stop because of a retryable failure.
func (w *Worker) followOne(ctx context.Context, entry types.FollowQueueEntry) (bool, error) {
	err := w.client.Follow(ctx, entry.User)

	switch api.Classify(err) {
	case api.ResultSuccess:
		now := w.now()
		// Pending is written first so an interrupted write never leaves a
		// followed user tracked by the ledger alone.
		err := w.withStore(func(c *store.Collections) error {
			if err := c.Pending.Upsert(ctx, entry.ID, types.PendingEntry{User: entry.User, FollowedOn: now}); err != nil {
				return err
			}
			if err := c.Followed.Upsert(ctx, entry.ID, types.FollowedRecord{UserID: entry.ID, FollowedOn: now}); err != nil {
				return err
			}
			_, err := c.FollowQueue.Remove(ctx, entry.ID)
			return err
		})
		if err != nil {
			return false, err
		}

		w.logger.Info("Followed user", zap.String("login", entry.Login), zap.Uint64("userID", entry.ID))
		w.notifier.Notify(ctx, notify.KindFollowed, notify.Payload{User: entry.User, FollowedOn: now, At: now})
		return false, nil

	case api.ResultTerminal:
		w.logger.Warn("Follow failed permanently, dropping user",
			zap.String("login", entry.Login),
			zap.Uint64("userID", entry.ID),
			zap.Error(err))

		return false, w.withStore(func(c *store.Collections) error {
			_, err := c.FollowQueue.Remove(ctx, entry.ID)
			return err
		})

	default:
		if ctx.Err() != nil {
			return true, ctx.Err()
		}

		w.logger.Warn("Follow failed, retrying next cycle",
			zap.String("login", entry.Login),
			zap.Uint64("userID", entry.ID),
			zap.Error(err))
		return true, nil
	}
}

// unfollow unfollows a random number of users from the head of the unfollow queue.
func (w *Worker) unfollow(ctx context.Context, lc config.Lifecycle) error {
	count := pacing.Between(w.rng, lc.MinCycleUnfollowCount, lc.MaxCycleUnfollowCount)
	w.logger.Debug("Unfollowing users", zap.Int("count", count))

	for range count {
		entry, ok, err := w.nextToUnfollow(ctx)
		if err != nil {
			return err
		}
		if !ok {
			w.logger.Debug("Unfollow queue is empty")
			return nil
		}

		stop, err := w.unfollowOne(ctx, entry)
		if err != nil {
			return err
		}

		if err := w.wait(ctx, lc); err != nil {
			return err
		}

		if stop {
			return nil
		}
	}

	return nil
}

// nextToUnfollow returns the head of the unfollow queue.
func (w *Worker) nextToUnfollow(ctx context.Context) (types.UnfollowEntry, bool, error) {
	var (
		entry types.UnfollowEntry
		ok    bool
	)

	err := w.withStore(func(c *store.Collections) error {
		unfollowQueue, err := load(ctx, w, c.UnfollowQueue, store.UnfollowQueueName, &w.snapshots.unfollowQueue)
		if err != nil {
			return err
		}
		_, entry, ok = unfollowQueue.First()
		return nil
	})

	return entry, ok, err
}

// unfollowOne unfollows a single user and records the outcome.
// It reports whether the step should stop because of a retryable failure.
func (w *Worker) unfollowOne(ctx context.Context, entry types.UnfollowEntry) (bool, error) {
	err := w.client.Unfollow(ctx, entry.User)

	switch api.Classify(err) {
	case api.ResultSuccess:
		now := w.now()
		action := types.PastAction{
			User:           entry.User,
			FollowedOn:     entry.FollowedOn,
			UnfollowedOn:   now,
			UnfollowReason: entry.UnfollowReason,
		}

		err := w.withStore(func(c *store.Collections) error {
			if err := c.PastActions.Upsert(ctx, entry.ID, action); err != nil {
				return err
			}
			if _, err := c.UnfollowQueue.Remove(ctx, entry.ID); err != nil {
				return err
			}
			_, err := c.Pending.Remove(ctx, entry.ID)
			return err
		})
		if err != nil {
			return false, err
		}

		w.logger.Info("Unfollowed user",
			zap.String("login", entry.Login),
			zap.Uint64("userID", entry.ID),
			zap.String("reason", entry.UnfollowReason.String()))
		w.notifier.Notify(ctx, notify.KindUnfollowed, notify.Payload{
			User:           entry.User,
			FollowedOn:     entry.FollowedOn,
			AddedToQueueOn: entry.AddedToQueueOn,
			UnfollowedOn:   now,
			Reason:         entry.UnfollowReason,
			At:             now,
		})
		return false, nil

	case api.ResultTerminal:
		w.logger.Warn("Unfollow failed permanently, dropping user",
			zap.String("login", entry.Login),
			zap.Uint64("userID", entry.ID),
			zap.Error(err))

		return false, w.withStore(func(c *store.Collections) error {
			_, err := c.UnfollowQueue.Remove(ctx, entry.ID)
			return err
		})

	default:
		if ctx.Err() != nil {
			return true, ctx.Err()
		}

		w.logger.Warn("Unfollow failed, retrying next cycle",
			zap.String("login", entry.Login),
			zap.Uint64("userID", entry.ID),
			zap.Error(err))
		return true, nil
	}
}
