package cycle

import (
	"context"
	"fmt"

	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/store/types/enum"
	"go.uber.org/zap"
)

// EnqueueUnfollow moves a user into the unfollow queue by hand.
// The user is removed from the follow queue and from pending so that it
// is tracked by one collection only.
func (w *Worker) EnqueueUnfollow(ctx context.Context, user types.User, reason enum.UnfollowReason) error {
	var entry types.UnfollowEntry

	err := w.withStore(func(c *store.Collections) error {
		s, err := w.loadState(ctx, c)
		if err != nil {
			return err
		}

		entry = types.UnfollowEntry{
			User:           user,
			AddedToQueueOn: w.now(),
			UnfollowReason: reason,
		}

		// Keep the best known follow timestamp
		if pending, ok := s.pending.Get(user.ID); ok {
			entry.FollowedOn = pending.FollowedOn
		} else if existing, ok := s.unfollowQueue.Get(user.ID); ok {
			entry.FollowedOn = existing.FollowedOn
		} else if record, ok := s.followed.Get(user.ID); ok {
			entry.FollowedOn = record.FollowedOn
		}

		if entry.Login == "" {
			entry.User = w.knownUser(s, user.ID)
		}

		if entry.Login == "" {
			return fmt.Errorf("user %d has no login and is not tracked", user.ID)
		}

		if err := c.UnfollowQueue.Upsert(ctx, user.ID, entry); err != nil {
			return err
		}
		if _, err := c.FollowQueue.Remove(ctx, user.ID); err != nil {
			return err
		}
		_, err = c.Pending.Remove(ctx, user.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue unfollow for %d: %w", user.ID, err)
	}

	w.logger.Info("Queued user for unfollow",
		zap.String("login", entry.Login),
		zap.Uint64("userID", entry.ID),
		zap.String("reason", reason.String()))
	w.notifyQueued(ctx, []types.UnfollowEntry{entry})
	return nil
}

// knownUser looks up the stored snapshot of a user.
func (w *Worker) knownUser(s *state, id uint64) types.User {
	if entry, ok := s.pending.Get(id); ok {
		return entry.User
	}
	if entry, ok := s.unfollowQueue.Get(id); ok {
		return entry.User
	}
	if entry, ok := s.followQueue.Get(id); ok {
		return entry.User
	}
	return types.User{ID: id}
}

// ReconcileResult counts the entries repaired by Reconcile.
type ReconcileResult struct {
	PendingRestored    int
	LedgerRestored     int
	FollowQueueRemoved int
	PendingRemoved     int
}

// Reconcile restores mutual exclusion between the active collections.
// Followed users left in the follow queue without a pending, queued or past
// unfollow entry are moved back to pending with their ledger follow time.
// Pending users missing from the ledger are recorded there. Users that were
// ever followed, or are pending or queued for unfollow, are then removed from
// the follow queue, and users both pending and queued for unfollow are
// removed from pending.
func (w *Worker) Reconcile(ctx context.Context) error {
	_, err := w.ReconcileWithResult(ctx)
	return err
}

// ReconcileWithResult is Reconcile returning the number of repaired entries.
func (w *Worker) ReconcileWithResult(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult

	err := w.withStore(func(c *store.Collections) error {
		s, err := w.loadState(ctx, c)
		if err != nil {
			return err
		}

		pastActions, err := c.PastActions.GetAll(ctx)
		if err != nil {
			return err
		}

		for id, entry := range s.followQueue.All() {
			record, ok := s.followed.Get(id)
			if !ok || s.pending.Has(id) || s.unfollowQueue.Has(id) || pastActions.Has(id) {
				continue
			}

			pending := types.PendingEntry{User: entry.User, FollowedOn: record.FollowedOn}
			if err := c.Pending.Upsert(ctx, id, pending); err != nil {
				return err
			}
			s.pending.Set(id, pending)
			result.PendingRestored++
		}

		for id, entry := range s.pending.All() {
			if s.followed.Has(id) {
				continue
			}

			record := types.FollowedRecord{UserID: id, FollowedOn: entry.FollowedOn}
			if err := c.Followed.Upsert(ctx, id, record); err != nil {
				return err
			}
			s.followed.Set(id, record)
			result.LedgerRestored++
		}

		for id := range s.followQueue.All() {
			if s.followed.Has(id) || s.pending.Has(id) || s.unfollowQueue.Has(id) {
				if _, err := c.FollowQueue.Remove(ctx, id); err != nil {
					return err
				}
				result.FollowQueueRemoved++
			}
		}

		for id := range s.pending.All() {
			if s.unfollowQueue.Has(id) {
				if _, err := c.Pending.Remove(ctx, id); err != nil {
					return err
				}
				result.PendingRemoved++
			}
		}

		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to reconcile collections: %w", err)
	}

	if result != (ReconcileResult{}) {
		w.logger.Warn("Reconciled overlapping collections",
			zap.Int("pendingRestored", result.PendingRestored),
			zap.Int("ledgerRestored", result.LedgerRestored),
			zap.Int("followQueueRemoved", result.FollowQueueRemoved),
			zap.Int("pendingRemoved", result.PendingRemoved))
	}
	return result, nil
}
