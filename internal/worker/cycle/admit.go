package cycle

import (
	"context"
	"strings"

	"github.com/robalyx/followbot/internal/lifecycle"
	"github.com/robalyx/followbot/internal/setup/config"
	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/types"
	"go.uber.org/zap"
)

// admit fills the follow queue with followers of a seed account.
// The seed is the head of the follow queue, or the next configured seed account
// when the queue is empty.
func (w *Worker) admit(ctx context.Context, lc config.Lifecycle) error {
	var (
		seed  string
		slots int
	)

	err := w.withStore(func(c *store.Collections) error {
		followQueue, err := load(ctx, w, c.FollowQueue, store.FollowQueueName, &w.snapshots.followQueue)
		if err != nil {
			return err
		}

		slots = lifecycle.AdmissionCheck(followQueue, lc.MaxQueueSize)
		if _, head, ok := followQueue.First(); ok {
			seed = head.Login
		}
		return nil
	})
	if err != nil {
		return err
	}

	if slots <= 0 {
		w.logger.Debug("Follow queue is full, skipping admission", zap.Int("maxQueueSize", lc.MaxQueueSize))
		return nil
	}

	if seed == "" {
		seed = w.nextSeedAccount(lc)
	}
	if seed == "" {
		w.logger.Debug("No seed account available, skipping admission")
		return nil
	}

	candidates, err := w.client.ListFollowers(ctx, seed, 1)
	if err != nil {
		w.logger.Warn("Failed to list seed followers, skipping admission",
			zap.String("seed", seed),
			zap.Error(err))
		return nil
	}

	candidates = withoutAccount(candidates, lc.Account)

	var admitted []types.FollowQueueEntry
	err = w.withStore(func(c *store.Collections) error {
		s, err := w.loadState(ctx, c)
		if err != nil {
			return err
		}

		admitted = lifecycle.Admit(
			s.followQueue, s.followed, s.active, candidates, seed, lc.MaxQueueSize, w.now(),
		)

		for _, entry := range admitted {
			if err := c.FollowQueue.Upsert(ctx, entry.ID, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.logger.Info("Admitted candidates to the follow queue",
		zap.String("seed", seed),
		zap.Int("candidates", len(candidates)),
		zap.Int("admitted", len(admitted)))
	return nil
}

// nextSeedAccount rotates through the configured seed accounts.
func (w *Worker) nextSeedAccount(lc config.Lifecycle) string {
	if len(lc.SeedAccounts) == 0 {
		return ""
	}

	seed := lc.SeedAccounts[w.seedIndex%len(lc.SeedAccounts)]
	w.seedIndex++
	return seed
}

// withoutAccount drops the operating account from a candidate list.
func withoutAccount(candidates []types.User, account string) []types.User {
	filtered := make([]types.User, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.EqualFold(candidate.Login, account) {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered
}
