package lifecycle

import (
	"time"

	"github.com/robalyx/followbot/internal/store/types"
)

// AdmissionCheck returns the number of free slots in the follow queue.
// Zero or a negative value means no candidate may be admitted.
func AdmissionCheck(followQueue *types.Ordered[types.FollowQueueEntry], capacity int) int {
	return capacity - followQueue.Len()
}

// Admissible reports whether a user may enter the follow queue at all.
// Users that were ever followed are rejected regardless of free slots.
func Admissible(
	id uint64, followQueue *types.Ordered[types.FollowQueueEntry], ledger *types.Ordered[types.FollowedRecord],
) bool {
	return !followQueue.Has(id) && !ledger.Has(id)
}

// Admit selects the candidates that may be appended to the follow queue.
// Candidates are considered in order until the free slots run out. exclude
// rejects additional ids such as users already pending or queued for unfollow.
func Admit(
	followQueue *types.Ordered[types.FollowQueueEntry],
	ledger *types.Ordered[types.FollowedRecord],
	exclude func(id uint64) bool,
	candidates []types.User,
	seedLogin string,
	capacity int,
	now time.Time,
) []types.FollowQueueEntry {
	slots := AdmissionCheck(followQueue, capacity)
	if slots <= 0 {
		return nil
	}

	admitted := make([]types.FollowQueueEntry, 0, min(slots, len(candidates)))
	seen := make(map[uint64]struct{}, len(candidates))

	for _, candidate := range candidates {
		if len(admitted) == slots {
			break
		}

		if _, ok := seen[candidate.ID]; ok {
			continue
		}
		if !Admissible(candidate.ID, followQueue, ledger) {
			continue
		}
		if exclude != nil && exclude(candidate.ID) {
			continue
		}

		seen[candidate.ID] = struct{}{}
		admitted = append(admitted, types.FollowQueueEntry{
			User:      candidate,
			FetchedAt: now,
			SeedLogin: seedLogin,
		})
	}

	return admitted
}
