package lifecycle

import (
	"time"

	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/store/types/enum"
)

// Day is the length of one wait day.
const Day = 24 * time.Hour

// Sweep is the result of classifying the pending collection.
// An id appears in at most one of the two lists.
type Sweep struct {
	FollowedBack []uint64
	Expired      []uint64
}

// Empty reports whether the sweep moves nothing.
func (s Sweep) Empty() bool {
	return len(s.FollowedBack) == 0 && len(s.Expired) == 0
}

// ExpiresAt returns the instant after which a follow made at followedOn expires.
func ExpiresAt(followedOn time.Time, waitDays int) time.Time {
	return followedOn.Add(time.Duration(waitDays) * Day)
}

// DetectExpired returns the pending ids whose wait has elapsed, in pending order.
// An entry is expired only when now is strictly after its expiry instant.
func DetectExpired(pending *types.Ordered[types.PendingEntry], now time.Time, waitDays int) []uint64 {
	var ids []uint64
	for id, entry := range pending.All() {
		if now.After(ExpiresAt(entry.FollowedOn, waitDays)) {
			ids = append(ids, id)
		}
	}
	return ids
}

// DetectReciprocated returns the pending ids present in the follower snapshot.
func DetectReciprocated(pending *types.Ordered[types.PendingEntry], followers *types.Ordered[types.Follower]) []uint64 {
	var ids []uint64
	for id := range pending.All() {
		if followers.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Classify splits the pending collection into reciprocated and expired ids.
// A user that is both reciprocated and expired is only reported as reciprocated.
func Classify(
	pending *types.Ordered[types.PendingEntry], followers *types.Ordered[types.Follower], now time.Time, waitDays int,
) Sweep {
	sweep := Sweep{FollowedBack: DetectReciprocated(pending, followers)}

	for _, id := range DetectExpired(pending, now, waitDays) {
		if !followers.Has(id) {
			sweep.Expired = append(sweep.Expired, id)
		}
	}

	return sweep
}

// ApplyTransition moves ids from pending to the unfollow queue with the given reason.
// It returns new collections and leaves its inputs untouched. Ids missing from
// pending are ignored; ids already queued for unfollow are overwritten in place.
func ApplyTransition(
	pending *types.Ordered[types.PendingEntry],
	unfollow *types.Ordered[types.UnfollowEntry],
	ids []uint64,
	reason enum.UnfollowReason,
	now time.Time,
) (*types.Ordered[types.PendingEntry], *types.Ordered[types.UnfollowEntry]) {
	newPending := pending.Clone()
	newUnfollow := unfollow.Clone()

	for _, id := range ids {
		entry, ok := newPending.Get(id)
		if !ok {
			continue
		}

		newPending.Delete(id)
		newUnfollow.Set(id, types.UnfollowEntry{
			User:           entry.User,
			FollowedOn:     entry.FollowedOn,
			AddedToQueueOn: now,
			UnfollowReason: reason,
		})
	}

	return newPending, newUnfollow
}

// ApplySweep applies both halves of a sweep, reciprocated users first.
func ApplySweep(
	pending *types.Ordered[types.PendingEntry],
	unfollow *types.Ordered[types.UnfollowEntry],
	sweep Sweep,
	now time.Time,
) (*types.Ordered[types.PendingEntry], *types.Ordered[types.UnfollowEntry]) {
	pending, unfollow = ApplyTransition(pending, unfollow, sweep.FollowedBack, enum.UnfollowReasonFollowedBack, now)
	return ApplyTransition(pending, unfollow, sweep.Expired, enum.UnfollowReasonExpired, now)
}
