package lifecycle_test

import (
	"testing"
	"time"

	"github.com/robalyx/followbot/internal/lifecycle"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/store/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func pendingOf(entries map[uint64]time.Time, order ...uint64) *types.Ordered[types.PendingEntry] {
	pending := types.NewOrdered[types.PendingEntry]()
	for _, id := range order {
		pending.Set(id, types.PendingEntry{
			User:       types.User{ID: id},
			FollowedOn: entries[id],
		})
	}
	return pending
}

func followersOf(ids ...uint64) *types.Ordered[types.Follower] {
	followers := types.NewOrdered[types.Follower]()
	for _, id := range ids {
		followers.Set(id, types.Follower{User: types.User{ID: id}})
	}
	return followers
}

func TestDetectExpiredBoundary(t *testing.T) {
	t.Parallel()

	const waitDays = 5
	expiry := base.Add(waitDays * lifecycle.Day)

	tests := []struct {
		name string
		now  time.Time
		want []uint64
	}{
		{name: "well before", now: base.Add(time.Hour), want: nil},
		{name: "one nanosecond before", now: expiry.Add(-time.Nanosecond), want: nil},
		{name: "exactly at expiry", now: expiry, want: nil},
		{name: "one nanosecond after", now: expiry.Add(time.Nanosecond), want: []uint64{1}},
		{name: "long after", now: expiry.Add(30 * lifecycle.Day), want: []uint64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pending := pendingOf(map[uint64]time.Time{1: base}, 1)
			assert.Equal(t, tt.want, lifecycle.DetectExpired(pending, tt.now, waitDays))
		})
	}
}

func TestDetectExpiredKeepsOrder(t *testing.T) {
	t.Parallel()

	pending := pendingOf(map[uint64]time.Time{
		3: base.Add(-10 * lifecycle.Day),
		1: base,
		2: base.Add(-7 * lifecycle.Day),
	}, 3, 1, 2)

	assert.Equal(t, []uint64{3, 2}, lifecycle.DetectExpired(pending, base, 5))
}

func TestDetectReciprocated(t *testing.T) {
	t.Parallel()

	pending := pendingOf(map[uint64]time.Time{1: base, 2: base, 3: base}, 1, 2, 3)

	assert.Equal(t, []uint64{1, 3}, lifecycle.DetectReciprocated(pending, followersOf(3, 1, 99)))
	assert.Empty(t, lifecycle.DetectReciprocated(pending, followersOf()))
	assert.Empty(t, lifecycle.DetectReciprocated(pending, nil))
}

func TestClassifyPrefersFollowedBack(t *testing.T) {
	t.Parallel()

	now := base.Add(10 * lifecycle.Day)
	pending := pendingOf(map[uint64]time.Time{
		1: base,                        // expired and following back
		2: base,                        // expired only
		3: now.Add(-time.Hour),         // following back only
		4: now.Add(-2 * lifecycle.Day), // neither
	}, 1, 2, 3, 4)

	sweep := lifecycle.Classify(pending, followersOf(1, 3), now, 5)

	assert.Equal(t, []uint64{1, 3}, sweep.FollowedBack)
	assert.Equal(t, []uint64{2}, sweep.Expired)
	assert.False(t, sweep.Empty())

	newPending, unfollow := lifecycle.ApplySweep(pending, types.NewOrdered[types.UnfollowEntry](), sweep, now)

	entry, ok := unfollow.Get(1)
	require.True(t, ok)
	assert.Equal(t, enum.UnfollowReasonFollowedBack, entry.UnfollowReason)

	entry, ok = unfollow.Get(2)
	require.True(t, ok)
	assert.Equal(t, enum.UnfollowReasonExpired, entry.UnfollowReason)

	assert.Equal(t, []uint64{4}, newPending.IDs())
	assert.Equal(t, []uint64{1, 3, 2}, unfollow.IDs())
}

func TestApplyTransition(t *testing.T) {
	t.Parallel()

	now := base.Add(6 * lifecycle.Day)
	pending := pendingOf(map[uint64]time.Time{1: base, 2: base, 3: base}, 1, 2, 3)

	unfollow := types.NewOrdered[types.UnfollowEntry]()
	unfollow.Set(9, types.UnfollowEntry{User: types.User{ID: 9}, UnfollowReason: enum.UnfollowReasonManual})
	unfollow.Set(2, types.UnfollowEntry{User: types.User{ID: 2}, UnfollowReason: enum.UnfollowReasonManual})

	newPending, newUnfollow := lifecycle.ApplyTransition(
		pending, unfollow, []uint64{2, 3, 42}, enum.UnfollowReasonExpired, now,
	)

	// Inputs are untouched
	assert.Equal(t, []uint64{1, 2, 3}, pending.IDs())
	assert.Equal(t, []uint64{9, 2}, unfollow.IDs())
	old, _ := unfollow.Get(2)
	assert.Equal(t, enum.UnfollowReasonManual, old.UnfollowReason)

	// Moved ids leave pending; unknown ids are ignored
	assert.Equal(t, []uint64{1}, newPending.IDs())

	// Re-insertion overwrites in place without duplicating
	assert.Equal(t, []uint64{9, 2, 3}, newUnfollow.IDs())
	for _, id := range []uint64{2, 3} {
		entry, ok := newUnfollow.Get(id)
		require.True(t, ok)
		assert.Equal(t, enum.UnfollowReasonExpired, entry.UnfollowReason)
		assert.True(t, entry.AddedToQueueOn.Equal(now))
		assert.True(t, entry.FollowedOn.Equal(base))
	}
}

func TestApplyTransitionNoIDs(t *testing.T) {
	t.Parallel()

	pending := pendingOf(map[uint64]time.Time{1: base}, 1)
	newPending, newUnfollow := lifecycle.ApplyTransition(pending, nil, nil, enum.UnfollowReasonExpired, base)

	assert.Equal(t, []uint64{1}, newPending.IDs())
	assert.Zero(t, newUnfollow.Len())
}

// Scenario: a pending user followed ten days ago with a five day wait who never
// followed back is queued for unfollow as expired.
func TestSweepExpiredUser(t *testing.T) {
	t.Parallel()

	now := base
	pending := pendingOf(map[uint64]time.Time{7: now.Add(-10 * lifecycle.Day)}, 7)

	sweep := lifecycle.Classify(pending, followersOf(), now, 5)
	newPending, unfollow := lifecycle.ApplySweep(pending, nil, sweep, now)

	assert.Zero(t, newPending.Len())
	entry, ok := unfollow.Get(7)
	require.True(t, ok)
	assert.Equal(t, enum.UnfollowReasonExpired, entry.UnfollowReason)
}
