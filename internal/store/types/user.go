package types

import (
	"time"

	"github.com/robalyx/followbot/internal/store/types/enum"
)

// User is a snapshot of a platform account as returned by the API client.
type User struct {
	ID         uint64 `json:"id"`
	Login      string `json:"login"`
	ProfileURL string `json:"html_url,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

// FollowQueueEntry is a discovered candidate waiting to be followed.
type FollowQueueEntry struct {
	User
	FetchedAt time.Time `json:"fetched_at"`
	SeedLogin string    `json:"seed_login,omitempty"`
}

// PendingEntry is a followed user whose reciprocation is not yet known.
type PendingEntry struct {
	User
	FollowedOn time.Time `json:"followed_on"`
}

// UnfollowEntry is a user waiting to be unfollowed.
type UnfollowEntry struct {
	User
	FollowedOn     time.Time           `json:"followed_on"`
	AddedToQueueOn time.Time           `json:"added_to_queue_on"`
	UnfollowReason enum.UnfollowReason `json:"unfollow_reason"`
}

// FollowedRecord marks a user that was followed at least once.
type FollowedRecord struct {
	UserID     uint64    `json:"user_id"`
	FollowedOn time.Time `json:"followed_on"`
}

// PastAction is the terminal record of a completed follow and unfollow pair.
type PastAction struct {
	User
	FollowedOn     time.Time           `json:"followed_on"`
	UnfollowedOn   time.Time           `json:"unfollowed_on"`
	UnfollowReason enum.UnfollowReason `json:"unfollow_reason"`
}

// Follower is one account in the current follower snapshot.
type Follower struct {
	User
	SeenAt time.Time `json:"seen_at"`
}
