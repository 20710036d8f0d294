package types

import "time"

// PeriodCounts holds a count for each reporting window.
type PeriodCounts struct {
	LastDay   int `json:"last_day"`
	LastWeek  int `json:"last_week"`
	LastMonth int `json:"last_month"`
}

// GeneralCounts holds the current size of every collection.
type GeneralCounts struct {
	FollowQueue       int `json:"total_follow_queue"`
	PendingFollowBack int `json:"total_pending_follow_back"`
	UnfollowQueue     int `json:"total_unfollow_queue"`
	UsersFollowed     int `json:"total_users_followed"`
	CurrentFollowers  int `json:"total_current_followers"`
	PastActions       int `json:"total_past_actions"`
}

// MetricsReport is the daily summary handed to the metrics collaborator.
type MetricsReport struct {
	Date                 time.Time     `json:"date"`
	Follows              PeriodCounts  `json:"follows"`
	Unfollows            PeriodCounts  `json:"unfollows"`
	UnfollowedFollowBack PeriodCounts  `json:"unfollowed_followed_back"`
	UnfollowedExpired    PeriodCounts  `json:"unfollowed_expired"`
	General              GeneralCounts `json:"general"`
}
