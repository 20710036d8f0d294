package enum

// UnfollowReason records why a followed user was moved into the unfollow queue.
// Entries stored without a reason decode to UnfollowReasonOther.
//
//go:generate go tool enumer -type=UnfollowReason -trimprefix=UnfollowReason -text
type UnfollowReason int

const (
	// UnfollowReasonOther covers entries whose reason is unknown.
	UnfollowReasonOther UnfollowReason = iota
	// UnfollowReasonFollowedBack means the user followed the account back.
	UnfollowReasonFollowedBack
	// UnfollowReasonExpired means the follow-back window elapsed without reciprocation.
	UnfollowReasonExpired
	// UnfollowReasonManual means an operator queued the user by hand.
	UnfollowReasonManual
)

// Description returns a human readable sentence for notifications.
func (r UnfollowReason) Description() string {
	switch r {
	case UnfollowReasonFollowedBack:
		return "User followed back"
	case UnfollowReasonExpired:
		return "Given time for user to follow back has expired"
	case UnfollowReasonManual:
		return "Queued manually"
	default:
		return "Unknown reason"
	}
}
