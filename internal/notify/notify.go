// Package notify delivers lifecycle events to the operator.
package notify

import (
	"context"
	"time"

	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/store/types/enum"
)

// Kind identifies the type of a notification.
//
//go:generate go tool enumer -type=Kind -trimprefix=Kind -transform=snake
type Kind int

const (
	// KindOnline is sent once when the worker starts.
	KindOnline Kind = iota
	// KindFollowed is sent after a successful follow.
	KindFollowed
	// KindUnfollowed is sent after a successful unfollow.
	KindUnfollowed
	// KindQueuedUnfollow is sent when a user is moved into the unfollow queue.
	KindQueuedUnfollow
	// KindDailyMetrics carries the daily metrics report.
	KindDailyMetrics
)

// Payload carries the details of a notification.
// Only the fields relevant to the kind are set.
type Payload struct {
	User           types.User
	FollowedOn     time.Time
	AddedToQueueOn time.Time
	UnfollowedOn   time.Time
	Reason         enum.UnfollowReason
	Metrics        *types.MetricsReport
	Message        string
	At             time.Time
}

// Notifier delivers notifications.
// Delivery is fire-and-forget: failures are logged by the notifier and never
// returned to the caller.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, payload Payload)
}

// Nop discards every notification.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Kind, Payload) {}
