package stats

import (
	"time"

	"github.com/robalyx/followbot/internal/lifecycle"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/store/types/enum"
)

// Reporting windows.
const (
	Week  = 7 * lifecycle.Day
	Month = 30 * lifecycle.Day
)

// periodCounter accumulates counts for the reporting windows ending at now.
type periodCounter struct {
	now time.Time
}

// add counts t in every window that contains it.
func (p periodCounter) add(counts *types.PeriodCounts, t time.Time) {
	if t.IsZero() {
		return
	}

	if !t.Before(p.now.Add(-lifecycle.Day)) {
		counts.LastDay++
	}
	if !t.Before(p.now.Add(-Week)) {
		counts.LastWeek++
	}
	if !t.Before(p.now.Add(-Month)) {
		counts.LastMonth++
	}
}

// Compute builds the metrics report from the collection snapshots.
// Follows are counted from pending users and the past action log;
// unfollows from the past action log split by reason.
func Compute(
	now time.Time,
	pending *types.Ordered[types.PendingEntry],
	pastActions *types.Ordered[types.PastAction],
	general types.GeneralCounts,
) *types.MetricsReport {
	counter := periodCounter{now: now}
	report := &types.MetricsReport{
		Date:    now,
		General: general,
	}

	for _, entry := range pending.All() {
		counter.add(&report.Follows, entry.FollowedOn)
	}

	for _, action := range pastActions.All() {
		counter.add(&report.Follows, action.FollowedOn)
		counter.add(&report.Unfollows, action.UnfollowedOn)

		switch action.UnfollowReason {
		case enum.UnfollowReasonFollowedBack:
			counter.add(&report.UnfollowedFollowBack, action.UnfollowedOn)
		case enum.UnfollowReasonExpired:
			counter.add(&report.UnfollowedExpired, action.UnfollowedOn)
		case enum.UnfollowReasonManual, enum.UnfollowReasonOther:
		}
	}

	return report
}
