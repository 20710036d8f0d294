// Package api defines the platform client used by the follow cycle and
// the classification of its errors.
package api

import (
	"context"
	"errors"

	"github.com/robalyx/followbot/internal/store/types"
)

var (
	// ErrTransient marks failures that may succeed later, such as network
	// errors, server errors and rate limits.
	ErrTransient = errors.New("transient platform error")
	// ErrPermanent marks failures that will never succeed for this user,
	// such as a missing or blocking account.
	ErrPermanent = errors.New("permanent platform error")
)

// Result is the outcome of a follow or unfollow action.
//
//go:generate go tool enumer -type=Result -trimprefix=Result -transform=lower
type Result int

const (
	// ResultSuccess means the action took effect.
	ResultSuccess Result = iota
	// ResultRetryable means the entry stays queued and is retried next cycle.
	ResultRetryable
	// ResultTerminal means the entry is dropped without a transition.
	ResultTerminal
)

// Classify maps an action error to its result.
// Unclassified errors are treated as retryable so no entry is lost to an unknown failure.
func Classify(err error) Result {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, ErrPermanent):
		return ResultTerminal
	default:
		return ResultRetryable
	}
}

// Client is the platform API used by the follow cycle.
type Client interface {
	// Follow follows the user from the operating account.
	Follow(ctx context.Context, user types.User) error
	// Unfollow unfollows the user from the operating account.
	Unfollow(ctx context.Context, user types.User) error
	// ListFollowers returns one page of the account's followers.
	// Pages start at 1 and an empty page marks the end of the list.
	ListFollowers(ctx context.Context, account string, page int) ([]types.User, error)
	// TotalFollowingCount returns how many users the account follows.
	TotalFollowingCount(ctx context.Context, account string) (int, error)
}
