package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions contains configuration for retry behavior.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// GetAPIRetryOptions returns retry options for read-only platform API calls.
func GetAPIRetryOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  2 * time.Minute,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxRetries:      5,
	}
}

// GetNotifyRetryOptions returns retry options for webhook deliveries.
func GetNotifyRetryOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  30 * time.Second,
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
		MaxRetries:      3,
	}
}

// WithRetry executes the given operation with exponential backoff using provided options.
// When retryable is not nil, errors it rejects stop the retries immediately.
func WithRetry[T any](
	ctx context.Context, operation func() (T, error), opts RetryOptions, retryable func(error) bool,
) (T, error) {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	), opts.MaxRetries)

	return backoff.RetryWithData(func() (T, error) {
		result, err := operation()
		if err != nil && retryable != nil && !retryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, backoff.WithContext(b, ctx))
}
