package dbretry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	maxElapsedTime  = 30 * time.Second
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
	maxRetries      = uint64(5)
)

// retryableClasses are SQLSTATE classes that indicate a transient condition.
var retryableClasses = []string{ //nolint:gochecknoglobals // -
	"08", // connection exception
	"40", // transaction rollback (serialization failure, deadlock)
	"53", // insufficient resources
	"57", // operator intervention (shutdown, cannot connect now)
}

// retryableCodes are individual SQLSTATE codes outside those classes.
var retryableCodes = []string{ //nolint:gochecknoglobals // -
	"55006", // object_in_use
	"55P03", // lock_not_available
}

// IsRetryableError checks if the given error is retryable.
// Context cancellation is never retried so shutdown is not delayed.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var pgerr pgdriver.Error
	if errors.As(err, &pgerr) {
		code := pgerr.Field('C')
		if len(code) == 5 && slices.Contains(retryableClasses, code[:2]) {
			return true
		}
		return slices.Contains(retryableCodes, code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// newBackOff builds the policy shared by every operation.
func newBackOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries), ctx)
}

// Operation wraps a database operation with retry logic.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var lastErr error

	result, err := backoff.RetryWithData(func() (T, error) {
		result, err := operation(ctx)
		if err != nil {
			if !IsRetryableError(err) {
				return result, backoff.Permanent(err)
			}
			lastErr = err
		}
		return result, err
	}, newBackOff(ctx))
	if err != nil {
		if lastErr != nil && errors.Is(err, lastErr) {
			return result, fmt.Errorf("database operation failed after retries: %w", err)
		}
		return result, fmt.Errorf("database operation failed: %w", err)
	}

	return result, nil
}

// NoResult wraps a database operation that doesn't return a result.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	_, err := Operation(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}

// Transaction wraps a database transaction with retry logic.
func Transaction(ctx context.Context, db *bun.DB, fn func(context.Context, bun.Tx) error) error {
	return NoResult(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, nil, fn)
	})
}
