package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalyx/followbot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errFlaky = errors.New("flaky")
	errFatal = errors.New("fatal")
)

func fastRetryOptions() utils.RetryOptions {
	return utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      3,
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		failures      int
		failWith      error
		retryable     func(error) bool
		expectErr     error
		expectAttempt int
	}{
		{
			name:          "succeeds first time",
			expectAttempt: 1,
		},
		{
			name:          "succeeds after retries",
			failures:      2,
			failWith:      errFlaky,
			expectAttempt: 3,
		},
		{
			name:          "gives up after max retries",
			failures:      10,
			failWith:      errFlaky,
			expectErr:     errFlaky,
			expectAttempt: 4,
		},
		{
			name:          "stops on non-retryable error",
			failures:      10,
			failWith:      errFatal,
			retryable:     func(err error) bool { return !errors.Is(err, errFatal) },
			expectErr:     errFatal,
			expectAttempt: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attempts := 0
			result, err := utils.WithRetry(t.Context(), func() (string, error) {
				attempts++
				if attempts <= tt.failures {
					return "", tt.failWith
				}
				return "ok", nil
			}, fastRetryOptions(), tt.retryable)

			assert.Equal(t, tt.expectAttempt, attempts)
			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", result)
		})
	}
}

func TestWithRetryCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := utils.WithRetry(ctx, func() (int, error) {
		return 0, errFlaky
	}, fastRetryOptions(), nil)
	require.Error(t, err)
}
